package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/models"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/sentinel"
)

// MemoryStore is the in-memory Store used in development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	rows    map[id.DomainID]*models.Domain
	byName  map[nameKey]id.DomainID
}

type nameKey struct {
	org  id.OrganizationID
	name string
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		rows:   make(map[id.DomainID]*models.Domain),
		byName: make(map[nameKey]id.DomainID),
	}
}

func (s *MemoryStore) Insert(_ context.Context, d *models.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := nameKey{org: d.OrganizationID, name: d.Name}
	if _, exists := s.byName[key]; exists {
		return sentinel.ErrConflict
	}

	cp := *d
	s.rows[d.ID] = &cp
	s.byName[key] = d.ID
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, orgID id.OrganizationID, domainID id.DomainID) (*models.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[domainID]
	if !ok || row.OrganizationID != orgID {
		return nil, sentinel.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *MemoryStore) GetByName(_ context.Context, orgID id.OrganizationID, name string) (*models.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	domainID, ok := s.byName[nameKey{org: orgID, name: name}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.rows[domainID]
	return &cp, nil
}

func (s *MemoryStore) ListByOrganization(_ context.Context, orgID id.OrganizationID) ([]*models.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []*models.Domain
	for _, row := range s.rows {
		if row.OrganizationID == orgID {
			cp := *row
			rows = append(rows, &cp)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

func (s *MemoryStore) UpdateDNSOutcome(_ context.Context, domainID id.DomainID, update models.DNSOutcomeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[domainID]
	if !ok {
		return sentinel.ErrNotFound
	}
	row.DNSProvider = update.DNSProvider
	row.SPFConfigured = update.SPFConfigured
	row.DKIMConfigured = update.DKIMConfigured
	row.DKIMSelector = update.DKIMSelector
	row.DMARCConfigured = update.DMARCConfigured
	row.BIMIConfigured = update.BIMIConfigured
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) UpdateHealth(_ context.Context, domainID id.DomainID, update models.HealthUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[domainID]
	if !ok {
		return sentinel.ErrNotFound
	}
	checkedAt := update.CheckedAt
	row.HealthStatus = update.Status
	row.LastHealthCheckAt = &checkedAt
	row.UpdatedAt = time.Now().UTC()
	return nil
}
