package credentials

import (
	"context"
	"sort"
	"sync"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/sentinel"
)

// MemoryStore keeps credential sets in memory. Used in development and tests;
// production deployments use PostgresStore.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[id.OrganizationID]map[registrar.Type]registrar.Credentials
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		sets: make(map[id.OrganizationID]map[registrar.Type]registrar.Credentials),
	}
}

func (s *MemoryStore) Get(_ context.Context, orgID id.OrganizationID, typ registrar.Type) (registrar.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds, ok := s.sets[orgID][typ]
	if !ok {
		return registrar.Credentials{}, sentinel.ErrNoCredentials
	}
	return creds, nil
}

func (s *MemoryStore) List(_ context.Context, orgID id.OrganizationID) ([]registrar.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]registrar.Credentials, 0, len(s.sets[orgID]))
	for _, creds := range s.sets[orgID] {
		all = append(all, creds)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Type < all[j].Type })
	return all, nil
}

func (s *MemoryStore) Put(_ context.Context, orgID id.OrganizationID, creds registrar.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets[orgID] == nil {
		s.sets[orgID] = make(map[registrar.Type]registrar.Credentials)
	}
	s.sets[orgID][creds.Type] = creds
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, orgID id.OrganizationID, typ registrar.Type) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets[orgID], typ)
	return nil
}
