// Package service orchestrates domain search, purchase, and persistence
// across every registrar an organization holds credentials for.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/audit"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/metrics"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/models"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
	dErrors "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain-errors"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/sentinel"
)

type DomainStore interface {
	Insert(ctx context.Context, d *models.Domain) error
	GetByID(ctx context.Context, orgID id.OrganizationID, domainID id.DomainID) (*models.Domain, error)
	GetByName(ctx context.Context, orgID id.OrganizationID, name string) (*models.Domain, error)
	ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]*models.Domain, error)
}

type CredentialStore interface {
	Get(ctx context.Context, orgID id.OrganizationID, typ registrar.Type) (registrar.Credentials, error)
	List(ctx context.Context, orgID id.OrganizationID) ([]registrar.Credentials, error)
}

// ClientFactory builds a registrar client from a credential set.
type ClientFactory interface {
	Client(creds registrar.Credentials) (registrar.Client, error)
}

// AuditEmitter records provisioning events. Emitting never fails the
// operation it records.
type AuditEmitter interface {
	Emit(ctx context.Context, base audit.Event)
}

// Service orchestrates domain provisioning.
type Service struct {
	domains     DomainStore
	credentials CredentialStore
	factory     ClientFactory
	logger      *slog.Logger
	auditor     AuditEmitter
	metrics     *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditEmitter(auditor AuditEmitter) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(domains DomainStore, credentials CredentialStore, factory ClientFactory, opts ...Option) *Service {
	s := &Service{domains: domains, credentials: credentials, factory: factory}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ListDomains returns every domain the organization owns.
func (s *Service) ListDomains(ctx context.Context, orgID id.OrganizationID) ([]*models.Domain, error) {
	if orgID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "organization id is required")
	}
	domains, err := s.domains.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return domains, nil
}

// GetDomain returns one domain scoped to the organization.
func (s *Service) GetDomain(ctx context.Context, orgID id.OrganizationID, domainID id.DomainID) (*models.Domain, error) {
	if orgID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "organization id is required")
	}
	d, err := s.domains.GetByID(ctx, orgID, domainID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return d, nil
}

// client builds a registrar client from the organization's stored credentials
// for the given type.
func (s *Service) client(ctx context.Context, orgID id.OrganizationID, typ registrar.Type) (registrar.Client, error) {
	creds, err := s.credentials.Get(ctx, orgID, typ)
	if err != nil {
		if errors.Is(err, sentinel.ErrNoCredentials) {
			return nil, dErrors.Newf(dErrors.CodeConfiguration, "no %s credentials configured", typ)
		}
		return nil, wrapStoreErr(err)
	}
	return s.factory.Client(creds)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}

func wrapStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "domain not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "domain already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
	}
}
