// Package store persists domain rows. Updates are targeted field-level
// writes, never full-row overwrites, so concurrent health and configuration
// updates cannot clobber each other.
package store

import (
	"context"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/models"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
)

// Store is the domain-row persistence contract. Implementations return
// sentinel.ErrConflict for duplicate (organization, domain) rows and
// sentinel.ErrNotFound for absent ones.
type Store interface {
	Insert(ctx context.Context, d *models.Domain) error
	GetByID(ctx context.Context, orgID id.OrganizationID, domainID id.DomainID) (*models.Domain, error)
	GetByName(ctx context.Context, orgID id.OrganizationID, name string) (*models.Domain, error)
	ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]*models.Domain, error)

	// UpdateDNSOutcome writes only the configuration-outcome fields.
	UpdateDNSOutcome(ctx context.Context, domainID id.DomainID, update models.DNSOutcomeUpdate) error
	// UpdateHealth writes only the health fields.
	UpdateHealth(ctx context.Context, domainID id.DomainID, update models.HealthUpdate) error
}
