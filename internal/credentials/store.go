// Package credentials stores per-organization registrar credential sets.
// Secret values pass through opaquely and are never logged; rotation happens
// only by explicit Put/Delete.
package credentials

import (
	"context"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
)

// Store persists registrar credential sets keyed by (organization, registrar).
type Store interface {
	// Get returns the credential set, or sentinel.ErrNoCredentials when the
	// organization has none for that registrar.
	Get(ctx context.Context, orgID id.OrganizationID, typ registrar.Type) (registrar.Credentials, error)
	// List returns every credential set the organization holds.
	List(ctx context.Context, orgID id.OrganizationID) ([]registrar.Credentials, error)
	// Put creates or replaces the set for (org, creds.Type).
	Put(ctx context.Context, orgID id.OrganizationID, creds registrar.Credentials) error
	// Delete removes the set; deleting an absent set is not an error.
	Delete(ctx context.Context, orgID id.OrganizationID, typ registrar.Type) error
}
