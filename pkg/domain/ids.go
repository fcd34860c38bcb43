// Package domain defines strongly-typed identifiers shared across modules.
//
// IDs wrap uuid.UUID so the compiler distinguishes an organization ID from a
// domain ID at call sites. Parse helpers enforce the invariant that IDs are
// valid, non-nil UUIDs at trust boundaries (HTTP handlers, store reads).
package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain-errors"
)

// OrganizationID identifies the owning organization of domains and credentials.
type OrganizationID uuid.UUID

// DomainID identifies a persisted domain row.
type DomainID uuid.UUID

func (id OrganizationID) String() string { return uuid.UUID(id).String() }
func (id DomainID) String() string       { return uuid.UUID(id).String() }

func (id OrganizationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id DomainID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }

// Text marshalling forwards to uuid.UUID so IDs appear as canonical UUID
// strings in JSON and on the wire, not as byte arrays.

func (id OrganizationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id DomainID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }

func (id *OrganizationID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

func (id *DomainID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

// ParseOrganizationID parses and validates an organization ID from its string form.
func ParseOrganizationID(s string) (OrganizationID, error) {
	u, err := parse(s)
	if err != nil {
		return OrganizationID{}, err
	}
	return OrganizationID(u), nil
}

// ParseDomainID parses and validates a domain ID from its string form.
func ParseDomainID(s string) (DomainID, error) {
	u, err := parse(s)
	if err != nil {
		return DomainID{}, err
	}
	return DomainID(u), nil
}

func parse(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id must not be the nil UUID")
	}
	return u, nil
}
