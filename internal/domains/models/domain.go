// Package models holds the domain-provisioning aggregate and its value types.
package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
	dErrors "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain-errors"
)

// HealthStatus is the single "is this domain sendable" answer, refreshed only
// by the validation workflow.
type HealthStatus string

const (
	HealthHealthy HealthStatus = "healthy"
	HealthWarning HealthStatus = "warning"
	HealthError   HealthStatus = "error"
	HealthPending HealthStatus = "pending"
)

// Domain is a persisted domain row.
//
// Invariants:
//   - Name is lowercased and unique per organization
//   - Health fields are mutated only by the validation workflow,
//     configuration-outcome fields only by the configuration workflow —
//     never both by the same write
type Domain struct {
	ID             id.DomainID         `json:"id"`
	OrganizationID id.OrganizationID   `json:"organizationId"`
	Name           string              `json:"domain"`
	Registrar      registrar.Type      `json:"registrarType"`
	DNSProvider    string              `json:"dnsProvider,omitempty"`

	SPFConfigured   bool   `json:"spfConfigured"`
	DKIMConfigured  bool   `json:"dkimConfigured"`
	DKIMSelector    string `json:"dkimSelector,omitempty"`
	DMARCConfigured bool   `json:"dmarcConfigured"`
	BIMIConfigured  bool   `json:"bimiConfigured"`

	HealthStatus      HealthStatus `json:"healthStatus"`
	LastHealthCheckAt *time.Time   `json:"lastHealthCheckAt,omitempty"`

	AutoPurchased bool       `json:"autoPurchased"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// DNSOutcomeUpdate carries the configuration workflow's field-level write.
type DNSOutcomeUpdate struct {
	DNSProvider     string
	SPFConfigured   bool
	DKIMConfigured  bool
	DKIMSelector    string
	DMARCConfigured bool
	BIMIConfigured  bool
}

// HealthUpdate carries the validation workflow's field-level write.
type HealthUpdate struct {
	Status    HealthStatus
	CheckedAt time.Time
}

var domainNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

// NormalizeDomainName lowercases a domain name and strips surrounding
// whitespace and the trailing FQDN dot. Whitespace goes first so the dot is
// actually trailing when trimmed.
func NormalizeDomainName(name string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
}

// ValidateDomainName rejects malformed domain names before any network call.
func ValidateDomainName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "domain is required")
	}
	if len(name) > 253 || !domainNamePattern.MatchString(name) {
		return dErrors.Newf(dErrors.CodeBadRequest, "invalid domain name %q", name)
	}
	return nil
}

// PurchaseRequest asks the workflow to buy one domain.
type PurchaseRequest struct {
	Domain    string         `json:"domain"`
	Registrar registrar.Type `json:"registrarType"`
	Years     int            `json:"years"`
}

// Validate checks request shape. Years defaults to 1 when unset.
func (r *PurchaseRequest) Validate() error {
	r.Domain = NormalizeDomainName(r.Domain)
	if err := ValidateDomainName(r.Domain); err != nil {
		return err
	}
	if _, err := registrar.ParseType(string(r.Registrar)); err != nil {
		return err
	}
	if r.Years == 0 {
		r.Years = 1
	}
	if r.Years < 1 || r.Years > 10 {
		return dErrors.New(dErrors.CodeBadRequest, "years must be between 1 and 10")
	}
	return nil
}
