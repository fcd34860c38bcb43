package audit

import (
	"time"

	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
)

// Event is emitted from provisioning workflows to capture key actions. Keep
// it transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp      time.Time         `json:"timestamp"`
	OrganizationID id.OrganizationID `json:"organizationId"`
	Domain         string            `json:"domain"`
	Action         string            `json:"action"`
	Registrar      string            `json:"registrar,omitempty"`
	Outcome        string            `json:"outcome"`
	Reason         string            `json:"reason,omitempty"`
}

// Actions emitted by the provisioning workflows.
const (
	ActionDomainPurchased = "domain.purchased"
	ActionDNSConfigured   = "dns.configured"
	ActionHealthChecked   = "health.checked"
)

// Outcomes an event can record.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
