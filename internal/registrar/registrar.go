// Package registrar defines the capability contract all registrar clients
// implement, plus the shared shapes their provider-specific responses are
// normalized into. Field names and error conventions of each provider's wire
// format stay inside that provider's own subpackage; this contract is the
// only shape the rest of the system depends on.
package registrar

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	dErrors "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain-errors"
)

// Type names a supported registrar.
type Type string

const (
	TypeCloudflare Type = "cloudflare"
	TypeNamecheap  Type = "namecheap"
	TypePorkbun    Type = "porkbun"
)

// Types lists every supported registrar type.
func Types() []Type {
	return []Type{TypeCloudflare, TypeNamecheap, TypePorkbun}
}

// ParseType validates a registrar type string.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeCloudflare, TypeNamecheap, TypePorkbun:
		return t, nil
	default:
		return "", dErrors.Newf(dErrors.CodeConfiguration, "unsupported registrar type %q", s)
	}
}

// Credentials is the per-organization secret bundle for one registrar.
// Values are never logged. Which fields are meaningful depends on the type:
// cloudflare uses APIKey (token) + AccountID, namecheap the
// APIUser/APIKey/Username triad + ClientIP, porkbun APIKey + APISecret.
type Credentials struct {
	Type      Type
	APIKey    string
	APISecret string
	APIUser   string
	Username  string
	AccountID string
	ClientIP  string
	Sandbox   bool
	BaseURL   string // overrides the provider endpoint, used by tests
}

// SearchResult is the normalized availability answer for one domain.
// Ephemeral: never persisted as-is.
type SearchResult struct {
	Domain    string   `json:"domain"`
	Available bool     `json:"available"`
	Price     *float64 `json:"price,omitempty"`
	Currency  string   `json:"currency,omitempty"`
	Period    int      `json:"period,omitempty"`
	Premium   bool     `json:"premium"`
}

// PurchaseRequest asks a registrar to register a domain.
type PurchaseRequest struct {
	Domain string
	Years  int
}

// PurchaseResult is always returned, never thrown across the registrar
// boundary: business failures come back with Success=false and the
// registrar's literal message in Error, so callers can record a best-effort
// attempt even on failure.
type PurchaseResult struct {
	Success   bool       `json:"success"`
	Domain    string     `json:"domain"`
	Registrar Type       `json:"registrarType"`
	OrderID   string     `json:"orderId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// RecordType enumerates the DNS record types clients can manage.
type RecordType string

const (
	RecordA     RecordType = "A"
	RecordAAAA  RecordType = "AAAA"
	RecordCNAME RecordType = "CNAME"
	RecordMX    RecordType = "MX"
	RecordTXT   RecordType = "TXT"
	RecordNS    RecordType = "NS"
	RecordSRV   RecordType = "SRV"
)

// Record is the normalized DNS record shape. Proxied only applies to
// providers exposing a per-record proxy flag; others ignore it.
type Record struct {
	ID       string     `json:"id,omitempty"`
	Type     RecordType `json:"type"`
	Name     string     `json:"name"`
	Content  string     `json:"content"`
	TTL      int        `json:"ttl"`
	Priority *int       `json:"priority,omitempty"`
	Proxied  *bool      `json:"proxied,omitempty"`
}

// Zone is the DNS-hosting unit a provider manages for a domain.
type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client is the base capability contract: every registrar can search and
// purchase. DNS management is optional and advertised by implementing
// DNSManager.
type Client interface {
	Name() Type
	CheckAvailability(ctx context.Context, domain string) (SearchResult, error)
	SearchDomains(ctx context.Context, query string, tlds []string) ([]SearchResult, error)
	Purchase(ctx context.Context, req PurchaseRequest) (PurchaseResult, error)
}

// DNSManager is the optional zone/record capability. Callers must check
// support once via AsDNSManager and never invoke an absent method.
type DNSManager interface {
	EnsureZone(ctx context.Context, domain string) (Zone, error)
	ListRecords(ctx context.Context, zoneID string) ([]Record, error)
	CreateRecord(ctx context.Context, zoneID string, rec Record) (string, error)
	UpdateRecord(ctx context.Context, zoneID, recordID string, rec Record) error
	DeleteRecord(ctx context.Context, zoneID, recordID string) error
}

// AsDNSManager reports whether the client can manage DNS, returning the
// capability when present.
func AsDNSManager(c Client) (DNSManager, bool) {
	m, ok := c.(DNSManager)
	return m, ok
}

// FanOutSearch builds "<query>.<tld>" per TLD and runs check concurrently.
// A single failed check degrades to {domain, available:false} rather than
// aborting the batch; result order follows the tlds argument even though the
// checks themselves are unordered.
func FanOutSearch(ctx context.Context, query string, tlds []string, check func(ctx context.Context, domain string) (SearchResult, error)) ([]SearchResult, error) {
	results := make([]SearchResult, len(tlds))

	g, ctx := errgroup.WithContext(ctx)
	for i, tld := range tlds {
		domain := query + "." + strings.TrimPrefix(tld, ".")
		g.Go(func() error {
			res, err := check(ctx, domain)
			if err != nil {
				results[i] = SearchResult{Domain: domain, Available: false}
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
