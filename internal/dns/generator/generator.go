// Package generator produces the exact DNS records a domain needs for email
// authentication. Pure and deterministic: identical inputs always yield
// byte-identical records, so the configuration and validation workflows can
// compare against its output exactly.
package generator

import (
	"fmt"
	"strings"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	dErrors "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain-errors"
)

// DefaultTTL applies to every generated record.
const DefaultTTL = 3600

// Provider names a supported email provider preset.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
	ProviderSendgrid  Provider = "sendgrid"
)

// ParseProvider validates an email provider name.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGoogle, ProviderMicrosoft, ProviderSendgrid:
		return p, nil
	default:
		return "", dErrors.Newf(dErrors.CodeConfiguration, "unsupported email provider %q", s)
	}
}

// DMARCPolicy is the receiver-side disposition for failing mail.
type DMARCPolicy string

const (
	PolicyNone       DMARCPolicy = "none"
	PolicyQuarantine DMARCPolicy = "quarantine"
	PolicyReject     DMARCPolicy = "reject"
)

// ParseDMARCPolicy validates a DMARC policy name.
func ParseDMARCPolicy(s string) (DMARCPolicy, error) {
	switch p := DMARCPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyNone, PolicyQuarantine, PolicyReject:
		return p, nil
	default:
		return "", dErrors.Newf(dErrors.CodeBadRequest, "unsupported DMARC policy %q", s)
	}
}

var spfByProvider = map[Provider]string{
	ProviderGoogle:    "v=spf1 include:_spf.google.com ~all",
	ProviderMicrosoft: "v=spf1 include:spf.protection.outlook.com ~all",
	ProviderSendgrid:  "v=spf1 include:sendgrid.net ~all",
}

type mxTarget struct {
	priority int
	host     string
}

var mxByProvider = map[Provider][]mxTarget{
	ProviderGoogle: {
		{1, "aspmx.l.google.com"},
		{5, "alt1.aspmx.l.google.com"},
		{5, "alt2.aspmx.l.google.com"},
		{10, "alt3.aspmx.l.google.com"},
		{10, "alt4.aspmx.l.google.com"},
	},
	// The outlook MX host is derived per domain, see mxRecords.
	ProviderMicrosoft: nil,
	// Sendgrid only sends; inbound MX stays with whoever hosts it.
	ProviderSendgrid: nil,
}

// Options selects which records to generate and with what values.
type Options struct {
	Domain   string
	Provider Provider

	// DKIM is generated only when a public key is present; the selector
	// defaults to the provider name.
	DKIMSelector  string
	DKIMPublicKey string

	// DMARC is always generated. Policy defaults to none, Percent to 100.
	DMARCPolicy     DMARCPolicy
	DMARCReportAddr string
	DMARCPercent    int

	// BIMI is generated only when a logo URL is present.
	BIMILogoURL string
	BIMIVMCURL  string

	IncludeMX bool
}

// Setup is the generated record set. Optional records are nil when their
// inputs were absent.
type Setup struct {
	SPF   registrar.Record
	DKIM  *registrar.Record
	DMARC registrar.Record
	BIMI  *registrar.Record
	MX    []registrar.Record
}

// Records flattens the setup in a fixed order: SPF, DKIM, DMARC, BIMI, MX.
func (s Setup) Records() []registrar.Record {
	records := []registrar.Record{s.SPF}
	if s.DKIM != nil {
		records = append(records, *s.DKIM)
	}
	records = append(records, s.DMARC)
	if s.BIMI != nil {
		records = append(records, *s.BIMI)
	}
	return append(records, s.MX...)
}

// Generate builds the record set for the options. No I/O.
func Generate(opts Options) (Setup, error) {
	domain := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(opts.Domain, ".")))
	if domain == "" {
		return Setup{}, dErrors.New(dErrors.CodeBadRequest, "domain is required")
	}
	provider, err := ParseProvider(string(opts.Provider))
	if err != nil {
		return Setup{}, err
	}
	policy := opts.DMARCPolicy
	if policy == "" {
		policy = PolicyNone
	}
	if _, err := ParseDMARCPolicy(string(policy)); err != nil {
		return Setup{}, err
	}
	percent := opts.DMARCPercent
	if percent == 0 {
		percent = 100
	}
	if percent < 1 || percent > 100 {
		return Setup{}, dErrors.New(dErrors.CodeBadRequest, "DMARC percent must be between 1 and 100")
	}

	setup := Setup{
		SPF:   txt(domain, spfByProvider[provider]),
		DMARC: txt("_dmarc."+domain, dmarcContent(policy, opts.DMARCReportAddr, percent)),
	}

	if opts.DKIMPublicKey != "" {
		selector := opts.DKIMSelector
		if selector == "" {
			selector = string(provider)
		}
		rec := txt(
			fmt.Sprintf("%s._domainkey.%s", selector, domain),
			fmt.Sprintf("v=DKIM1; k=rsa; p=%s", opts.DKIMPublicKey),
		)
		setup.DKIM = &rec
	}

	if opts.BIMILogoURL != "" {
		content := fmt.Sprintf("v=BIMI1; l=%s", opts.BIMILogoURL)
		if opts.BIMIVMCURL != "" {
			content += fmt.Sprintf("; a=%s", opts.BIMIVMCURL)
		}
		rec := txt("default._bimi."+domain, content)
		setup.BIMI = &rec
	}

	if opts.IncludeMX {
		setup.MX = mxRecords(provider, domain)
	}

	return setup, nil
}

func txt(name, content string) registrar.Record {
	return registrar.Record{
		Type:    registrar.RecordTXT,
		Name:    name,
		Content: content,
		TTL:     DefaultTTL,
	}
}

func dmarcContent(policy DMARCPolicy, reportAddr string, percent int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "v=DMARC1; p=%s", policy)
	if reportAddr != "" {
		fmt.Fprintf(&b, "; rua=mailto:%s", reportAddr)
	}
	fmt.Fprintf(&b, "; pct=%d", percent)
	return b.String()
}

func mxRecords(provider Provider, domain string) []registrar.Record {
	targets := mxByProvider[provider]
	if provider == ProviderMicrosoft {
		targets = []mxTarget{{0, strings.ReplaceAll(domain, ".", "-") + ".mail.protection.outlook.com"}}
	}
	if len(targets) == 0 {
		return nil
	}
	records := make([]registrar.Record, len(targets))
	for i, target := range targets {
		priority := target.priority
		records[i] = registrar.Record{
			Type:     registrar.RecordMX,
			Name:     domain,
			Content:  target.host,
			TTL:      DefaultTTL,
			Priority: &priority,
		}
	}
	return records
}
