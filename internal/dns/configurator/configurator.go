// Package configurator applies a generated DNS record set through a
// registrar's optional DNS capability and records the per-record outcome.
package configurator

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/audit"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/dns/generator"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/metrics"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/models"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
	dErrors "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain-errors"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/circuit"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/sentinel"
)

// Status is the aggregate answer for one configuration run.
type Status string

const (
	StatusConfigured Status = "configured"
	StatusPartial    Status = "partial"
	StatusPending    Status = "pending"
)

// RecordKind names which authentication concern a record serves.
type RecordKind string

const (
	KindSPF   RecordKind = "spf"
	KindDKIM  RecordKind = "dkim"
	KindDMARC RecordKind = "dmarc"
	KindBIMI  RecordKind = "bimi"
	KindMX    RecordKind = "mx"
)

// Outcome reports one record's apply attempt. Partial success is never
// collapsed into a boolean: callers always get the full list.
type Outcome struct {
	Kind    RecordKind       `json:"kind"`
	Record  registrar.Record `json:"record"`
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	Total      int    `json:"total"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
	Status     Status `json:"status"`
}

// Result is the full configuration answer. ManualRecords is populated, and
// Outcomes empty, when the registrar cannot manage DNS: the user has to
// create the records at their DNS host themselves.
type Result struct {
	Domain        string             `json:"domain"`
	Outcomes      []Outcome          `json:"results"`
	Summary       Summary            `json:"summary"`
	ManualRecords []registrar.Record `json:"manualRecords,omitempty"`
}

// Options selects what to configure for a domain.
type Options struct {
	Provider        generator.Provider    `json:"emailProvider"`
	DKIMSelector    string                `json:"dkimSelector,omitempty"`
	DKIMPublicKey   string                `json:"dkimPublicKey,omitempty"`
	DMARCPolicy     generator.DMARCPolicy `json:"dmarcPolicy,omitempty"`
	DMARCReportAddr string                `json:"dmarcReportAddr,omitempty"`
	DMARCPercent    int                   `json:"dmarcPercent,omitempty"`
	BIMILogoURL     string                `json:"bimiLogoUrl,omitempty"`
	BIMIVMCURL      string                `json:"bimiVmcUrl,omitempty"`
	IncludeMX       bool                  `json:"includeMx"`
}

type DomainStore interface {
	GetByID(ctx context.Context, orgID id.OrganizationID, domainID id.DomainID) (*models.Domain, error)
	UpdateDNSOutcome(ctx context.Context, domainID id.DomainID, update models.DNSOutcomeUpdate) error
}

type CredentialStore interface {
	Get(ctx context.Context, orgID id.OrganizationID, typ registrar.Type) (registrar.Credentials, error)
}

type ClientFactory interface {
	Client(creds registrar.Credentials) (registrar.Client, error)
}

type AuditEmitter interface {
	Emit(ctx context.Context, base audit.Event)
}

// Configurator runs the configuration workflow.
type Configurator struct {
	domains     DomainStore
	credentials CredentialStore
	factory     ClientFactory
	logger      *slog.Logger
	auditor     AuditEmitter
	metrics     *metrics.Metrics
}

type Option func(c *Configurator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Configurator) {
		c.logger = logger
	}
}

func WithAuditEmitter(auditor AuditEmitter) Option {
	return func(c *Configurator) {
		c.auditor = auditor
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Configurator) {
		c.metrics = m
	}
}

// New constructs a Configurator.
func New(domains DomainStore, credentials CredentialStore, factory ClientFactory, opts ...Option) *Configurator {
	c := &Configurator{domains: domains, credentials: credentials, factory: factory}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Configure generates the desired record set and applies each record
// independently: one record's failure never aborts the rest. The outcome is
// persisted via a field-level write that never touches health columns.
func (c *Configurator) Configure(ctx context.Context, orgID id.OrganizationID, domainID id.DomainID, opts Options) (*Result, error) {
	d, err := c.domains.GetByID(ctx, orgID, domainID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "domain not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
	}

	setup, err := generator.Generate(generator.Options{
		Domain:          d.Name,
		Provider:        opts.Provider,
		DKIMSelector:    opts.DKIMSelector,
		DKIMPublicKey:   opts.DKIMPublicKey,
		DMARCPolicy:     opts.DMARCPolicy,
		DMARCReportAddr: opts.DMARCReportAddr,
		DMARCPercent:    opts.DMARCPercent,
		BIMILogoURL:     opts.BIMILogoURL,
		BIMIVMCURL:      opts.BIMIVMCURL,
		IncludeMX:       opts.IncludeMX,
	})
	if err != nil {
		return nil, err
	}

	creds, err := c.credentials.Get(ctx, orgID, d.Registrar)
	if err != nil {
		if errors.Is(err, sentinel.ErrNoCredentials) {
			return nil, dErrors.Newf(dErrors.CodeConfiguration, "no %s credentials configured", d.Registrar)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
	}
	client, err := c.factory.Client(creds)
	if err != nil {
		return nil, err
	}

	manager, ok := registrar.AsDNSManager(client)
	if !ok {
		// No DNS capability: hand the desired records back without a
		// single apply call.
		c.incrementStatus(StatusPending)
		return &Result{
			Domain:        d.Name,
			Summary:       Summary{Status: StatusPending},
			ManualRecords: setup.Records(),
		}, nil
	}

	zone, err := manager.EnsureZone(ctx, d.Name)
	if err != nil {
		if errors.Is(err, circuit.ErrOpen) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "registrar temporarily unavailable")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "failed to ensure DNS zone")
	}

	result := c.apply(ctx, manager, zone, d.Name, setup)

	update := outcomeUpdate(string(opts.Provider), setup, result.Outcomes)
	if err := c.domains.UpdateDNSOutcome(ctx, d.ID, update); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist DNS outcome")
	}

	c.incrementStatus(result.Summary.Status)
	c.emit(ctx, d, result.Summary)
	c.logger.InfoContext(ctx, "dns configuration finished",
		slog.String("domain", d.Name),
		slog.String("status", string(result.Summary.Status)),
		slog.Int("successful", result.Summary.Successful),
		slog.Int("failed", result.Summary.Failed))

	return result, nil
}

func (c *Configurator) apply(ctx context.Context, manager registrar.DNSManager, zone registrar.Zone, domain string, setup generator.Setup) *Result {
	existing, err := manager.ListRecords(ctx, zone.ID)
	if err != nil {
		// Upserts degrade to blind creates when the listing fails.
		c.logger.WarnContext(ctx, "could not list existing records",
			slog.String("domain", domain),
			slog.String("error", err.Error()))
		existing = nil
	}

	var outcomes []Outcome
	applyOne := func(kind RecordKind, rec registrar.Record) {
		outcome := Outcome{Kind: kind, Record: rec, Success: true}
		if err := c.upsert(ctx, manager, zone.ID, existing, rec); err != nil {
			outcome.Success = false
			outcome.Error = registrar.ErrorMessage(err)
		}
		outcomes = append(outcomes, outcome)
	}

	applyOne(KindSPF, setup.SPF)
	if setup.DKIM != nil {
		applyOne(KindDKIM, *setup.DKIM)
	}
	applyOne(KindDMARC, setup.DMARC)
	if setup.BIMI != nil {
		applyOne(KindBIMI, *setup.BIMI)
	}
	for _, rec := range setup.MX {
		applyOne(KindMX, rec)
	}

	summary := Summary{Total: len(outcomes)}
	for _, outcome := range outcomes {
		if outcome.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	summary.Status = aggregateStatus(summary)

	return &Result{Domain: domain, Outcomes: outcomes, Summary: summary}
}

// upsert updates a record matching on (type, name), otherwise creates it.
func (c *Configurator) upsert(ctx context.Context, manager registrar.DNSManager, zoneID string, existing []registrar.Record, rec registrar.Record) error {
	for _, candidate := range existing {
		if candidate.Type == rec.Type && candidate.Name == rec.Name && candidate.ID != "" {
			// MX sets carry several records under one name; only replace
			// an exact content match, create otherwise.
			if rec.Type == registrar.RecordMX && candidate.Content != rec.Content {
				continue
			}
			return manager.UpdateRecord(ctx, zoneID, candidate.ID, rec)
		}
	}
	_, err := manager.CreateRecord(ctx, zoneID, rec)
	return err
}

// aggregateStatus collapses a run's counts. All succeeded reads configured,
// nothing attempted reads pending, a one-record batch going 0/1 reads
// partial, a larger batch where every record failed reads pending.
func aggregateStatus(s Summary) Status {
	switch {
	case s.Total == 0:
		return StatusPending
	case s.Failed == 0:
		return StatusConfigured
	case s.Successful > 0 || s.Total == 1:
		return StatusPartial
	default:
		return StatusPending
	}
}

// outcomeUpdate maps per-kind success onto the domain row's configuration
// columns. An MX-only or failed run leaves a concern false rather than
// guessing.
func outcomeUpdate(provider string, setup generator.Setup, outcomes []Outcome) models.DNSOutcomeUpdate {
	update := models.DNSOutcomeUpdate{DNSProvider: provider}
	for _, outcome := range outcomes {
		if !outcome.Success {
			continue
		}
		switch outcome.Kind {
		case KindSPF:
			update.SPFConfigured = true
		case KindDKIM:
			update.DKIMConfigured = true
		case KindDMARC:
			update.DMARCConfigured = true
		case KindBIMI:
			update.BIMIConfigured = true
		}
	}
	if update.DKIMConfigured && setup.DKIM != nil {
		update.DKIMSelector = dkimSelector(setup.DKIM.Name)
	}
	return update
}

// dkimSelector recovers the selector from "<selector>._domainkey.<domain>".
func dkimSelector(name string) string {
	selector, _, _ := strings.Cut(name, ".")
	return selector
}

func (c *Configurator) incrementStatus(status Status) {
	if c.metrics != nil {
		c.metrics.IncrementDNSConfigure(string(status))
	}
}

func (c *Configurator) emit(ctx context.Context, d *models.Domain, summary Summary) {
	if c.auditor == nil {
		return
	}
	outcome := audit.OutcomeSuccess
	switch summary.Status {
	case StatusPartial:
		outcome = audit.OutcomePartial
	case StatusPending:
		outcome = audit.OutcomeFailure
	}
	c.auditor.Emit(ctx, audit.Event{
		OrganizationID: d.OrganizationID,
		Domain:         d.Name,
		Action:         audit.ActionDNSConfigured,
		Registrar:      string(d.Registrar),
		Outcome:        outcome,
	})
}
