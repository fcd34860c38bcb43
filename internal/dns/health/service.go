package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/audit"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/metrics"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/models"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
	dErrors "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain-errors"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/sentinel"
)

type DomainStore interface {
	GetByID(ctx context.Context, orgID id.OrganizationID, domainID id.DomainID) (*models.Domain, error)
	UpdateHealth(ctx context.Context, domainID id.DomainID, update models.HealthUpdate) error
}

// ReportCache holds recent reports so repeated checks of the same domain do
// not hammer resolvers. A miss is never an error.
type ReportCache interface {
	Get(ctx context.Context, domain, selector string) (*Report, bool)
	Put(ctx context.Context, domain, selector string, report *Report)
}

// Service runs the validation workflow: live checks, score, and the health
// field write-back.
type Service struct {
	domains DomainStore
	checker *Checker
	cache   ReportCache
	logger  *slog.Logger
	auditor AuditEmitter
	metrics *metrics.Metrics
}

// AuditEmitter records validation events.
type AuditEmitter interface {
	Emit(ctx context.Context, base audit.Event)
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithCache(cache ReportCache) Option {
	return func(s *Service) {
		s.cache = cache
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
func New(domains DomainStore, checker *Checker, opts ...Option) *Service {
	s := &Service{domains: domains, checker: checker}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// CheckDomain runs (or serves from cache) a validation for a bare domain
// name without touching storage.
func (s *Service) CheckDomain(ctx context.Context, domain, selector string) (*Report, error) {
	domain = models.NormalizeDomainName(domain)
	if err := models.ValidateDomainName(domain); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if report, ok := s.cache.Get(ctx, domain, selector); ok {
			return report, nil
		}
	}
	report := s.checker.Check(ctx, domain, selector)
	if s.cache != nil {
		s.cache.Put(ctx, domain, selector, report)
	}
	return report, nil
}

// Validate runs a live check for a stored domain and writes back only the
// health fields. The domain row's DKIM selector is used when none is given.
func (s *Service) Validate(ctx context.Context, orgID id.OrganizationID, domainID id.DomainID, selector string) (*Report, error) {
	d, err := s.domains.GetByID(ctx, orgID, domainID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "domain not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
	}
	if selector == "" {
		selector = d.DKIMSelector
	}

	report, err := s.CheckDomain(ctx, d.Name, selector)
	if err != nil {
		return nil, err
	}

	if err := s.domains.UpdateHealth(ctx, d.ID, models.HealthUpdate{
		Status:    report.Status,
		CheckedAt: report.CheckedAt,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist health status")
	}

	if s.metrics != nil {
		s.metrics.ObserveHealthScore(string(report.Status), report.Score)
	}
	if s.auditor != nil {
		outcome := audit.OutcomeSuccess
		if report.Status == models.HealthError {
			outcome = audit.OutcomeFailure
		}
		s.auditor.Emit(ctx, audit.Event{
			OrganizationID: orgID,
			Domain:         d.Name,
			Action:         audit.ActionHealthChecked,
			Registrar:      string(d.Registrar),
			Outcome:        outcome,
		})
	}
	s.logger.InfoContext(ctx, "domain health checked",
		slog.String("domain", d.Name),
		slog.Int("score", report.Score),
		slog.String("status", string(report.Status)))

	return report, nil
}

// RedisCache stores reports in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache wraps a connected client. TTL defaults to 15 minutes.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(domain, selector string) string {
	return "dns:health:" + domain + ":" + selector
}

func (c *RedisCache) Get(ctx context.Context, domain, selector string) (*Report, bool) {
	payload, err := c.client.Get(ctx, cacheKey(domain, selector)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "health cache read failed", slog.String("error", err.Error()))
		}
		return nil, false
	}
	var report Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false
	}
	return &report, true
}

func (c *RedisCache) Put(ctx context.Context, domain, selector string, report *Report) {
	payload, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(domain, selector), payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "health cache write failed", slog.String("error", err.Error()))
	}
}
