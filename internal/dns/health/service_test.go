package health_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/dns/health"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/models"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/store"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
	dErrors "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain-errors"
)

type mapCache struct {
	reports map[string]*health.Report
	hits    int
}

func newMapCache() *mapCache {
	return &mapCache{reports: map[string]*health.Report{}}
}

func (c *mapCache) Get(_ context.Context, domain, selector string) (*health.Report, bool) {
	report, ok := c.reports[domain+"/"+selector]
	if ok {
		c.hits++
	}
	return report, ok
}

func (c *mapCache) Put(_ context.Context, domain, selector string, report *health.Report) {
	c.reports[domain+"/"+selector] = report
}

func seedDomain(t *testing.T, domains *store.MemoryStore, orgID id.OrganizationID) *models.Domain {
	t.Helper()
	now := time.Now().UTC()
	d := &models.Domain{
		ID:             id.DomainID(uuid.New()),
		OrganizationID: orgID,
		Name:           "example.com",
		Registrar:      registrar.TypeCloudflare,
		DKIMSelector:   "google",
		HealthStatus:   models.HealthPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, domains.Insert(context.Background(), d))
	return d
}

func TestValidateWritesBackOnlyHealthFields(t *testing.T) {
	ctx := context.Background()
	orgID := id.OrganizationID(uuid.New())
	domains := store.NewMemory()
	d := seedDomain(t, domains, orgID)

	svc := health.New(domains, health.NewChecker(fullyConfigured()),
		health.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	report, err := svc.Validate(ctx, orgID, d.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.HealthHealthy, report.Status)
	assert.Equal(t, "google", report.Selector, "selector falls back to the stored row")

	stored, err := domains.GetByID(ctx, orgID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HealthHealthy, stored.HealthStatus)
	require.NotNil(t, stored.LastHealthCheckAt)
	// Configuration-outcome columns stay untouched.
	assert.False(t, stored.SPFConfigured)
	assert.Empty(t, stored.DNSProvider)
}

func TestValidateUnknownDomain(t *testing.T) {
	svc := health.New(store.NewMemory(), health.NewChecker(&scriptedResolver{}),
		health.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := svc.Validate(context.Background(), id.OrganizationID(uuid.New()), id.DomainID(uuid.New()), "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCheckDomainUsesCache(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	svc := health.New(store.NewMemory(), health.NewChecker(fullyConfigured()),
		health.WithCache(cache),
		health.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	first, err := svc.CheckDomain(ctx, "example.com", "google")
	require.NoError(t, err)
	second, err := svc.CheckDomain(ctx, "example.com", "google")
	require.NoError(t, err)

	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first, second)
}

func TestCheckDomainRejectsMalformedName(t *testing.T) {
	svc := health.New(store.NewMemory(), health.NewChecker(&scriptedResolver{}),
		health.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := svc.CheckDomain(context.Background(), "not a domain", "google")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}
