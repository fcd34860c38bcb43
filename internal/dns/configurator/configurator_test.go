package configurator_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/credentials"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/dns/configurator"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/dns/generator"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/models"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/store"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
	dErrors "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain-errors"
)

// fakeDNSClient scripts a registrar with full DNS capability. Records whose
// name is in failNames refuse to apply.
type fakeDNSClient struct {
	name      registrar.Type
	failNames map[string]bool
	zone      registrar.Zone
	existing  []registrar.Record

	created []registrar.Record
	updated []registrar.Record
}

func (c *fakeDNSClient) Name() registrar.Type { return c.name }

func (c *fakeDNSClient) CheckAvailability(_ context.Context, domain string) (registrar.SearchResult, error) {
	return registrar.SearchResult{Domain: domain}, nil
}

func (c *fakeDNSClient) SearchDomains(context.Context, string, []string) ([]registrar.SearchResult, error) {
	return nil, nil
}

func (c *fakeDNSClient) Purchase(_ context.Context, req registrar.PurchaseRequest) (registrar.PurchaseResult, error) {
	return registrar.PurchaseResult{Success: true, Domain: req.Domain, Registrar: c.name}, nil
}

func (c *fakeDNSClient) EnsureZone(_ context.Context, domain string) (registrar.Zone, error) {
	if c.zone.ID == "" {
		c.zone = registrar.Zone{ID: "zone-1", Name: domain}
	}
	return c.zone, nil
}

func (c *fakeDNSClient) ListRecords(context.Context, string) ([]registrar.Record, error) {
	return c.existing, nil
}

func (c *fakeDNSClient) CreateRecord(_ context.Context, _ string, rec registrar.Record) (string, error) {
	if c.failNames[rec.Name] {
		return "", errors.New("record rejected")
	}
	c.created = append(c.created, rec)
	return "rec-" + strconv.Itoa(len(c.created)), nil
}

func (c *fakeDNSClient) UpdateRecord(_ context.Context, _ string, _ string, rec registrar.Record) error {
	if c.failNames[rec.Name] {
		return errors.New("record rejected")
	}
	c.updated = append(c.updated, rec)
	return nil
}

func (c *fakeDNSClient) DeleteRecord(context.Context, string, string) error { return nil }

// fakeBasicClient has no DNS capability at all.
type fakeBasicClient struct{ fakeDNSClient }

func (c *fakeBasicClient) asClient() registrar.Client {
	// Shed the embedded DNS methods by wrapping in a plain struct.
	return basicOnly{c}
}

type basicOnly struct{ inner *fakeBasicClient }

func (b basicOnly) Name() registrar.Type { return b.inner.name }
func (b basicOnly) CheckAvailability(ctx context.Context, domain string) (registrar.SearchResult, error) {
	return b.inner.CheckAvailability(ctx, domain)
}
func (b basicOnly) SearchDomains(ctx context.Context, query string, tlds []string) ([]registrar.SearchResult, error) {
	return b.inner.SearchDomains(ctx, query, tlds)
}
func (b basicOnly) Purchase(ctx context.Context, req registrar.PurchaseRequest) (registrar.PurchaseResult, error) {
	return b.inner.Purchase(ctx, req)
}

type fixedFactory struct {
	client registrar.Client
}

func (f *fixedFactory) Client(registrar.Credentials) (registrar.Client, error) {
	return f.client, nil
}

type ConfiguratorSuite struct {
	suite.Suite
	orgID   id.OrganizationID
	domains *store.MemoryStore
	creds   *credentials.MemoryStore
	row     *models.Domain
}

func TestConfiguratorSuite(t *testing.T) {
	suite.Run(t, new(ConfiguratorSuite))
}

func (s *ConfiguratorSuite) SetupTest() {
	s.orgID = id.OrganizationID(uuid.New())
	s.domains = store.NewMemory()
	s.creds = credentials.NewMemory()

	now := time.Now().UTC()
	s.row = &models.Domain{
		ID:             id.DomainID(uuid.New()),
		OrganizationID: s.orgID,
		Name:           "example.com",
		Registrar:      registrar.TypeCloudflare,
		HealthStatus:   models.HealthPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.Require().NoError(s.domains.Insert(context.Background(), s.row))
	s.Require().NoError(s.creds.Put(context.Background(), s.orgID, registrar.Credentials{
		Type: registrar.TypeCloudflare, APIKey: "k",
	}))
}

func (s *ConfiguratorSuite) configurator(client registrar.Client) *configurator.Configurator {
	return configurator.New(s.domains, s.creds, &fixedFactory{client: client},
		configurator.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func (s *ConfiguratorSuite) TestAllRecordsSucceed() {
	client := &fakeDNSClient{name: registrar.TypeCloudflare}
	result, err := s.configurator(client).Configure(context.Background(), s.orgID, s.row.ID, configurator.Options{
		Provider:      generator.ProviderGoogle,
		DKIMPublicKey: "key",
		IncludeMX:     true,
	})
	s.Require().NoError(err)

	s.Equal(configurator.StatusConfigured, result.Summary.Status)
	s.Equal(result.Summary.Total, result.Summary.Successful)
	s.Zero(result.Summary.Failed)
	// SPF + DKIM + DMARC + 5 google MX records.
	s.Len(result.Outcomes, 8)

	stored, err := s.domains.GetByID(context.Background(), s.orgID, s.row.ID)
	s.Require().NoError(err)
	s.True(stored.SPFConfigured)
	s.True(stored.DKIMConfigured)
	s.Equal("google", stored.DKIMSelector)
	s.True(stored.DMARCConfigured)
	s.Equal("google", stored.DNSProvider)
	// Health fields stay untouched.
	s.Equal(models.HealthPending, stored.HealthStatus)
	s.Nil(stored.LastHealthCheckAt)
}

func (s *ConfiguratorSuite) TestDKIMFailureIsPartialWithoutAborting() {
	client := &fakeDNSClient{
		name:      registrar.TypeCloudflare,
		failNames: map[string]bool{"google._domainkey.example.com": true},
	}
	result, err := s.configurator(client).Configure(context.Background(), s.orgID, s.row.ID, configurator.Options{
		Provider:      generator.ProviderGoogle,
		DKIMPublicKey: "key",
	})
	s.Require().NoError(err)

	s.Equal(configurator.StatusPartial, result.Summary.Status)
	s.Require().Len(result.Outcomes, 3)
	s.True(result.Outcomes[0].Success, "spf")
	s.False(result.Outcomes[1].Success, "dkim")
	s.Equal("record rejected", result.Outcomes[1].Error)
	s.True(result.Outcomes[2].Success, "dmarc applies even after dkim failed")

	stored, err := s.domains.GetByID(context.Background(), s.orgID, s.row.ID)
	s.Require().NoError(err)
	s.True(stored.SPFConfigured)
	s.False(stored.DKIMConfigured)
	s.Empty(stored.DKIMSelector)
	s.True(stored.DMARCConfigured)
}

func (s *ConfiguratorSuite) TestEveryRecordFailingReadsPending() {
	client := &fakeDNSClient{
		name:      registrar.TypeCloudflare,
		failNames: map[string]bool{"example.com": true, "_dmarc.example.com": true},
	}
	result, err := s.configurator(client).Configure(context.Background(), s.orgID, s.row.ID, configurator.Options{
		Provider: generator.ProviderGoogle,
	})
	s.Require().NoError(err)

	// SPF and DMARC both attempted, both failed.
	s.Equal(2, result.Summary.Total)
	s.Equal(configurator.StatusPending, result.Summary.Status)
}

func (s *ConfiguratorSuite) TestNoDNSCapabilityReturnsManualInstructions() {
	basic := &fakeBasicClient{fakeDNSClient{name: registrar.TypeNamecheap}}
	result, err := s.configurator(basic.asClient()).Configure(context.Background(), s.orgID, s.row.ID, configurator.Options{
		Provider:      generator.ProviderGoogle,
		DKIMPublicKey: "key",
	})
	s.Require().NoError(err)

	s.Equal(configurator.StatusPending, result.Summary.Status)
	s.Empty(result.Outcomes)
	s.Len(result.ManualRecords, 3)
	// No apply call of any kind reached the client.
	s.Empty(basic.created)
	s.Empty(basic.updated)

	// Nothing was persisted either.
	stored, err := s.domains.GetByID(context.Background(), s.orgID, s.row.ID)
	s.Require().NoError(err)
	s.False(stored.SPFConfigured)
	s.Empty(stored.DNSProvider)
}

func (s *ConfiguratorSuite) TestExistingRecordsAreUpdatedNotDuplicated() {
	client := &fakeDNSClient{
		name: registrar.TypeCloudflare,
		existing: []registrar.Record{
			{ID: "old-spf", Type: registrar.RecordTXT, Name: "example.com", Content: "v=spf1 -all"},
		},
	}
	result, err := s.configurator(client).Configure(context.Background(), s.orgID, s.row.ID, configurator.Options{
		Provider: generator.ProviderGoogle,
	})
	s.Require().NoError(err)
	s.Equal(configurator.StatusConfigured, result.Summary.Status)

	s.Require().Len(client.updated, 1)
	s.Equal("v=spf1 include:_spf.google.com ~all", client.updated[0].Content)
	// DMARC had no existing record, so it was created.
	s.Require().Len(client.created, 1)
	s.Equal("_dmarc.example.com", client.created[0].Name)
}

func (s *ConfiguratorSuite) TestUnknownDomain() {
	client := &fakeDNSClient{name: registrar.TypeCloudflare}
	_, err := s.configurator(client).Configure(context.Background(), s.orgID, id.DomainID(uuid.New()), configurator.Options{
		Provider: generator.ProviderGoogle,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
