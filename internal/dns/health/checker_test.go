package health_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/dns/health"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/models"
)

// scriptedResolver answers lookups from fixed maps; anything absent is
// NXDOMAIN.
type scriptedResolver struct {
	txt   map[string][]string
	mx    map[string][]*net.MX
	hosts map[string][]string
}

func (r *scriptedResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	if records, ok := r.txt[name]; ok {
		return records, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func (r *scriptedResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	if records, ok := r.mx[name]; ok {
		return records, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func (r *scriptedResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	if addrs, ok := r.hosts[host]; ok {
		return addrs, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

func fullyConfigured() *scriptedResolver {
	return &scriptedResolver{
		txt: map[string][]string{
			"example.com":                   {"v=spf1 include:_spf.google.com ~all"},
			"google._domainkey.example.com": {"v=DKIM1; k=rsa; p=MIGf"},
			"_dmarc.example.com":            {"v=DMARC1; p=reject; pct=100"},
		},
		mx: map[string][]*net.MX{
			"example.com": {{Host: "aspmx.l.google.com.", Pref: 1}},
		},
		hosts: map[string][]string{
			"aspmx.l.google.com": {"192.0.2.1"},
		},
	}
}

func TestCheckFullyConfiguredDomainIsHealthy(t *testing.T) {
	checker := health.NewChecker(fullyConfigured())
	report := checker.Check(context.Background(), "Example.COM", "")

	assert.Equal(t, "example.com", report.Domain)
	assert.Equal(t, "google", report.Selector, "selector defaults to google")
	assert.True(t, report.SPF.Valid)
	assert.Equal(t, 25, report.SPF.Score)
	assert.Equal(t, 25, report.DKIM.Score)
	assert.Equal(t, 25, report.DMARC.Score, "p=reject earns full DMARC points")
	assert.Equal(t, 15, report.MX.Score)
	assert.True(t, report.Blacklist.Clean)
	assert.Equal(t, 10, report.Blacklist.Score)
	assert.Equal(t, 100, report.Score)
	assert.Equal(t, models.HealthHealthy, report.Status)
}

func TestCheckBareDomainIsError(t *testing.T) {
	checker := health.NewChecker(&scriptedResolver{})
	report := checker.Check(context.Background(), "example.com", "google")

	assert.False(t, report.SPF.Exists)
	assert.False(t, report.MX.Exists)
	// Nothing resolvable means nothing to blacklist.
	assert.True(t, report.Blacklist.Clean)
	assert.Equal(t, 10, report.Score)
	assert.Equal(t, models.HealthError, report.Status)
}

func TestCheckPartialSetupIsWarning(t *testing.T) {
	resolver := fullyConfigured()
	delete(resolver.txt, "google._domainkey.example.com")
	resolver.txt["_dmarc.example.com"] = []string{"v=DMARC1; p=none"}

	checker := health.NewChecker(resolver)
	report := checker.Check(context.Background(), "example.com", "google")

	// SPF 25 + DKIM 0 + DMARC 12 (p=none) + MX 15 + clean 10.
	assert.Equal(t, 62, report.Score)
	assert.Equal(t, models.HealthWarning, report.Status)
}

func TestCheckSPFWithoutAllQualifierScoresHalf(t *testing.T) {
	resolver := fullyConfigured()
	resolver.txt["example.com"] = []string{"v=spf1 include:_spf.google.com"}

	checker := health.NewChecker(resolver)
	report := checker.Check(context.Background(), "example.com", "google")

	assert.True(t, report.SPF.Exists)
	assert.False(t, report.SPF.Valid)
	assert.Equal(t, 12, report.SPF.Score)
}

func TestCheckDMARCPolicyScaling(t *testing.T) {
	cases := []struct {
		policy string
		score  int
	}{
		{"reject", 25},
		{"quarantine", 20},
		{"none", 12},
	}
	for _, tc := range cases {
		t.Run(tc.policy, func(t *testing.T) {
			resolver := fullyConfigured()
			resolver.txt["_dmarc.example.com"] = []string{"v=DMARC1; p=" + tc.policy}

			report := health.NewChecker(resolver).Check(context.Background(), "example.com", "google")
			assert.Equal(t, tc.score, report.DMARC.Score)
		})
	}
}

func TestCheckBlacklistedMailHost(t *testing.T) {
	resolver := fullyConfigured()
	// 192.0.2.1 reversed is 1.2.0.192; list it on two DNSBLs.
	resolver.hosts["1.2.0.192.zen.spamhaus.org"] = []string{"127.0.0.2"}
	resolver.hosts["1.2.0.192.bl.spamcop.net"] = []string{"127.0.0.2"}

	report := health.NewChecker(resolver).Check(context.Background(), "example.com", "google")

	require.False(t, report.Blacklist.Clean)
	assert.Equal(t, []string{"zen.spamhaus.org", "bl.spamcop.net"}, report.Blacklist.ListedOn)
	assert.Zero(t, report.Blacklist.Score)
	// 100 minus the 10 reputation points.
	assert.Equal(t, 90, report.Score)
	assert.Equal(t, models.HealthHealthy, report.Status)
}

func TestCheckCustomSelector(t *testing.T) {
	resolver := fullyConfigured()
	delete(resolver.txt, "google._domainkey.example.com")
	resolver.txt["pb1._domainkey.example.com"] = []string{"v=DKIM1; p=abc"}

	report := health.NewChecker(resolver).Check(context.Background(), "example.com", "pb1")
	assert.Equal(t, 25, report.DKIM.Score)
	assert.Equal(t, "pb1", report.Selector)
}
