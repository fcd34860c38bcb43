// Package health validates what is actually live in DNS for a domain and
// scores its deliverability. It never touches registrar credentials: the
// configuration workflow records what we tried, this package reports what
// the world sees.
package health

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/models"
)

// Resolver is the subset of net.Resolver the checker needs. Injected so
// tests can script answers.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DefaultBlacklists are the DNSBLs consulted for reputation.
var DefaultBlacklists = []string{
	"zen.spamhaus.org",
	"b.barracudacentral.org",
	"bl.spamcop.net",
	"dnsbl.sorbs.net",
}

// Score weights. A fully healthy domain reaches 100.
const (
	spfPoints       = 25
	dkimPoints      = 25
	dmarcPoints     = 25
	mxPoints        = 15
	blacklistPoints = 10

	healthyThreshold = 80
	warningThreshold = 50
)

// CheckResult reports one record lookup.
type CheckResult struct {
	Exists bool   `json:"exists"`
	Valid  bool   `json:"valid"`
	Record string `json:"record,omitempty"`
	Score  int    `json:"score"`
}

// BlacklistResult reports the DNSBL consultation across the domain's mail
// hosts.
type BlacklistResult struct {
	Checked  int      `json:"checked"`
	ListedOn []string `json:"listedOn,omitempty"`
	Clean    bool     `json:"clean"`
	Score    int      `json:"score"`
}

// Report is the full validation answer for one domain.
type Report struct {
	Domain    string              `json:"domain"`
	Selector  string              `json:"selector"`
	SPF       CheckResult         `json:"spf"`
	DKIM      CheckResult         `json:"dkim"`
	DMARC     CheckResult         `json:"dmarc"`
	MX        CheckResult         `json:"mx"`
	Blacklist BlacklistResult     `json:"blacklist"`
	Score     int                 `json:"score"`
	Status    models.HealthStatus `json:"overall"`
	CheckedAt time.Time           `json:"checkedAt"`
}

// Checker runs live DNS checks against an injected resolver.
type Checker struct {
	resolver   Resolver
	blacklists []string
}

type CheckerOption func(c *Checker)

// WithBlacklists overrides the DNSBLs consulted.
func WithBlacklists(hosts []string) CheckerOption {
	return func(c *Checker) {
		c.blacklists = hosts
	}
}

// NewChecker constructs a Checker. Pass net.DefaultResolver for real
// lookups.
func NewChecker(resolver Resolver, opts ...CheckerOption) *Checker {
	c := &Checker{resolver: resolver, blacklists: DefaultBlacklists}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check resolves all records and computes the score. Selector defaults to
// "google" when empty. Lookup failures read as "record absent", never as an
// error: an unreachable record is exactly what a mail receiver would see.
func (c *Checker) Check(ctx context.Context, domain, selector string) *Report {
	domain = models.NormalizeDomainName(domain)
	if selector == "" {
		selector = "google"
	}

	report := &Report{
		Domain:    domain,
		Selector:  selector,
		SPF:       c.checkSPF(ctx, domain),
		DKIM:      c.checkDKIM(ctx, domain, selector),
		DMARC:     c.checkDMARC(ctx, domain),
		CheckedAt: time.Now().UTC(),
	}
	mx, hosts := c.checkMX(ctx, domain)
	report.MX = mx
	report.Blacklist = c.checkBlacklists(ctx, domain, hosts)

	report.Score = report.SPF.Score + report.DKIM.Score + report.DMARC.Score +
		report.MX.Score + report.Blacklist.Score
	report.Status = statusFor(report.Score)
	return report
}

func statusFor(score int) models.HealthStatus {
	switch {
	case score >= healthyThreshold:
		return models.HealthHealthy
	case score >= warningThreshold:
		return models.HealthWarning
	default:
		return models.HealthError
	}
}

// checkSPF wants one TXT at the apex starting v=spf1. Full points need an
// explicit all qualifier; a record without one scores half.
func (c *Checker) checkSPF(ctx context.Context, domain string) CheckResult {
	records, err := c.resolver.LookupTXT(ctx, domain)
	if err != nil {
		return CheckResult{}
	}
	for _, record := range records {
		if !strings.HasPrefix(record, "v=spf1") {
			continue
		}
		result := CheckResult{Exists: true, Record: record}
		if strings.Contains(record, "~all") || strings.Contains(record, "-all") {
			result.Valid = true
			result.Score = spfPoints
		} else {
			result.Score = spfPoints / 2
		}
		return result
	}
	return CheckResult{}
}

func (c *Checker) checkDKIM(ctx context.Context, domain, selector string) CheckResult {
	name := fmt.Sprintf("%s._domainkey.%s", selector, domain)
	records, err := c.resolver.LookupTXT(ctx, name)
	if err != nil {
		return CheckResult{}
	}
	for _, record := range records {
		if strings.Contains(record, "v=DKIM1") || strings.Contains(record, "p=") {
			return CheckResult{Exists: true, Valid: true, Record: record, Score: dkimPoints}
		}
	}
	return CheckResult{}
}

// checkDMARC scales points by policy strictness: reject full, quarantine
// most, none half.
func (c *Checker) checkDMARC(ctx context.Context, domain string) CheckResult {
	records, err := c.resolver.LookupTXT(ctx, "_dmarc."+domain)
	if err != nil {
		return CheckResult{}
	}
	for _, record := range records {
		if !strings.Contains(record, "v=DMARC1") {
			continue
		}
		result := CheckResult{Exists: true, Valid: true, Record: record}
		switch {
		case strings.Contains(record, "p=reject"):
			result.Score = dmarcPoints
		case strings.Contains(record, "p=quarantine"):
			result.Score = dmarcPoints * 4 / 5
		case strings.Contains(record, "p=none"):
			result.Score = dmarcPoints / 2
		default:
			result.Valid = false
		}
		return result
	}
	return CheckResult{}
}

func (c *Checker) checkMX(ctx context.Context, domain string) (CheckResult, []string) {
	records, err := c.resolver.LookupMX(ctx, domain)
	if err != nil || len(records) == 0 {
		return CheckResult{}, nil
	}
	hosts := make([]string, 0, len(records))
	names := make([]string, 0, len(records))
	for _, mx := range records {
		host := strings.TrimSuffix(mx.Host, ".")
		hosts = append(hosts, host)
		names = append(names, fmt.Sprintf("%d %s", mx.Pref, host))
	}
	return CheckResult{
		Exists: true,
		Valid:  true,
		Record: strings.Join(names, ", "),
		Score:  mxPoints,
	}, hosts
}

// checkBlacklists resolves the mail hosts' addresses and asks each DNSBL
// about them via reversed-IP lookups. NXDOMAIN means not listed; any answer
// means listed. Lookup infrastructure errors read as clean since they say
// nothing about reputation.
func (c *Checker) checkBlacklists(ctx context.Context, domain string, mailHosts []string) BlacklistResult {
	ips := c.mailIPs(ctx, domain, mailHosts)
	listed := map[string]bool{}
	for _, ip := range ips {
		reversed, ok := reverseIPv4(ip)
		if !ok {
			continue
		}
		for _, blacklist := range c.blacklists {
			if listed[blacklist] {
				continue
			}
			if addrs, err := c.resolver.LookupHost(ctx, reversed+"."+blacklist); err == nil && len(addrs) > 0 {
				listed[blacklist] = true
			}
		}
	}

	result := BlacklistResult{Checked: len(c.blacklists), Clean: len(listed) == 0}
	for _, blacklist := range c.blacklists {
		if listed[blacklist] {
			result.ListedOn = append(result.ListedOn, blacklist)
		}
	}
	if result.Clean {
		result.Score = blacklistPoints
	}
	return result
}

// mailIPs collects the IPv4 addresses reputation is attached to: the MX
// hosts when present, otherwise the apex itself. Bounded to keep one check
// from fanning out across a large MX set.
func (c *Checker) mailIPs(ctx context.Context, domain string, mailHosts []string) []string {
	hosts := mailHosts
	if len(hosts) == 0 {
		hosts = []string{domain}
	}
	if len(hosts) > 3 {
		hosts = hosts[:3]
	}

	var ips []string
	for _, host := range hosts {
		addrs, err := c.resolver.LookupHost(ctx, host)
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ip := net.ParseIP(addr); ip != nil && ip.To4() != nil {
				ips = append(ips, addr)
			}
			if len(ips) >= 4 {
				return ips
			}
		}
	}
	return ips
}

// reverseIPv4 turns "192.0.2.1" into "1.2.0.192" for DNSBL queries.
func reverseIPv4(s string) (string, bool) {
	ip := net.ParseIP(s)
	if ip == nil {
		return "", false
	}
	v4 := ip.To4()
	if v4 == nil {
		return "", false
	}
	return fmt.Sprintf("%d.%d.%d.%d", v4[3], v4[2], v4[1], v4[0]), true
}
