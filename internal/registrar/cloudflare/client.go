// Package cloudflare implements the registrar contract against the
// Cloudflare API: bearer-token JSON/REST scoped to an account. Availability
// is a single bulk call, DNS operations map directly to REST verbs through
// the official SDK, and records carry Cloudflare's per-record proxied flag.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	cf "github.com/cloudflare/cloudflare-go"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/retry"
)

const defaultBaseURL = "https://api.cloudflare.com/client/v4"

// Client talks to Cloudflare. It implements registrar.Client and
// registrar.DNSManager.
type Client struct {
	token     string
	accountID string
	baseURL   string
	http      *http.Client
	api       *cf.API
	guard     registrar.Guard
}

// New builds a Cloudflare client from an API token and account id.
func New(creds registrar.Credentials, guard registrar.Guard, httpClient *http.Client) (*Client, error) {
	baseURL := creds.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	api, err := cf.NewWithAPIToken(creds.APIKey, cf.BaseURL(baseURL), cf.HTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("cloudflare api client: %w", err)
	}

	return &Client{
		token:     creds.APIKey,
		accountID: creds.AccountID,
		baseURL:   baseURL,
		http:      httpClient,
		api:       api,
		guard:     guard,
	}, nil
}

func (c *Client) Name() registrar.Type { return registrar.TypeCloudflare }

// envelope is Cloudflare's standard response wrapper.
type envelope struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result json.RawMessage `json:"result"`
}

type availabilityResult struct {
	Name      string  `json:"name"`
	Available bool    `json:"available"`
	Premium   bool    `json:"premium"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	Period    int     `json:"period"`
}

// CheckAvailability checks a single domain through the bulk endpoint.
func (c *Client) CheckAvailability(ctx context.Context, domain string) (registrar.SearchResult, error) {
	results, err := c.checkAvailability(ctx, []string{domain})
	if err != nil {
		return registrar.SearchResult{}, err
	}
	for _, r := range results {
		if r.Domain == domain {
			return r, nil
		}
	}
	return registrar.SearchResult{Domain: domain, Available: false}, nil
}

// SearchDomains checks query.tld for every TLD. Cloudflare supports bulk
// availability, so this is one guarded call rather than a per-domain fan-out.
func (c *Client) SearchDomains(ctx context.Context, query string, tlds []string) ([]registrar.SearchResult, error) {
	domains := make([]string, 0, len(tlds))
	for _, tld := range tlds {
		domains = append(domains, query+"."+tld)
	}
	return c.checkAvailability(ctx, domains)
}

func (c *Client) checkAvailability(ctx context.Context, domains []string) ([]registrar.SearchResult, error) {
	var raw []availabilityResult
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		body := map[string]any{"domains": domains}
		return c.post(ctx, fmt.Sprintf("/accounts/%s/registrar/domains/availability", c.accountID), body, &raw)
	})
	if err != nil {
		return nil, err
	}

	results := make([]registrar.SearchResult, 0, len(raw))
	for _, r := range raw {
		res := registrar.SearchResult{
			Domain:    r.Name,
			Available: r.Available,
			Currency:  r.Currency,
			Period:    r.Period,
			Premium:   r.Premium,
		}
		if r.Available && r.Price > 0 {
			price := r.Price
			res.Price = &price
		}
		results = append(results, res)
	}
	return results, nil
}

type registrationResult struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Purchase registers a domain. Business failures come back in the result,
// never as an error, so orchestration can record the attempt.
func (c *Client) Purchase(ctx context.Context, req registrar.PurchaseRequest) (registrar.PurchaseResult, error) {
	var raw registrationResult
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		body := map[string]any{"name": req.Domain, "years": req.Years, "auto_renew": false}
		return c.post(ctx, fmt.Sprintf("/accounts/%s/registrar/domains", c.accountID), body, &raw)
	})
	if err != nil {
		return registrar.PurchaseResult{
			Domain:    req.Domain,
			Registrar: registrar.TypeCloudflare,
			Error:     registrar.ErrorMessage(err),
		}, registrar.AsOutcome(err)
	}

	result := registrar.PurchaseResult{
		Success:   true,
		Domain:    req.Domain,
		Registrar: registrar.TypeCloudflare,
		OrderID:   raw.ID,
	}
	if !raw.ExpiresAt.IsZero() {
		expires := raw.ExpiresAt
		result.ExpiresAt = &expires
	}
	return result, nil
}

// EnsureZone finds the zone hosting domain, creating it when absent.
func (c *Client) EnsureZone(ctx context.Context, domain string) (registrar.Zone, error) {
	var zone registrar.Zone
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		id, err := c.api.ZoneIDByName(domain)
		if err == nil {
			zone = registrar.Zone{ID: id, Name: domain}
			return nil
		}

		created, err := c.api.CreateZone(ctx, domain, false, cf.Account{ID: c.accountID}, "full")
		if err != nil {
			return fmt.Errorf("create zone %s: %w", domain, err)
		}
		zone = registrar.Zone{ID: created.ID, Name: created.Name}
		return nil
	})
	return zone, err
}

// ListRecords lists the zone's records in the normalized shape.
func (c *Client) ListRecords(ctx context.Context, zoneID string) ([]registrar.Record, error) {
	var records []registrar.Record
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		raw, _, err := c.api.ListDNSRecords(ctx, cf.ZoneIdentifier(zoneID), cf.ListDNSRecordsParams{})
		if err != nil {
			return err
		}
		records = records[:0]
		for _, r := range raw {
			records = append(records, fromSDK(r))
		}
		return nil
	})
	return records, err
}

// CreateRecord adds one record and returns the provider's record id.
func (c *Client) CreateRecord(ctx context.Context, zoneID string, rec registrar.Record) (string, error) {
	var id string
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		created, err := c.api.CreateDNSRecord(ctx, cf.ZoneIdentifier(zoneID), cf.CreateDNSRecordParams{
			Type:     string(rec.Type),
			Name:     rec.Name,
			Content:  rec.Content,
			TTL:      rec.TTL,
			Priority: priorityPtr(rec.Priority),
			Proxied:  rec.Proxied,
		})
		if err != nil {
			return err
		}
		id = created.ID
		return nil
	})
	return id, err
}

// UpdateRecord replaces an existing record's contents.
func (c *Client) UpdateRecord(ctx context.Context, zoneID, recordID string, rec registrar.Record) error {
	return c.guard.Do(ctx, func(ctx context.Context) error {
		_, err := c.api.UpdateDNSRecord(ctx, cf.ZoneIdentifier(zoneID), cf.UpdateDNSRecordParams{
			ID:       recordID,
			Type:     string(rec.Type),
			Name:     rec.Name,
			Content:  rec.Content,
			TTL:      rec.TTL,
			Priority: priorityPtr(rec.Priority),
			Proxied:  rec.Proxied,
		})
		return err
	})
}

// DeleteRecord removes one record.
func (c *Client) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	return c.guard.Do(ctx, func(ctx context.Context) error {
		return c.api.DeleteDNSRecord(ctx, cf.ZoneIdentifier(zoneID), recordID)
	})
}

func fromSDK(r cf.DNSRecord) registrar.Record {
	rec := registrar.Record{
		ID:      r.ID,
		Type:    registrar.RecordType(r.Type),
		Name:    r.Name,
		Content: r.Content,
		TTL:     r.TTL,
		Proxied: r.Proxied,
	}
	if r.Priority != nil {
		p := int(*r.Priority)
		rec.Priority = &p
	}
	return rec
}

func priorityPtr(p *int) *uint16 {
	if p == nil {
		return nil
	}
	v := uint16(*p)
	return &v
}

// post issues an authenticated JSON request and unwraps Cloudflare's
// response envelope. Upstream statuses surface as retry.StatusError so the
// resilience layer can classify them.
func (c *Client) post(ctx context.Context, path string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &retry.StatusError{Status: resp.StatusCode, Message: "malformed response"}
	}
	if !env.Success || resp.StatusCode >= 400 {
		msg := "request failed"
		if len(env.Errors) > 0 {
			msg = env.Errors[0].Message
		}
		return &retry.StatusError{Status: resp.StatusCode, Message: msg}
	}
	if result != nil {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}
