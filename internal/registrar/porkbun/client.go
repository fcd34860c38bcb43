// Package porkbun implements the registrar contract against Porkbun's JSON
// API: every call is a POST whose body carries the apikey/secretapikey pair.
// The API has no bulk operations, so availability is checked one domain at a
// time and multi-TLD search fans out N parallel single-domain checks.
package porkbun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/retry"
)

const defaultBaseURL = "https://api.porkbun.com/api/json/v3"

// Client talks to Porkbun. It implements registrar.Client and
// registrar.DNSManager.
type Client struct {
	apiKey    string
	secretKey string
	baseURL   string
	http      *http.Client
	guard     registrar.Guard
}

// New builds a Porkbun client from the key/secret pair.
func New(creds registrar.Credentials, guard registrar.Guard, httpClient *http.Client) (*Client, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, fmt.Errorf("porkbun: api key and secret are required")
	}

	baseURL := creds.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:    creds.APIKey,
		secretKey: creds.APISecret,
		baseURL:   baseURL,
		http:      httpClient,
		guard:     guard,
	}, nil
}

func (c *Client) Name() registrar.Type { return registrar.TypePorkbun }

type checkResponse struct {
	Response struct {
		Avail   string `json:"avail"`
		Premium string `json:"premium"`
		Price   string `json:"price"`
	} `json:"response"`
}

// CheckAvailability checks one domain; the API offers nothing coarser.
func (c *Client) CheckAvailability(ctx context.Context, domain string) (registrar.SearchResult, error) {
	var parsed checkResponse
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/domain/checkDomain/"+domain, nil, &parsed)
	})
	if err != nil {
		return registrar.SearchResult{}, err
	}

	result := registrar.SearchResult{
		Domain:    domain,
		Available: parsed.Response.Avail == "yes",
		Premium:   parsed.Response.Premium == "yes",
		Currency:  "USD",
		Period:    1,
	}
	if result.Available {
		if price, err := strconv.ParseFloat(parsed.Response.Price, 64); err == nil && price > 0 {
			result.Price = &price
		}
	}
	return result, nil
}

// SearchDomains fans out one availability check per TLD in parallel; a failed
// check degrades to unavailable instead of aborting the batch.
func (c *Client) SearchDomains(ctx context.Context, query string, tlds []string) ([]registrar.SearchResult, error) {
	return registrar.FanOutSearch(ctx, query, tlds, c.CheckAvailability)
}

type createResponse struct {
	OrderID    json.Number `json:"orderId"`
	ExpireDate string      `json:"expireDate"`
}

// Purchase registers a domain. Porkbun failures arrive as SERROR payloads and
// are folded into the result with the API's own message.
func (c *Client) Purchase(ctx context.Context, req registrar.PurchaseRequest) (registrar.PurchaseResult, error) {
	var parsed createResponse
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		body := map[string]any{"years": req.Years}
		return c.post(ctx, "/domain/create/"+req.Domain, body, &parsed)
	})
	if err != nil {
		return registrar.PurchaseResult{
			Domain:    req.Domain,
			Registrar: registrar.TypePorkbun,
			Error:     registrar.ErrorMessage(err),
		}, registrar.AsOutcome(err)
	}

	result := registrar.PurchaseResult{
		Success:   true,
		Domain:    req.Domain,
		Registrar: registrar.TypePorkbun,
		OrderID:   parsed.OrderID.String(),
	}
	if parsed.ExpireDate != "" {
		if expires, err := time.Parse("2006-01-02", parsed.ExpireDate); err == nil {
			result.ExpiresAt = &expires
		}
	}
	if result.ExpiresAt == nil {
		expires := time.Now().UTC().AddDate(req.Years, 0, 0)
		result.ExpiresAt = &expires
	}
	return result, nil
}

// EnsureZone is a no-op for Porkbun: zones are implicit per registered
// domain, so the domain itself is the zone handle.
func (c *Client) EnsureZone(ctx context.Context, domain string) (registrar.Zone, error) {
	return registrar.Zone{ID: domain, Name: domain}, nil
}

type retrieveResponse struct {
	Records []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Type    string `json:"type"`
		Content string `json:"content"`
		TTL     string `json:"ttl"`
		Prio    string `json:"prio"`
	} `json:"records"`
}

// ListRecords lists the domain's records in the normalized shape.
func (c *Client) ListRecords(ctx context.Context, zoneID string) ([]registrar.Record, error) {
	var parsed retrieveResponse
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/dns/retrieve/"+zoneID, nil, &parsed)
	})
	if err != nil {
		return nil, err
	}

	records := make([]registrar.Record, 0, len(parsed.Records))
	for _, r := range parsed.Records {
		rec := registrar.Record{
			ID:      r.ID,
			Type:    registrar.RecordType(r.Type),
			Name:    r.Name,
			Content: r.Content,
		}
		if ttl, err := strconv.Atoi(r.TTL); err == nil {
			rec.TTL = ttl
		}
		if prio, err := strconv.Atoi(r.Prio); err == nil && prio > 0 {
			rec.Priority = &prio
		}
		records = append(records, rec)
	}
	return records, nil
}

type mutateResponse struct {
	ID json.Number `json:"id"`
}

// CreateRecord adds one record and returns Porkbun's numeric id as a string.
func (c *Client) CreateRecord(ctx context.Context, zoneID string, rec registrar.Record) (string, error) {
	var parsed mutateResponse
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/dns/create/"+zoneID, recordBody(zoneID, rec), &parsed)
	})
	if err != nil {
		return "", err
	}
	return parsed.ID.String(), nil
}

// UpdateRecord replaces an existing record's contents.
func (c *Client) UpdateRecord(ctx context.Context, zoneID, recordID string, rec registrar.Record) error {
	return c.guard.Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/dns/edit/"+zoneID+"/"+recordID, recordBody(zoneID, rec), nil)
	})
}

// DeleteRecord removes one record.
func (c *Client) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	return c.guard.Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/dns/delete/"+zoneID+"/"+recordID, nil, nil)
	})
}

// recordBody maps the normalized record onto Porkbun's field names. Porkbun
// wants the name relative to the zone, and stringly-typed numbers.
func recordBody(zone string, rec registrar.Record) map[string]any {
	name := rec.Name
	if name == zone {
		name = ""
	} else if n, ok := strings.CutSuffix(name, "."+zone); ok {
		name = n
	}

	body := map[string]any{
		"name":    name,
		"type":    string(rec.Type),
		"content": rec.Content,
		"ttl":     strconv.Itoa(rec.TTL),
	}
	if rec.Priority != nil {
		body["prio"] = strconv.Itoa(*rec.Priority)
	}
	return body
}

type statusEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// post issues one authenticated call. Porkbun reports business failures with
// "status":"ERROR" inside otherwise-normal responses, so the envelope is
// checked before the payload is decoded.
func (c *Client) post(ctx context.Context, path string, body map[string]any, out any) error {
	payload := map[string]any{
		"apikey":       c.apiKey,
		"secretapikey": c.secretKey,
	}
	for k, v := range body {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env statusEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &retry.StatusError{Status: resp.StatusCode, Message: "malformed response"}
	}
	if env.Status != "SUCCESS" || resp.StatusCode >= 400 {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return &retry.StatusError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
