// Package namecheap implements the registrar contract against Namecheap's
// legacy command API: every operation is one GET with the ApiUser/ApiKey/
// UserName triad in the query string, answered with XML. The response body is
// scanned as text for error markers before the HTTP status is even
// considered, because the API reports most failures inside a 200.
//
// Namecheap has no DNS-management capability here: email DNS always lives at
// a dedicated DNS provider, so this client deliberately does not implement
// registrar.DNSManager.
package namecheap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/retry"
)

const (
	productionURL = "https://api.namecheap.com/xml.response"
	sandboxURL    = "https://api.sandbox.namecheap.com/xml.response"
)

// Client talks to Namecheap. It implements registrar.Client only.
type Client struct {
	apiUser  string
	apiKey   string
	username string
	clientIP string
	baseURL  string
	http     *http.Client
	guard    registrar.Guard
}

// New builds a Namecheap client from the API key triad.
func New(creds registrar.Credentials, guard registrar.Guard, httpClient *http.Client) (*Client, error) {
	if creds.APIUser == "" || creds.APIKey == "" {
		return nil, fmt.Errorf("namecheap: api user and key are required")
	}

	baseURL := creds.BaseURL
	if baseURL == "" {
		if creds.Sandbox {
			baseURL = sandboxURL
		} else {
			baseURL = productionURL
		}
	}
	username := creds.Username
	if username == "" {
		username = creds.APIUser
	}
	clientIP := creds.ClientIP
	if clientIP == "" {
		clientIP = "127.0.0.1"
	}

	return &Client{
		apiUser:  creds.APIUser,
		apiKey:   creds.APIKey,
		username: username,
		clientIP: clientIP,
		baseURL:  baseURL,
		http:     httpClient,
		guard:    guard,
	}, nil
}

func (c *Client) Name() registrar.Type { return registrar.TypeNamecheap }

type checkResponse struct {
	Results []struct {
		Domain                   string `xml:"Domain,attr"`
		Available                bool   `xml:"Available,attr"`
		IsPremiumName            bool   `xml:"IsPremiumName,attr"`
		PremiumRegistrationPrice string `xml:"PremiumRegistrationPrice,attr"`
	} `xml:"CommandResponse>DomainCheckResult"`
}

// CheckAvailability checks a single domain.
func (c *Client) CheckAvailability(ctx context.Context, domain string) (registrar.SearchResult, error) {
	results, err := c.check(ctx, []string{domain})
	if err != nil {
		return registrar.SearchResult{}, err
	}
	for _, r := range results {
		if strings.EqualFold(r.Domain, domain) {
			return r, nil
		}
	}
	return registrar.SearchResult{Domain: domain, Available: false}, nil
}

// SearchDomains checks query.tld for every TLD. The command API accepts a
// comma-separated domain list, so this is one guarded call.
func (c *Client) SearchDomains(ctx context.Context, query string, tlds []string) ([]registrar.SearchResult, error) {
	domains := make([]string, 0, len(tlds))
	for _, tld := range tlds {
		domains = append(domains, query+"."+strings.TrimPrefix(tld, "."))
	}
	return c.check(ctx, domains)
}

func (c *Client) check(ctx context.Context, domains []string) ([]registrar.SearchResult, error) {
	var parsed checkResponse
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		return c.command(ctx, "namecheap.domains.check", url.Values{
			"DomainList": {strings.Join(domains, ",")},
		}, &parsed)
	})
	if err != nil {
		return nil, err
	}

	byName := make(map[string]registrar.SearchResult, len(parsed.Results))
	for _, r := range parsed.Results {
		res := registrar.SearchResult{
			Domain:    strings.ToLower(r.Domain),
			Available: r.Available,
			Premium:   r.IsPremiumName,
			Currency:  "USD",
			Period:    1,
		}
		if r.IsPremiumName {
			if price, err := strconv.ParseFloat(r.PremiumRegistrationPrice, 64); err == nil && price > 0 {
				res.Price = &price
			}
		}
		byName[res.Domain] = res
	}

	// Preserve request order; domains the API dropped read as unavailable.
	results := make([]registrar.SearchResult, 0, len(domains))
	for _, d := range domains {
		if res, ok := byName[strings.ToLower(d)]; ok {
			results = append(results, res)
			continue
		}
		results = append(results, registrar.SearchResult{Domain: strings.ToLower(d)})
	}
	return results, nil
}

type createResponse struct {
	Result struct {
		Domain        string  `xml:"Domain,attr"`
		Registered    bool    `xml:"Registered,attr"`
		OrderID       string  `xml:"OrderID,attr"`
		TransactionID string  `xml:"TransactionID,attr"`
		ChargedAmount float64 `xml:"ChargedAmount,attr"`
	} `xml:"CommandResponse>DomainCreateResult"`
}

// Purchase registers a domain for the requested term. Registration failures
// come back inside the result with Namecheap's own error text.
func (c *Client) Purchase(ctx context.Context, req registrar.PurchaseRequest) (registrar.PurchaseResult, error) {
	var parsed createResponse
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		return c.command(ctx, "namecheap.domains.create", url.Values{
			"DomainName": {req.Domain},
			"Years":      {strconv.Itoa(req.Years)},
		}, &parsed)
	})
	if err != nil {
		return registrar.PurchaseResult{
			Domain:    req.Domain,
			Registrar: registrar.TypeNamecheap,
			Error:     registrar.ErrorMessage(err),
		}, registrar.AsOutcome(err)
	}

	if !parsed.Result.Registered {
		return registrar.PurchaseResult{
			Domain:    req.Domain,
			Registrar: registrar.TypeNamecheap,
			Error:     "domain was not registered",
		}, nil
	}

	expires := time.Now().UTC().AddDate(req.Years, 0, 0)
	return registrar.PurchaseResult{
		Success:   true,
		Domain:    req.Domain,
		Registrar: registrar.TypeNamecheap,
		OrderID:   parsed.Result.OrderID,
		ExpiresAt: &expires,
	}, nil
}

// command issues one API command and decodes the XML response into out. The
// body is scanned for Namecheap's error markers first: the API answers 200
// for most failures, so text markers outrank the HTTP status.
func (c *Client) command(ctx context.Context, command string, params url.Values, out any) error {
	query := url.Values{
		"ApiUser":  {c.apiUser},
		"ApiKey":   {c.apiKey},
		"UserName": {c.username},
		"ClientIp": {c.clientIP},
		"Command":  {command},
	}
	for key, vals := range params {
		query[key] = vals
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	body := string(data)

	if strings.Contains(body, `Status="ERROR"`) || strings.Contains(body, "<Error ") {
		return &retry.StatusError{Status: resp.StatusCode, Message: extractError(body)}
	}
	if resp.StatusCode >= 400 {
		return &retry.StatusError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if out != nil {
		if err := xml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s response: %w", command, err)
		}
	}
	return nil
}

// extractError pulls the first <Error>...</Error> text out of an error
// response without a full parse, since error payloads are tiny and flat.
func extractError(body string) string {
	start := strings.Index(body, "<Error ")
	if start < 0 {
		return "api returned an error"
	}
	open := strings.Index(body[start:], ">")
	if open < 0 {
		return "api returned an error"
	}
	rest := body[start+open+1:]
	end := strings.Index(rest, "</Error>")
	if end < 0 {
		return "api returned an error"
	}
	msg := strings.TrimSpace(rest[:end])
	if msg == "" {
		return "api returned an error"
	}
	return msg
}
