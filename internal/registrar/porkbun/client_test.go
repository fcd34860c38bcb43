package porkbun

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/circuit"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/retry"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	guard := registrar.NewGuard(circuit.New("porkbun"), retry.Config{MaxAttempts: 1})
	client, err := New(registrar.Credentials{
		Type:      registrar.TypePorkbun,
		APIKey:    "pk-key",
		APISecret: "pk-secret",
		BaseURL:   srv.URL,
	}, guard, srv.Client())
	require.NoError(t, err)
	return client
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestCheckAvailabilityParsesStringlyTypedPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/domain/checkDomain/acme.com", r.URL.Path)

		body := decodeBody(t, r)
		require.Equal(t, "pk-key", body["apikey"])
		require.Equal(t, "pk-secret", body["secretapikey"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "SUCCESS",
			"response": map[string]string{"avail": "yes", "premium": "no", "price": "11.06"},
		})
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv).CheckAvailability(context.Background(), "acme.com")
	require.NoError(t, err)
	require.True(t, result.Available)
	require.False(t, result.Premium)
	require.NotNil(t, result.Price)
	require.Equal(t, 11.06, *result.Price)
	require.Equal(t, "USD", result.Currency)
}

func TestSearchDomainsDegradesFailedChecks(t *testing.T) {
	var mu sync.Mutex
	paths := make(map[string]bool)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths[r.URL.Path] = true
		mu.Unlock()

		if r.URL.Path == "/domain/checkDomain/acme.net" {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ERROR", "message": "rate limited"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "SUCCESS",
			"response": map[string]string{"avail": "yes", "premium": "no", "price": "9.13"},
		})
	}))
	defer srv.Close()

	results, err := newTestClient(t, srv).SearchDomains(context.Background(), "acme", []string{"com", "net"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.True(t, paths["/domain/checkDomain/acme.com"])
	require.True(t, paths["/domain/checkDomain/acme.net"])

	require.Equal(t, "acme.com", results[0].Domain)
	require.True(t, results[0].Available)

	// The failed check reads as unavailable instead of failing the batch.
	require.Equal(t, "acme.net", results[1].Domain)
	require.False(t, results[1].Available)
}

func TestPurchaseParsesNumericOrderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/domain/create/acme.com", r.URL.Path)

		body := decodeBody(t, r)
		require.Equal(t, float64(2), body["years"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     "SUCCESS",
			"orderId":    123456,
			"expireDate": "2028-08-28",
		})
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv).Purchase(context.Background(), registrar.PurchaseRequest{Domain: "acme.com", Years: 2})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "123456", result.OrderID)
	require.NotNil(t, result.ExpiresAt)
	require.Equal(t, time.Date(2028, 8, 28, 0, 0, 0, 0, time.UTC), result.ExpiresAt.UTC())
}

func TestPurchaseErrorStatusFoldsMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ERROR", "message": "Not enough funds in account"})
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv).Purchase(context.Background(), registrar.PurchaseRequest{Domain: "acme.com", Years: 1})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "Not enough funds in account", result.Error)
}

func TestEnsureZoneIsImplicit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("zone setup must not call the API")
	}))
	defer srv.Close()

	zone, err := newTestClient(t, srv).EnsureZone(context.Background(), "acme.com")
	require.NoError(t, err)
	require.Equal(t, registrar.Zone{ID: "acme.com", Name: "acme.com"}, zone)
}

func TestListRecordsParsesStringlyTypedFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/dns/retrieve/acme.com", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "SUCCESS",
			"records": []map[string]string{
				{"id": "1001", "name": "acme.com", "type": "TXT", "content": "v=spf1 ~all", "ttl": "3600", "prio": "0"},
				{"id": "1002", "name": "acme.com", "type": "MX", "content": "mx.example.com", "ttl": "600", "prio": "10"},
			},
		})
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv).ListRecords(context.Background(), "acme.com")
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, registrar.RecordTXT, records[0].Type)
	require.Equal(t, 3600, records[0].TTL)
	require.Nil(t, records[0].Priority)

	require.Equal(t, 600, records[1].TTL)
	require.NotNil(t, records[1].Priority)
	require.Equal(t, 10, *records[1].Priority)
}

func TestCreateRecordSendsZoneRelativeName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/dns/create/acme.com", r.URL.Path)

		body := decodeBody(t, r)
		require.Equal(t, "mail", body["name"])
		require.Equal(t, "TXT", body["type"])
		require.Equal(t, "3600", body["ttl"])

		_ = json.NewEncoder(w).Encode(map[string]any{"status": "SUCCESS", "id": 2001})
	}))
	defer srv.Close()

	id, err := newTestClient(t, srv).CreateRecord(context.Background(), "acme.com", registrar.Record{
		Type:    registrar.RecordTXT,
		Name:    "mail.acme.com",
		Content: "v=spf1 ~all",
		TTL:     3600,
	})
	require.NoError(t, err)
	require.Equal(t, "2001", id)
}

func TestRecordBody(t *testing.T) {
	prio := 5
	tests := []struct {
		name     string
		record   registrar.Record
		wantName string
		wantPrio string
	}{
		{"apex collapses to empty", registrar.Record{Name: "acme.com", Type: registrar.RecordTXT, TTL: 3600}, "", ""},
		{"subdomain trimmed to relative", registrar.Record{Name: "default._bimi.acme.com", Type: registrar.RecordTXT, TTL: 3600}, "default._bimi", ""},
		{"priority stringified", registrar.Record{Name: "acme.com", Type: registrar.RecordMX, TTL: 3600, Priority: &prio}, "", "5"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := recordBody("acme.com", tc.record)
			require.Equal(t, tc.wantName, body["name"])
			if tc.wantPrio == "" {
				require.NotContains(t, body, "prio")
			} else {
				require.Equal(t, tc.wantPrio, body["prio"])
			}
		})
	}
}
