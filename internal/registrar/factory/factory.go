// Package factory instantiates registrar clients from stored credentials.
package factory

import (
	"net/http"
	"time"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar/cloudflare"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar/namecheap"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar/porkbun"
	dErrors "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain-errors"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/circuit"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/retry"
)

// Factory builds clients wired to the shared breaker registry, so every
// client for the same provider shares one breaker regardless of which
// organization's credentials it runs with.
type Factory struct {
	breakers *circuit.Registry
	retry    retry.Config
	http     *http.Client
}

// Option configures a Factory.
type Option func(*Factory)

// WithHTTPClient overrides the HTTP client used by all registrar clients.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Factory) {
		if c != nil {
			f.http = c
		}
	}
}

// WithRetryConfig overrides the per-call retry configuration.
func WithRetryConfig(cfg retry.Config) Option {
	return func(f *Factory) { f.retry = cfg }
}

// New constructs a Factory around the shared breaker registry.
func New(breakers *circuit.Registry, opts ...Option) *Factory {
	f := &Factory{
		breakers: breakers,
		retry:    retry.DefaultConfig(),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Client builds the variant named by creds.Type. An unsupported type is a
// configuration error, never a transient one.
func (f *Factory) Client(creds registrar.Credentials) (registrar.Client, error) {
	guard := registrar.NewGuard(f.breakers.Get(string(creds.Type)), f.retry)

	switch creds.Type {
	case registrar.TypeCloudflare:
		return cloudflare.New(creds, guard, f.http)
	case registrar.TypeNamecheap:
		return namecheap.New(creds, guard, f.http)
	case registrar.TypePorkbun:
		return porkbun.New(creds, guard, f.http)
	default:
		return nil, dErrors.Newf(dErrors.CodeConfiguration, "unsupported registrar type %q", creds.Type)
	}
}
