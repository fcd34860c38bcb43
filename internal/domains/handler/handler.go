// Package handler exposes the provisioning workflows over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/dns/configurator"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/dns/health"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/models"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/service"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
	dErrors "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain-errors"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/httputil"
)

// orgHeader carries the caller's organization. Authentication happens
// upstream of this service.
const orgHeader = "X-Org-ID"

// DomainService is the search/purchase surface the handler needs.
type DomainService interface {
	SearchAllRegistrars(ctx context.Context, orgID id.OrganizationID, query string, tlds []string) (map[registrar.Type][]registrar.SearchResult, error)
	BestPrice(ctx context.Context, orgID id.OrganizationID, domain string) (service.Offer, error)
	Purchase(ctx context.Context, orgID id.OrganizationID, req models.PurchaseRequest) (*models.Domain, error)
	PurchaseBatch(ctx context.Context, orgID id.OrganizationID, req service.BatchRequest) (service.BatchResult, error)
	ListDomains(ctx context.Context, orgID id.OrganizationID) ([]*models.Domain, error)
	GetDomain(ctx context.Context, orgID id.OrganizationID, domainID id.DomainID) (*models.Domain, error)
}

// DNSConfigurator is the configuration workflow surface.
type DNSConfigurator interface {
	Configure(ctx context.Context, orgID id.OrganizationID, domainID id.DomainID, opts configurator.Options) (*configurator.Result, error)
}

// HealthService is the validation workflow surface.
type HealthService interface {
	Validate(ctx context.Context, orgID id.OrganizationID, domainID id.DomainID, selector string) (*health.Report, error)
	CheckDomain(ctx context.Context, domain, selector string) (*health.Report, error)
}

// Handler handles domain-provisioning endpoints.
type Handler struct {
	domains      DomainService
	configurator DNSConfigurator
	health       HealthService
	logger       *slog.Logger
}

// New creates a new Handler.
func New(domains DomainService, dns DNSConfigurator, healthSvc HealthService, logger *slog.Logger) *Handler {
	return &Handler{
		domains:      domains,
		configurator: dns,
		health:       healthSvc,
		logger:       logger,
	}
}

// Register mounts the routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/domains", func(r chi.Router) {
		r.Get("/search", h.handleSearch)
		r.Get("/best-price", h.handleBestPrice)
		r.Post("/purchase", h.handlePurchase)
		r.Post("/purchase/batch", h.handlePurchaseBatch)
		r.Get("/", h.handleList)
		r.Route("/{domainID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Post("/dns/configure", h.handleConfigureDNS)
			r.Post("/dns/validate", h.handleValidateDNS)
		})
	})
	r.Get("/api/dns/check", h.handleCheckDNS)
}

func (h *Handler) organization(w http.ResponseWriter, r *http.Request) (id.OrganizationID, bool) {
	orgID, err := id.ParseOrganizationID(r.Header.Get(orgHeader))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing or invalid X-Org-ID header"))
		return id.OrganizationID{}, false
	}
	return orgID, true
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.organization(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	var tlds []string
	if raw := r.URL.Query().Get("tlds"); raw != "" {
		for _, tld := range strings.Split(raw, ",") {
			if tld = strings.TrimSpace(tld); tld != "" {
				tlds = append(tlds, tld)
			}
		}
	}

	results, err := h.domains.SearchAllRegistrars(ctx, orgID, query, tlds)
	if err != nil {
		h.writeServiceError(ctx, w, "domain search failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleBestPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.organization(w, r)
	if !ok {
		return
	}

	offer, err := h.domains.BestPrice(ctx, orgID, r.URL.Query().Get("domain"))
	if err != nil {
		h.writeServiceError(ctx, w, "best price lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, offer)
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.organization(w, r)
	if !ok {
		return
	}

	var req models.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	d, err := h.domains.Purchase(ctx, orgID, req)
	if err != nil {
		h.writeServiceError(ctx, w, "domain purchase failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) handlePurchaseBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.organization(w, r)
	if !ok {
		return
	}

	var req service.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.domains.PurchaseBatch(ctx, orgID, req)
	if err != nil {
		h.writeServiceError(ctx, w, "batch purchase failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.organization(w, r)
	if !ok {
		return
	}

	domains, err := h.domains.ListDomains(ctx, orgID)
	if err != nil {
		h.writeServiceError(ctx, w, "domain list failed", err)
		return
	}
	if domains == nil {
		domains = []*models.Domain{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"domains": domains})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.organization(w, r)
	if !ok {
		return
	}
	domainID, err := id.ParseDomainID(chi.URLParam(r, "domainID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	d, err := h.domains.GetDomain(ctx, orgID, domainID)
	if err != nil {
		h.writeServiceError(ctx, w, "domain fetch failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleConfigureDNS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.organization(w, r)
	if !ok {
		return
	}
	domainID, err := id.ParseDomainID(chi.URLParam(r, "domainID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var opts configurator.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.configurator.Configure(ctx, orgID, domainID, opts)
	if err != nil {
		h.writeServiceError(ctx, w, "dns configuration failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleValidateDNS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.organization(w, r)
	if !ok {
		return
	}
	domainID, err := id.ParseDomainID(chi.URLParam(r, "domainID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.health.Validate(ctx, orgID, domainID, r.URL.Query().Get("selector"))
	if err != nil {
		h.writeServiceError(ctx, w, "dns validation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleCheckDNS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.health.CheckDomain(ctx, r.URL.Query().Get("domain"), r.URL.Query().Get("selector"))
	if err != nil {
		h.writeServiceError(ctx, w, "dns check failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// writeServiceError logs server faults and passes coded errors through to
// the response mapping.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, msg, slog.String("error", err.Error()))
	case dErrors.CodeUpstream, dErrors.CodeUnavailable:
		h.logger.WarnContext(ctx, msg, slog.String("error", err.Error()))
	}
	httputil.WriteError(w, err)
}
