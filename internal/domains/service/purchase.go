package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/audit"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/models"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
	dErrors "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain-errors"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/circuit"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/sentinel"
)

// Purchase registers a domain at the requested registrar and persists the
// resulting row. A domain the organization already owns is a conflict before
// any registrar call is made; the unique constraint catches the concurrent
// race and maps to the same conflict.
func (s *Service) Purchase(ctx context.Context, orgID id.OrganizationID, req models.PurchaseRequest) (*models.Domain, error) {
	if orgID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "organization id is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.domains.GetByName(ctx, orgID, req.Domain); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict, "domain %s already exists", req.Domain)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, wrapStoreErr(err)
	}

	client, err := s.client(ctx, orgID, req.Registrar)
	if err != nil {
		return nil, err
	}

	result, err := client.Purchase(ctx, registrar.PurchaseRequest{Domain: req.Domain, Years: req.Years})
	if err != nil {
		s.incrementPurchase(req.Registrar, "failed")
		if errors.Is(err, circuit.ErrOpen) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "registrar temporarily unavailable")
		}
		return nil, err
	}
	if !result.Success {
		s.incrementPurchase(req.Registrar, "failed")
		s.emit(ctx, audit.Event{
			OrganizationID: orgID,
			Domain:         req.Domain,
			Action:         audit.ActionDomainPurchased,
			Registrar:      string(req.Registrar),
			Outcome:        audit.OutcomeFailure,
			Reason:         result.Error,
		})
		return nil, dErrors.Newf(dErrors.CodeUpstream, "registrar rejected purchase: %s", result.Error)
	}

	now := time.Now().UTC()
	d := &models.Domain{
		ID:             id.DomainID(uuid.New()),
		OrganizationID: orgID,
		Name:           req.Domain,
		Registrar:      req.Registrar,
		HealthStatus:   models.HealthPending,
		AutoPurchased:  true,
		ExpiresAt:      result.ExpiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if d.ExpiresAt == nil {
		expires := now.AddDate(req.Years, 0, 0)
		d.ExpiresAt = &expires
	}

	if err := s.domains.Insert(ctx, d); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.incrementPurchase(req.Registrar, "conflict")
			return nil, dErrors.Newf(dErrors.CodeConflict, "domain %s already exists", req.Domain)
		}
		return nil, wrapStoreErr(err)
	}

	s.incrementPurchase(req.Registrar, "success")
	s.emit(ctx, audit.Event{
		OrganizationID: orgID,
		Domain:         req.Domain,
		Action:         audit.ActionDomainPurchased,
		Registrar:      string(req.Registrar),
		Outcome:        audit.OutcomeSuccess,
	})
	s.logger.InfoContext(ctx, "domain purchased",
		slog.String("domain", req.Domain),
		slog.String("registrar", string(req.Registrar)),
		slog.String("order_id", result.OrderID))

	return d, nil
}

// BatchRequest asks to buy up to Quantity available variants of Base across
// the given TLDs at one registrar.
type BatchRequest struct {
	Base      string         `json:"base"`
	TLDs      []string       `json:"tlds"`
	Quantity  int            `json:"quantity"`
	Years     int            `json:"years"`
	Registrar registrar.Type `json:"registrarType"`
	DryRun    bool           `json:"dryRun"`
}

// BatchResult reports what a batch run found and did. In dry-run mode
// Purchased and Failed stay empty.
type BatchResult struct {
	Candidates []registrar.SearchResult `json:"candidates"`
	Purchased  []*models.Domain         `json:"purchased"`
	Failed     []BatchFailure           `json:"failed,omitempty"`
}

// BatchFailure records one variant that could not be bought.
type BatchFailure struct {
	Domain string `json:"domain"`
	Reason string `json:"reason"`
}

func (r *BatchRequest) validate() error {
	r.Base = models.NormalizeDomainName(r.Base)
	if r.Base == "" {
		return dErrors.New(dErrors.CodeBadRequest, "base name is required")
	}
	if len(r.TLDs) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "at least one tld is required")
	}
	if _, err := registrar.ParseType(string(r.Registrar)); err != nil {
		return err
	}
	if r.Quantity == 0 {
		r.Quantity = 1
	}
	if r.Quantity < 1 || r.Quantity > len(r.TLDs) {
		return dErrors.Newf(dErrors.CodeBadRequest, "quantity must be between 1 and %d", len(r.TLDs))
	}
	if r.Years == 0 {
		r.Years = 1
	}
	if r.Years < 1 || r.Years > 10 {
		return dErrors.New(dErrors.CodeBadRequest, "years must be between 1 and 10")
	}
	return nil
}

// PurchaseBatch checks base×TLD variants for availability and buys the first
// Quantity available ones. One variant failing to purchase does not stop the
// rest; dry-run returns the availability candidates without buying anything.
func (s *Service) PurchaseBatch(ctx context.Context, orgID id.OrganizationID, req BatchRequest) (BatchResult, error) {
	if orgID.IsZero() {
		return BatchResult{}, dErrors.New(dErrors.CodeBadRequest, "organization id is required")
	}
	if err := req.validate(); err != nil {
		return BatchResult{}, err
	}

	client, err := s.client(ctx, orgID, req.Registrar)
	if err != nil {
		return BatchResult{}, err
	}

	candidates, err := client.SearchDomains(ctx, req.Base, req.TLDs)
	if err != nil {
		if errors.Is(err, circuit.ErrOpen) {
			return BatchResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "registrar temporarily unavailable")
		}
		return BatchResult{}, dErrors.Wrap(err, dErrors.CodeUpstream, "availability search failed")
	}

	out := BatchResult{Candidates: candidates}
	if req.DryRun {
		return out, nil
	}

	remaining := req.Quantity
	for _, candidate := range candidates {
		if remaining == 0 {
			break
		}
		if !candidate.Available {
			continue
		}
		d, err := s.Purchase(ctx, orgID, models.PurchaseRequest{
			Domain:    candidate.Domain,
			Registrar: req.Registrar,
			Years:     req.Years,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return out, err
			}
			out.Failed = append(out.Failed, BatchFailure{
				Domain: candidate.Domain,
				Reason: dErrors.MessageOf(err),
			})
			continue
		}
		out.Purchased = append(out.Purchased, d)
		remaining--
	}
	return out, nil
}

func (s *Service) incrementPurchase(typ registrar.Type, result string) {
	if s.metrics != nil {
		s.metrics.IncrementPurchase(string(typ), result)
	}
}
