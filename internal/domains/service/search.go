package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/models"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
	dErrors "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain-errors"
)

// Offer pairs an availability result with the registrar quoting it.
type Offer struct {
	Registrar registrar.Type         `json:"registrarType"`
	Result    registrar.SearchResult `json:"result"`
}

// SearchAllRegistrars fans the query out to every registrar the organization
// holds credentials for. A registrar that fails outright contributes an empty
// slice rather than failing the whole search; partial answers beat none when
// comparing prices.
func (s *Service) SearchAllRegistrars(ctx context.Context, orgID id.OrganizationID, query string, tlds []string) (map[registrar.Type][]registrar.SearchResult, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveSearchLatency(time.Since(start))
		}
	}()

	if orgID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "organization id is required")
	}
	query = models.NormalizeDomainName(query)
	if query == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "query is required")
	}
	if len(tlds) == 0 {
		tlds = []string{"com", "net", "org"}
	}

	credentialSets, err := s.credentials.List(ctx, orgID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if len(credentialSets) == 0 {
		return nil, dErrors.New(dErrors.CodeConfiguration, "no registrar credentials configured")
	}

	var mu sync.Mutex
	results := make(map[registrar.Type][]registrar.SearchResult, len(credentialSets))

	g, gctx := errgroup.WithContext(ctx)
	for _, creds := range credentialSets {
		g.Go(func() error {
			found := s.searchOne(gctx, creds, query, tlds)
			mu.Lock()
			results[creds.Type] = found
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// searchOne degrades any per-registrar failure to an empty result set.
func (s *Service) searchOne(ctx context.Context, creds registrar.Credentials, query string, tlds []string) []registrar.SearchResult {
	client, err := s.factory.Client(creds)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping registrar: client construction failed",
			slog.String("registrar", string(creds.Type)),
			slog.String("error", err.Error()))
		return nil
	}
	found, err := client.SearchDomains(ctx, query, tlds)
	if err != nil {
		s.logger.WarnContext(ctx, "registrar search failed",
			slog.String("registrar", string(creds.Type)),
			slog.String("error", err.Error()))
		return nil
	}
	return found
}

// BestPrice checks one domain against every credentialed registrar and
// returns the cheapest available offer. Offers without a price cannot be
// compared so they are excluded.
func (s *Service) BestPrice(ctx context.Context, orgID id.OrganizationID, domain string) (Offer, error) {
	domain = models.NormalizeDomainName(domain)
	if err := models.ValidateDomainName(domain); err != nil {
		return Offer{}, err
	}

	credentialSets, err := s.credentials.List(ctx, orgID)
	if err != nil {
		return Offer{}, wrapStoreErr(err)
	}
	if len(credentialSets) == 0 {
		return Offer{}, dErrors.New(dErrors.CodeConfiguration, "no registrar credentials configured")
	}

	var mu sync.Mutex
	offers := make([]Offer, 0, len(credentialSets))

	g, gctx := errgroup.WithContext(ctx)
	for _, creds := range credentialSets {
		g.Go(func() error {
			client, err := s.factory.Client(creds)
			if err != nil {
				s.logger.WarnContext(gctx, "skipping registrar: client construction failed",
					slog.String("registrar", string(creds.Type)),
					slog.String("error", err.Error()))
				return nil
			}
			res, err := client.CheckAvailability(gctx, domain)
			if err != nil {
				s.logger.WarnContext(gctx, "registrar availability check failed",
					slog.String("registrar", string(creds.Type)),
					slog.String("error", err.Error()))
				return nil
			}
			mu.Lock()
			offers = append(offers, Offer{Registrar: client.Name(), Result: res})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Offer{}, err
	}

	best, ok := cheapest(offers)
	if !ok {
		return Offer{}, dErrors.Newf(dErrors.CodeNotFound, "no priced offer for %s", domain)
	}
	return best, nil
}

// cheapest picks the lowest-priced available offer. Ties keep the first
// offer seen.
func cheapest(offers []Offer) (Offer, bool) {
	var best Offer
	found := false
	for _, offer := range offers {
		if !offer.Result.Available || offer.Result.Price == nil {
			continue
		}
		if !found || *offer.Result.Price < *best.Result.Price {
			best = offer
			found = true
		}
	}
	return best, found
}
