package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codyseavey/tcg-market/internal/browse"
	"github.com/codyseavey/tcg-market/internal/metrics"
	"github.com/codyseavey/tcg-market/internal/models"
	"github.com/codyseavey/tcg-market/internal/repository"
	"github.com/codyseavey/tcg-market/internal/valuation"
)

// ErrCardNotFound is returned when a holding references an unknown catalog card
var ErrCardNotFound = errors.New("card not found in catalog")

// CollectionService builds the browsable views of a user's collection and
// applies holding mutations.
type CollectionService struct {
	holdings  repository.HoldingsRepository
	prices    repository.PriceRepository
	catalog   repository.CatalogRepository
	valuation *ValuationService
	log       *zap.Logger
}

func NewCollectionService(
	holdings repository.HoldingsRepository,
	prices repository.PriceRepository,
	catalog repository.CatalogRepository,
	valuation *ValuationService,
	log *zap.Logger,
) *CollectionService {
	return &CollectionService{
		holdings:  holdings,
		prices:    prices,
		catalog:   catalog,
		valuation: valuation,
		log:       log,
	}
}

// EditionGroups returns the user's holdings grouped by edition, filtered and
// sorted by opts. Fetch errors yield an empty list.
func (s *CollectionService) EditionGroups(ctx context.Context, userID string, opts browse.Options) []models.EditionGroup {
	groups, err := s.groups(ctx, userID)
	if err != nil {
		s.log.Error("failed to build edition groups", zap.String("user_id", userID), zap.Error(err))
		return []models.EditionGroup{}
	}
	return browse.Apply(groups, opts)
}

// CardValuations returns one entry per owned card, filtered and sorted by opts
func (s *CollectionService) CardValuations(ctx context.Context, userID string, opts browse.Options) []models.CardValuation {
	groups, err := s.groups(ctx, userID)
	if err != nil {
		s.log.Error("failed to build card valuations", zap.String("user_id", userID), zap.Error(err))
		return []models.CardValuation{}
	}
	cards := valuation.FlattenCards(groups)
	if cards == nil {
		cards = []models.CardValuation{}
	}
	return browse.Apply(cards, opts)
}

func (s *CollectionService) groups(ctx context.Context, userID string) ([]models.EditionGroup, error) {
	holdings, err := s.holdings.FetchHoldings(ctx, userID)
	if err != nil {
		metrics.ValuationFetchErrorsTotal.WithLabelValues("holdings").Inc()
		return nil, err
	}
	if len(holdings) == 0 {
		return []models.EditionGroup{}, nil
	}
	cardIDs := holdingCardIDs(holdings)

	var (
		cards   []models.Card
		history []models.PriceSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if cards, err = s.catalog.FetchCards(gctx, cardIDs); err != nil {
			metrics.ValuationFetchErrorsTotal.WithLabelValues("catalog").Inc()
		}
		return err
	})
	g.Go(func() error {
		var err error
		if history, err = s.prices.FetchPriceHistory(gctx, cardIDs, nil); err != nil {
			metrics.ValuationFetchErrorsTotal.WithLabelValues("prices").Inc()
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	editionIDs := make([]string, 0, len(cards))
	for _, c := range cards {
		editionIDs = append(editionIDs, c.EditionID)
	}
	editions, err := s.catalog.FetchEditions(ctx, editionIDs)
	if err != nil {
		metrics.ValuationFetchErrorsTotal.WithLabelValues("catalog").Inc()
		return nil, err
	}

	return valuation.GroupHoldingsByEdition(holdings, cards, editions, history), nil
}

// AddHolding records a new physical copy of a catalog card
func (s *CollectionService) AddHolding(ctx context.Context, userID string, req models.AddHoldingRequest) (models.MutationResult, error) {
	if _, err := s.catalog.GetCard(ctx, req.CardID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.MutationResult{}, fmt.Errorf("%w: %s", ErrCardNotFound, req.CardID)
		}
		return models.MutationResult{}, err
	}

	holding := models.Holding{
		UserID:    userID,
		CardID:    req.CardID,
		Price:     valuation.ParseJSONPrice(req.Price),
		Condition: models.NormalizeCondition(req.Condition),
		ForSale:   req.ForSale,
	}
	if err := s.holdings.CreateHolding(ctx, &holding); err != nil {
		return models.MutationResult{}, err
	}

	return s.changed(userID, holding, "created"), nil
}

// SetSalePrice sets or clears the manual price of a holding. A request that
// matches the stored values reports Changed=false and leaves caches alone.
func (s *CollectionService) SetSalePrice(ctx context.Context, userID, holdingID string, req models.UpdatePriceRequest) (models.MutationResult, error) {
	holding, err := s.ownedHolding(ctx, userID, holdingID)
	if err != nil {
		return models.MutationResult{}, err
	}

	price := valuation.ParseJSONPrice(req.Price)
	forSale := holding.ForSale
	if req.ForSale != nil {
		forSale = *req.ForSale
	}
	if holding.Status == models.HoldingOwned && sameNullDecimal(holding.Price, price) && holding.ForSale == forSale {
		return s.unchanged(*holding, "price unchanged"), nil
	}

	updated, err := s.holdings.SetPrice(ctx, holdingID, price, &forSale)
	if err != nil {
		return models.MutationResult{}, err
	}
	return s.changed(userID, *updated, "priced"), nil
}

// MarkSold removes a holding from the collection. Selling an already sold
// holding is not an error; it reports Changed=false.
func (s *CollectionService) MarkSold(ctx context.Context, userID, holdingID string) (models.MutationResult, error) {
	if _, err := s.ownedHolding(ctx, userID, holdingID); err != nil {
		return models.MutationResult{}, err
	}

	updated, err := s.holdings.MarkSold(ctx, holdingID)
	if errors.Is(err, repository.ErrAlreadySold) {
		return s.unchanged(*updated, "holding already sold"), nil
	}
	if err != nil {
		return models.MutationResult{}, err
	}
	return s.changed(userID, *updated, "sold"), nil
}

// ownedHolding loads a holding and hides holdings of other users behind
// ErrNotFound.
func (s *CollectionService) ownedHolding(ctx context.Context, userID, holdingID string) (*models.Holding, error) {
	holding, err := s.holdings.GetHolding(ctx, holdingID)
	if err != nil {
		return nil, err
	}
	if holding.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return holding, nil
}

func (s *CollectionService) changed(userID string, holding models.Holding, operation string) models.MutationResult {
	s.valuation.Invalidate(userID)
	metrics.HoldingMutationsTotal.WithLabelValues(operation).Inc()
	s.log.Info("holding mutated",
		zap.String("user_id", userID),
		zap.String("holding_id", holding.ID),
		zap.String("operation", operation))
	return models.MutationResult{Holding: holding, Changed: true, Operation: operation}
}

func (s *CollectionService) unchanged(holding models.Holding, message string) models.MutationResult {
	metrics.HoldingMutationsTotal.WithLabelValues("unchanged").Inc()
	return models.MutationResult{Holding: holding, Changed: false, Operation: "unchanged", Message: message}
}

func sameNullDecimal(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}
