package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/codyseavey/tcg-market/internal/metrics"
	"github.com/codyseavey/tcg-market/internal/models"
	"github.com/codyseavey/tcg-market/internal/repository"
	"github.com/codyseavey/tcg-market/internal/valuation"
)

// maxValuationAttempts bounds how often a superseded Valuate call restarts
// when the call that replaced it published nothing.
const maxValuationAttempts = 3

// errSuperseded marks a computation cancelled because a newer one started
var errSuperseded = errors.New("valuation superseded by a newer request")

// valuationKey identifies one valuation: a user's collection on a given day
type valuationKey struct {
	userID string
	date   string
}

func keyFor(userID string, asOf time.Time) valuationKey {
	return valuationKey{userID: userID, date: models.DateOf(asOf).Format(time.DateOnly)}
}

type cachedValuation struct {
	seq    uint64
	result models.ValuationResult
}

type flight struct {
	seq    uint64
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// ValuationService fetches a user's holdings and price history and runs the
// valuation engine.
//
// Calls are keyed by user and as-of date. Every Valuate call takes a sequence
// number; starting a newer call for the same key cancels the older one, which
// then waits for the newer result instead of returning zeros. A result is
// only published to the cache if nothing newer (a result for the same key or
// an invalidation of the user) got there first.
type ValuationService struct {
	holdings repository.HoldingsRepository
	prices   repository.PriceRepository
	log      *zap.Logger
	cache    *expirable.LRU[valuationKey, cachedValuation]

	mu          sync.Mutex
	seq         uint64
	inflight    map[valuationKey]flight
	invalidated map[string]uint64
}

// NewValuationService creates a valuation service caching up to cacheSize
// results, each for at most cacheTTL.
func NewValuationService(holdings repository.HoldingsRepository, prices repository.PriceRepository, cacheSize int, cacheTTL time.Duration, log *zap.Logger) (*ValuationService, error) {
	if cacheSize <= 0 {
		return nil, fmt.Errorf("create valuation cache: size must be positive, got %d", cacheSize)
	}
	return &ValuationService{
		holdings:    holdings,
		prices:      prices,
		log:         log,
		cache:       expirable.NewLRU[valuationKey, cachedValuation](cacheSize, nil, cacheTTL),
		inflight:    make(map[valuationKey]flight),
		invalidated: make(map[string]uint64),
	}, nil
}

// Valuate returns the user's collection valuation as of asOf. It never fails:
// a fetch error is logged and yields a zero-valued result, so callers always
// get something to render.
func (s *ValuationService) Valuate(ctx context.Context, userID string, asOf time.Time) models.ValuationResult {
	start := time.Now()
	defer func() { metrics.ValuationDuration.Observe(time.Since(start).Seconds()) }()

	key := keyFor(userID, asOf)
	for attempt := 1; ; attempt++ {
		result, err := s.valuateOnce(ctx, key, asOf)
		if err == nil {
			metrics.ValuationRequestsTotal.WithLabelValues("ok").Inc()
			return result
		}

		if !errors.Is(err, errSuperseded) {
			metrics.ValuationRequestsTotal.WithLabelValues("fetch_error").Inc()
			s.log.Error("valuation failed, returning zero result",
				zap.String("user_id", userID), zap.String("as_of", key.date), zap.Error(err))
			return models.ValuationResult{AsOf: models.DateOf(asOf)}
		}

		metrics.ValuationRequestsTotal.WithLabelValues("superseded").Inc()
		if newer, ok := s.awaitNewer(ctx, key); ok {
			return newer
		}
		if attempt == maxValuationAttempts || ctx.Err() != nil {
			s.log.Warn("valuation kept being superseded, returning zero result",
				zap.String("user_id", userID), zap.String("as_of", key.date), zap.Int("attempts", attempt))
			return models.ValuationResult{AsOf: models.DateOf(asOf)}
		}
	}
}

// valuateOnce runs one registered computation and publishes its result.
// It returns errSuperseded when a newer call or an invalidation won.
func (s *ValuationService) valuateOnce(ctx context.Context, key valuationKey, asOf time.Time) (models.ValuationResult, error) {
	ctx, seq, done := s.begin(ctx, key)
	defer done()

	result, _, err := s.Compute(ctx, key.userID, asOf)
	if err != nil {
		if errors.Is(context.Cause(ctx), errSuperseded) {
			s.log.Debug("valuation superseded", zap.String("user_id", key.userID), zap.Uint64("seq", seq))
			return models.ValuationResult{}, errSuperseded
		}
		return models.ValuationResult{}, err
	}

	if !s.publish(key, seq, result) {
		s.log.Debug("discarding stale valuation", zap.String("user_id", key.userID), zap.Uint64("seq", seq))
		return models.ValuationResult{}, errSuperseded
	}
	return result, nil
}

// awaitNewer waits for the computation currently registered for key, if
// any, and returns what it published.
func (s *ValuationService) awaitNewer(ctx context.Context, key valuationKey) (models.ValuationResult, bool) {
	s.mu.Lock()
	f, ok := s.inflight[key]
	s.mu.Unlock()

	if ok {
		select {
		case <-f.done:
		case <-ctx.Done():
			return models.ValuationResult{}, false
		}
	}
	return s.cachedByKey(key)
}

// Compute runs one valuation and reports errors instead of hiding them.
// It also returns the number of holdings that were valued.
func (s *ValuationService) Compute(ctx context.Context, userID string, asOf time.Time) (models.ValuationResult, int, error) {
	holdings, err := s.holdings.FetchHoldings(ctx, userID)
	if err != nil {
		metrics.ValuationFetchErrorsTotal.WithLabelValues("holdings").Inc()
		return models.ValuationResult{}, 0, err
	}

	upTo := asOf
	history, err := s.prices.FetchPriceHistory(ctx, holdingCardIDs(holdings), &upTo)
	if err != nil {
		metrics.ValuationFetchErrorsTotal.WithLabelValues("prices").Inc()
		return models.ValuationResult{}, 0, err
	}

	return valuation.ComputeVariation(holdings, history, asOf), len(holdings), nil
}

// Cached returns the last published valuation of the user's collection as
// of asOf's date.
func (s *ValuationService) Cached(userID string, asOf time.Time) (models.ValuationResult, bool) {
	return s.cachedByKey(keyFor(userID, asOf))
}

func (s *ValuationService) cachedByKey(key valuationKey) (models.ValuationResult, bool) {
	entry, ok := s.cache.Get(key)
	if !ok {
		metrics.ValuationCacheMisses.Inc()
		return models.ValuationResult{}, false
	}
	metrics.ValuationCacheHits.Inc()
	return entry.result, true
}

// Invalidate drops every cached valuation of the user and cancels the
// computations that started before the call, so data read before a mutation
// is never published.
func (s *ValuationService) Invalidate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.invalidated[userID] = s.seq
	for _, key := range s.cache.Keys() {
		if key.userID == userID {
			s.cache.Remove(key)
		}
	}
	for key, f := range s.inflight {
		if key.userID == userID {
			f.cancel(errSuperseded)
			delete(s.inflight, key)
		}
	}
}

// begin registers a new computation for key and cancels the previous one
func (s *ValuationService) begin(parent context.Context, key valuationKey) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancelCause(parent)
	finished := make(chan struct{})

	s.mu.Lock()
	s.seq++
	seq := s.seq
	if prev, ok := s.inflight[key]; ok {
		prev.cancel(errSuperseded)
	}
	s.inflight[key] = flight{seq: seq, cancel: cancel, done: finished}
	s.mu.Unlock()

	done := func() {
		s.mu.Lock()
		if f, ok := s.inflight[key]; ok && f.seq == seq {
			delete(s.inflight, key)
		}
		s.mu.Unlock()
		cancel(nil)
		close(finished)
	}
	return ctx, seq, done
}

// publish stores result unless a newer result for key or a newer
// invalidation of the user already exists.
func (s *ValuationService) publish(key valuationKey, seq uint64, result models.ValuationResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.invalidated[key.userID] {
		return false
	}
	if existing, ok := s.cache.Peek(key); ok && existing.seq > seq {
		return false
	}
	s.cache.Add(key, cachedValuation{seq: seq, result: result})
	return true
}

func holdingCardIDs(holdings []models.Holding) []string {
	seen := make(map[string]struct{}, len(holdings))
	ids := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if _, ok := seen[h.CardID]; ok {
			continue
		}
		seen[h.CardID] = struct{}{}
		ids = append(ids, h.CardID)
	}
	return ids
}
