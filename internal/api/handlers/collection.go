package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-market/internal/browse"
	"github.com/codyseavey/tcg-market/internal/models"
	"github.com/codyseavey/tcg-market/internal/services"
)

const cacheHeader = "X-Cache"

type CollectionHandler struct {
	collectionService *services.CollectionService
	valuationService  *services.ValuationService
	snapshotService   *services.SnapshotService
	now               func() time.Time
}

func NewCollectionHandler(collection *services.CollectionService, valuation *services.ValuationService, snapshot *services.SnapshotService) *CollectionHandler {
	return &CollectionHandler{
		collectionService: collection,
		valuationService:  valuation,
		snapshotService:   snapshot,
		now:               time.Now,
	}
}

// GetValue returns the collection's total value and weekly variation.
// ?as_of=YYYY-MM-DD values the collection at a past date; ?refresh=true
// skips the cached result.
func (h *CollectionHandler) GetValue(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	today := models.DateOf(h.now())
	asOf := h.now()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "as_of must be YYYY-MM-DD"})
			return
		}
		if parsed.After(today) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "as_of cannot be in the future"})
			return
		}
		asOf = parsed
	}

	if c.Query("refresh") != "true" {
		if cached, ok := h.valuationService.Cached(userID, asOf); ok {
			c.Header(cacheHeader, "HIT")
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	c.Header(cacheHeader, "MISS")
	c.JSON(http.StatusOK, h.valuationService.Valuate(c.Request.Context(), userID, asOf))
}

// GetEditions returns the collection grouped by edition
func (h *CollectionHandler) GetEditions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.collectionService.EditionGroups(c.Request.Context(), userID, browseOptions(c)))
}

// GetCards returns one valuation entry per owned card
func (h *CollectionHandler) GetCards(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.collectionService.CardValuations(c.Request.Context(), userID, browseOptions(c)))
}

// GetValueHistory returns collection value snapshots for charting
func (h *CollectionHandler) GetValueHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	period := c.DefaultQuery("period", "month")

	history, err := h.snapshotService.GetHistory(c.Request.Context(), userID, period)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// GetLastSnapshot returns the user's most recent value snapshot
func (h *CollectionHandler) GetLastSnapshot(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	snapshot, err := h.snapshotService.GetLastSnapshot(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if snapshot == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshots yet"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// TakeSnapshot records today's value snapshot of the caller's collection
// now, regardless of the configured snapshot hour.
func (h *CollectionHandler) TakeSnapshot(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	snapshot, err := h.snapshotService.SnapshotUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func browseOptions(c *gin.Context) browse.Options {
	return browse.ParseOptions(c.Query("q"), c.Query("sort"), c.Query("order"))
}
