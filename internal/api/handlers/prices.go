package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-market/internal/services"
)

const defaultPriceHistoryDays = 30

type PriceHandler struct {
	priceService *services.PriceService
}

func NewPriceHandler(priceService *services.PriceService) *PriceHandler {
	return &PriceHandler{
		priceService: priceService,
	}
}

// GetCardPrices returns a card's market price history. ?days=0 returns
// the full history.
func (h *PriceHandler) GetCardPrices(c *gin.Context) {
	cardID := c.Param("id")

	days := defaultPriceHistoryDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a non-negative integer"})
			return
		}
		days = parsed
	}

	history, err := h.priceService.CardPriceHistory(c.Request.Context(), cardID, days)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// GetLatestPrice returns a card's most recent market price
func (h *PriceHandler) GetLatestPrice(c *gin.Context) {
	latest, err := h.priceService.LatestPrice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if latest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no price recorded for card"})
		return
	}
	c.JSON(http.StatusOK, latest)
}
