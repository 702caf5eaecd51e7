package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-market/internal/services"
)

type CardHandler struct {
	catalogService *services.CatalogService
}

func NewCardHandler(catalog *services.CatalogService) *CardHandler {
	return &CardHandler{catalogService: catalog}
}

func (h *CardHandler) SearchCards(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	cards, err := h.catalogService.SearchCards(c.Request.Context(), query, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cards":       cards,
		"total_count": len(cards),
	})
}

func (h *CardHandler) GetCard(c *gin.Context) {
	card, err := h.catalogService.GetCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}
