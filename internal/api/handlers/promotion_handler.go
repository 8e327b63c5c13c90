package handlers

import (
	"net/http"
	"strings"

	"github.com/andresuchdata/autopo-reorder/internal/service"
	"github.com/gin-gonic/gin"
)

type PromotionHandler struct {
	service *service.ReorderService
}

func NewPromotionHandler(service *service.ReorderService) *PromotionHandler {
	return &PromotionHandler{service: service}
}

// ListPromotions handles GET /promotions
func (h *PromotionHandler) ListPromotions(c *gin.Context) {
	promotions, err := h.service.Promotions(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to fetch promotions")
		return
	}
	c.JSON(http.StatusOK, promotions)
}

// StartPromotion handles PUT /promotions/:sku
func (h *PromotionHandler) StartPromotion(c *gin.Context) {
	sku := strings.TrimSpace(c.Param("sku"))
	promotion, err := h.service.StartPromotion(c.Request.Context(), sku)
	if err != nil {
		respondError(c, err, "failed to start promotion")
		return
	}
	c.JSON(http.StatusOK, promotion)
}

// EndPromotion handles DELETE /promotions/:sku
func (h *PromotionHandler) EndPromotion(c *gin.Context) {
	sku := strings.TrimSpace(c.Param("sku"))
	promotion, err := h.service.EndPromotion(c.Request.Context(), sku)
	if err != nil {
		respondError(c, err, "failed to end promotion")
		return
	}
	c.JSON(http.StatusOK, promotion)
}
