package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
	"github.com/andresuchdata/autopo-reorder/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type ReorderHandler struct {
	service *service.ReorderService
	now     func() time.Time
}

func NewReorderHandler(service *service.ReorderService) *ReorderHandler {
	return &ReorderHandler{service: service, now: time.Now}
}

type planRequest struct {
	Date       string `json:"date"`
	Export     bool   `json:"export"`
	Partitions int    `json:"partitions"`
}

// GetPlan handles GET /reorder/plan?date=YYYY-MM-DD
func (h *ReorderHandler) GetPlan(c *gin.Context) {
	today, err := h.parseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.plan(c, today, service.PlanOptions{})
}

// PostPlan handles POST /reorder/plan with an optional JSON body.
func (h *ReorderHandler) PostPlan(c *gin.Context) {
	var req planRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	if req.Partitions < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "partitions must not be negative"})
		return
	}

	today, err := h.parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.plan(c, today, service.PlanOptions{Export: req.Export, Partitions: req.Partitions})
}

func (h *ReorderHandler) plan(c *gin.Context, today time.Time, opts service.PlanOptions) {
	report, err := h.service.Plan(c.Request.Context(), today, opts)
	if err != nil {
		respondError(c, err, "failed to compute reorder plan")
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetItems handles GET /catalog/items
func (h *ReorderHandler) GetItems(c *gin.Context) {
	items, err := h.service.Items(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to fetch catalog items")
		return
	}
	c.JSON(http.StatusOK, items)
}

// parseDate reads a calendar date. An empty value means today.
func (h *ReorderHandler) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		now := h.now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return time.Time{}, errors.New("invalid date, expected YYYY-MM-DD")
	}
	return date, nil
}

// respondError maps service errors onto status codes.
func respondError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrExportUnavailable):
		status, message = http.StatusBadRequest, err.Error()
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": message})
}
