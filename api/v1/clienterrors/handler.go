package clienterrors

import (
	"strconv"

	"urltracker/internal/httpx"
	"urltracker/internal/model"
	"urltracker/internal/service"
	"urltracker/internal/store"

	"github.com/gin-gonic/gin"
)

// Handler exposes the tracked miss records and the ignore list
type Handler struct {
	clientErrors *service.ClientErrors
}

// NewHandler creates a handler instance
func NewHandler(clientErrors *service.ClientErrors) *Handler {
	return &Handler{clientErrors: clientErrors}
}

func parseOrder(s string) store.OrderBy {
	switch s {
	case "lastOccurrence":
		return store.OrderByLastOccurrence
	case "occurrences":
		return store.OrderByOccurrences
	default:
		return store.OrderByCreated
	}
}

// List returns a page of non-ignored miss records with aggregates
// GET /api/v1/client-errors
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "15"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 15
	}
	search := c.Query("search")
	order := parseOrder(c.DefaultQuery("orderBy", "lastOccurrence"))
	descending := c.DefaultQuery("order", "desc") != "asc"

	items, total, err := h.clientErrors.List((page-1)*pageSize, pageSize, search, order, descending)
	if err != nil {
		httpx.FailErr(c, httpx.FromServiceError(err))
		return
	}

	httpx.OKItems(c, items, total, page, pageSize)
}

// IDRequest carries a single record id
type IDRequest struct {
	ID int `json:"id" binding:"required"`
}

// Ignore hides a miss record from listings
// POST /api/v1/client-errors/ignore
func (h *Handler) Ignore(c *gin.Context) {
	var req IDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamMissing("invalid request"))
		return
	}
	if err := h.clientErrors.Ignore(req.ID); err != nil {
		httpx.FailErr(c, httpx.FromServiceError(err))
		return
	}
	httpx.OK(c, nil)
}

// Unignore brings a hidden miss record back into listings
// POST /api/v1/client-errors/unignore
func (h *Handler) Unignore(c *gin.Context) {
	var req IDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamMissing("invalid request"))
		return
	}
	if err := h.clientErrors.Unignore(req.ID); err != nil {
		httpx.FailErr(c, httpx.FromServiceError(err))
		return
	}
	httpx.OK(c, nil)
}

// DeleteRequest is the delete payload
type DeleteRequest struct {
	IDs []int `json:"ids" binding:"required,min=1"`
}

// Delete removes miss records and their occurrence history
// POST /api/v1/client-errors/delete
func (h *Handler) Delete(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamMissing("invalid request"))
		return
	}

	for _, id := range req.IDs {
		if err := h.clientErrors.Delete(id); err != nil {
			httpx.FailErr(c, httpx.FromServiceError(err))
			return
		}
	}

	httpx.OK(c, nil)
}

// ListIgnoreRules returns all ignore list entries
// GET /api/v1/client-errors/ignore-rules
func (h *Handler) ListIgnoreRules(c *gin.Context) {
	rules, err := h.clientErrors.ListIgnoreRules()
	if err != nil {
		httpx.FailErr(c, httpx.FromServiceError(err))
		return
	}
	httpx.OK(c, gin.H{"items": rules, "total": len(rules)})
}

// IgnoreRuleRequest is the ignore rule create payload
type IgnoreRuleRequest struct {
	Path    *string `json:"path"`
	Pattern *string `json:"pattern"`
	Notes   string  `json:"notes"`
}

// CreateIgnoreRule adds an ignore list entry
// POST /api/v1/client-errors/ignore-rules/create
func (h *Handler) CreateIgnoreRule(c *gin.Context) {
	var req IgnoreRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamMissing("invalid request"))
		return
	}

	rule := model.IgnoreRule{
		Path:    req.Path,
		Pattern: req.Pattern,
		Notes:   req.Notes,
	}
	if err := h.clientErrors.AddIgnoreRule(&rule); err != nil {
		httpx.FailErr(c, httpx.FromServiceError(err))
		return
	}

	httpx.OK(c, gin.H{"item": rule})
}

// DeleteIgnoreRule removes an ignore list entry
// POST /api/v1/client-errors/ignore-rules/delete
func (h *Handler) DeleteIgnoreRule(c *gin.Context) {
	var req IDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamMissing("invalid request"))
		return
	}
	if err := h.clientErrors.RemoveIgnoreRule(req.ID); err != nil {
		httpx.FailErr(c, httpx.FromServiceError(err))
		return
	}
	httpx.OK(c, nil)
}
