package redirects

import (
	"bytes"
	"io"
	"strconv"

	"urltracker/internal/csvio"
	"urltracker/internal/httpx"
	"urltracker/internal/model"
	"urltracker/internal/service"
	"urltracker/internal/store"

	"github.com/gin-gonic/gin"
)

// Handler exposes redirect rule CRUD over the mutation service
type Handler struct {
	redirects *service.Redirects
}

// NewHandler creates a handler instance
func NewHandler(redirects *service.Redirects) *Handler {
	return &Handler{redirects: redirects}
}

// RuleDTO is the wire shape of a redirect rule
type RuleDTO struct {
	ID                     int     `json:"id"`
	Key                    string  `json:"key"`
	Culture                *string `json:"culture"`
	RootNodeID             *int    `json:"rootNodeId"`
	SourcePath             *string `json:"sourcePath"`
	SourceRegex            *string `json:"sourceRegex"`
	TargetNodeID           *int    `json:"targetNodeId"`
	TargetRootNodeID       *int    `json:"targetRootNodeId"`
	TargetURL              *string `json:"targetUrl"`
	StatusCode             int     `json:"statusCode"`
	PassThroughQueryString bool    `json:"passThroughQueryString"`
	ForceRedirect          bool    `json:"forceRedirect"`
	Notes                  string  `json:"notes"`
	Reason                 string  `json:"reason"`
	CreatedAt              string  `json:"createdAt"`
	UpdatedAt              string  `json:"updatedAt"`
}

func toDTO(r *model.Redirect) RuleDTO {
	return RuleDTO{
		ID:                     r.ID,
		Key:                    r.Key,
		Culture:                r.Culture,
		RootNodeID:             r.RootNodeID,
		SourcePath:             r.SourcePath,
		SourceRegex:            r.SourceRegex,
		TargetNodeID:           r.TargetNodeID,
		TargetRootNodeID:       r.TargetRootNodeID,
		TargetURL:              r.TargetURL,
		StatusCode:             r.StatusCode,
		PassThroughQueryString: r.PassThroughQueryString,
		ForceRedirect:          r.ForceRedirect,
		Notes:                  r.Notes,
		Reason:                 string(r.Reason),
		CreatedAt:              r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:              r.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// List returns a page of redirect rules
// GET /api/v1/redirects
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
	descending := c.DefaultQuery("order", "desc") != "asc"

	rules, total, err := h.redirects.List((page-1)*pageSize, pageSize, search, store.OrderByCreated, descending)
	if err != nil {
		httpx.FailErr(c, httpx.FromServiceError(err))
		return
	}

	items := make([]RuleDTO, len(rules))
	for i := range rules {
		items[i] = toDTO(&rules[i])
	}
	httpx.OKItems(c, items, total, page, pageSize)
}

// CreateRequest is the create payload
type CreateRequest struct {
	Culture                *string `json:"culture"`
	RootNodeID             *int    `json:"rootNodeId"`
	SourcePath             *string `json:"sourcePath"`
	SourceRegex            *string `json:"sourceRegex"`
	TargetNodeID           *int    `json:"targetNodeId"`
	TargetRootNodeID       *int    `json:"targetRootNodeId"`
	TargetURL              *string `json:"targetUrl"`
	StatusCode             int     `json:"statusCode" binding:"required"`
	PassThroughQueryString bool    `json:"passThroughQueryString"`
	ForceRedirect          bool    `json:"forceRedirect"`
	Notes                  string  `json:"notes"`
}

// Create creates a redirect rule
// POST /api/v1/redirects/create
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamMissing("invalid request"))
		return
	}

	rule := model.Redirect{
		Culture:                req.Culture,
		RootNodeID:             req.RootNodeID,
		SourcePath:             req.SourcePath,
		SourceRegex:            req.SourceRegex,
		TargetNodeID:           req.TargetNodeID,
		TargetRootNodeID:       req.TargetRootNodeID,
		TargetURL:              req.TargetURL,
		StatusCode:             req.StatusCode,
		PassThroughQueryString: req.PassThroughQueryString,
		ForceRedirect:          req.ForceRedirect,
		Notes:                  req.Notes,
		Reason:                 model.ReasonManual,
	}
	if err := h.redirects.Create(&rule); err != nil {
		httpx.FailErr(c, httpx.FromServiceError(err))
		return
	}

	httpx.OK(c, gin.H{"item": toDTO(&rule)})
}

// UpdateRequest is the update payload
type UpdateRequest struct {
	ID int `json:"id" binding:"required"`
	CreateRequest
}

// Update updates a redirect rule
// POST /api/v1/redirects/update
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamMissing("invalid request"))
		return
	}

	existing, err := h.redirects.Get(req.ID)
	if err != nil {
		httpx.FailErr(c, httpx.FromServiceError(err))
		return
	}

	existing.Culture = req.Culture
	existing.RootNodeID = req.RootNodeID
	existing.SourcePath = req.SourcePath
	existing.SourceRegex = req.SourceRegex
	existing.TargetNodeID = req.TargetNodeID
	existing.TargetRootNodeID = req.TargetRootNodeID
	existing.TargetURL = req.TargetURL
	existing.StatusCode = req.StatusCode
	existing.PassThroughQueryString = req.PassThroughQueryString
	existing.ForceRedirect = req.ForceRedirect
	existing.Notes = req.Notes

	if err := h.redirects.Update(existing); err != nil {
		httpx.FailErr(c, httpx.FromServiceError(err))
		return
	}

	httpx.OK(c, nil)
}

// DeleteRequest is the delete payload
type DeleteRequest struct {
	IDs []int `json:"ids" binding:"required,min=1"`
}

// Delete deletes redirect rules
// POST /api/v1/redirects/delete
func (h *Handler) Delete(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamMissing("invalid request"))
		return
	}

	for _, id := range req.IDs {
		if err := h.redirects.Delete(id); err != nil {
			httpx.FailErr(c, httpx.FromServiceError(err))
			return
		}
	}

	httpx.OK(c, nil)
}

// Export streams all redirect rules as a CSV attachment
// GET /api/v1/redirects/export
func (h *Handler) Export(c *gin.Context) {
	total, err := h.redirects.Count()
	if err != nil {
		httpx.FailErr(c, httpx.FromServiceError(err))
		return
	}

	rules, _, err := h.redirects.List(0, int(total), "", store.OrderByCreated, false)
	if err != nil {
		httpx.FailErr(c, httpx.FromServiceError(err))
		return
	}

	var buf bytes.Buffer
	if err := csvio.Export(&buf, rules); err != nil {
		httpx.FailErr(c, httpx.ErrInternalError("failed to export rules", err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="redirects.csv"`)
	c.Data(200, "text/csv", buf.Bytes())
}

// ImportResult summarizes an import run
type ImportResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Import parses a CSV upload and creates the valid rows. Row failures are
// reported per row; they do not abort the rest of the file.
// POST /api/v1/redirects/import
func (h *Handler) Import(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			httpx.FailErr(c, httpx.ErrParamInvalid("failed to open uploaded file"))
			return
		}
		defer f.Close()
		body = f
	}

	rules, rowErrs, err := csvio.Import(body)
	if err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	result := ImportResult{}
	for _, re := range rowErrs {
		result.Failed++
		result.Errors = append(result.Errors, re.Error())
	}
	for i := range rules {
		if err := h.redirects.Create(&rules[i]); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Imported++
	}

	httpx.OK(c, result)
}
