package contentevents

import (
	"encoding/json"

	"urltracker/internal/content"
	"urltracker/internal/httpx"
	"urltracker/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

// Handler ingests content lifecycle notifications from the host CMS. The
// node registry is synced first so redirect generation resolves against the
// post-event tree.
type Handler struct {
	events   *service.ContentEvents
	registry *service.NodeRegistry
}

// NewHandler creates a handler instance
func NewHandler(events *service.ContentEvents, registry *service.NodeRegistry) *Handler {
	return &Handler{events: events, registry: registry}
}

// VariantDTO carries one culture's old/new comparison fields
type VariantDTO struct {
	Culture        string          `json:"culture"`
	OldPath        string          `json:"oldPath"`
	OldName        string          `json:"oldName"`
	NewName        string          `json:"newName"`
	OldURLName     string          `json:"oldUrlName"`
	NewURLName     string          `json:"newUrlName"`
	OldSEOMetadata json.RawMessage `json:"oldSeoMetadata"`
	NewSEOMetadata json.RawMessage `json:"newSeoMetadata"`
}

// EventRequest is one lifecycle notification
type EventRequest struct {
	Type        string       `json:"type" binding:"required"`
	NodeID      int          `json:"nodeId" binding:"required"`
	RootNodeID  int          `json:"rootNodeId"`
	OldPath     string       `json:"oldPath"`
	NewPath     string       `json:"newPath"`
	OldParentID int          `json:"oldParentId"`
	NewParentID int          `json:"newParentId"`
	Variants    []VariantDTO `json:"variants"`
}

// Post handles one posted lifecycle event
// POST /api/v1/content-events
func (h *Handler) Post(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamMissing("invalid request"))
		return
	}

	ev := toEvent(req)
	if h.registry != nil {
		if err := h.registry.Apply(ev); err != nil {
			httpx.FailErr(c, httpx.FromServiceError(err))
			return
		}
	}
	if err := h.events.Handle(ev); err != nil {
		httpx.FailErr(c, httpx.FromServiceError(err))
		return
	}

	httpx.OK(c, nil)
}

func toEvent(req EventRequest) content.Event {
	ev := content.Event{
		Type:        content.EventType(req.Type),
		NodeID:      req.NodeID,
		RootNodeID:  req.RootNodeID,
		OldPath:     req.OldPath,
		NewPath:     req.NewPath,
		OldParentID: req.OldParentID,
		NewParentID: req.NewParentID,
	}
	for _, v := range req.Variants {
		ev.Variants = append(ev.Variants, content.CultureVariant{
			Culture:        v.Culture,
			OldPath:        v.OldPath,
			OldName:        v.OldName,
			NewName:        v.NewName,
			OldURLName:     v.OldURLName,
			NewURLName:     v.NewURLName,
			OldSEOMetadata: datatypes.JSON(v.OldSEOMetadata),
			NewSEOMetadata: datatypes.JSON(v.NewSEOMetadata),
		})
	}
	return ev
}
