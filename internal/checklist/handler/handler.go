package handler

import (
	"net/http"

	"factory_portal_backend/internal/checklist/repository"
	"factory_portal_backend/internal/checklist/service"
	"factory_portal_backend/internal/checklist/transport"
	"factory_portal_backend/internal/tracking"
	"factory_portal_backend/platform/httpkit"
	"factory_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListItems returns the catalog rows of one stage for the admin screens.
func (h *Handler) ListItems(c *gin.Context) {
	stage, err := tracking.ParseStage(c.Param("stage"))
	if httpkit.HandleError(c, err) {
		return
	}

	items, err := h.svc.ListItems(c.Request.Context(), stage)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	httpkit.OK(c, out)
}

func (h *Handler) CreateItem(c *gin.Context) {
	stage, err := tracking.ParseStage(c.Param("stage"))
	if httpkit.HandleError(c, err) {
		return
	}

	var req transport.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	item, err := h.svc.CreateItem(c.Request.Context(), stage, req.Label, req.Section, req.Position)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toItemResponse(item))
}

func (h *Handler) UpdateItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.UpdateItem(c.Request.Context(), id, req.Label, req.Section, req.Position, *req.Active); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "item updated"})
}

func (h *Handler) DeactivateItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.DeactivateItem(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "item deactivated"})
}

func toItemResponse(item repository.Item) transport.ItemResponse {
	return transport.ItemResponse{
		ID:        item.ID.String(),
		Stage:     item.Stage,
		Label:     item.Label,
		Section:   item.Section,
		Key:       tracking.ColumnKey(item.Label),
		Position:  item.Position,
		Active:    item.Active,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}
