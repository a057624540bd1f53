package handler

import (
	"net/http"

	"factory_portal_backend/internal/stations/counter"
	"factory_portal_backend/internal/stations/registry"
	"factory_portal_backend/internal/stations/transport"
	"factory_portal_backend/internal/tracking"
	"factory_portal_backend/platform/httpkit"
	"factory_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgStationNotOpen   = "station not open"
)

type Handler struct {
	registry *registry.Registry
	counter  *counter.Counter
	val      *validator.Validator
}

func New(reg *registry.Registry, cnt *counter.Counter, val *validator.Validator) *Handler {
	return &Handler{registry: reg, counter: cnt, val: val}
}

// Open enters a station: loads the catalog, resumes any pending record and
// returns the initial screen state.
func (h *Handler) Open(c *gin.Context) {
	stage, session, ok := h.screen(c)
	if !ok {
		return
	}

	engine, err := h.registry.Open(c.Request.Context(), stage, session)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, engine.View())
}

// View returns the current screen state.
func (h *Handler) View(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	httpkit.OK(c, engine.View())
}

// SetIdentifier validates operator input and checks its backend status.
func (h *Handler) SetIdentifier(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req transport.SetIdentifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if _, err := engine.SetIdentifier(c.Request.Context(), req.Identifier); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, engine.View())
}

// Toggle flips one checklist item.
func (h *Handler) Toggle(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req transport.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := engine.Toggle(req.SectionIndex, req.ItemIndex); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, engine.View())
}

// ClearSection unchecks one section.
func (h *Handler) ClearSection(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req transport.ClearSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := engine.ClearSection(req.SectionIndex); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, engine.View())
}

// ClearAll unchecks the whole screen.
func (h *Handler) ClearAll(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	if err := engine.ClearAll(); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, engine.View())
}

// SetAux sets the stage's color and RAL fields.
func (h *Handler) SetAux(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req transport.SetAuxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	engine.SetAux(req.Color, req.RAL)
	httpkit.OK(c, engine.View())
}

// Finalize runs the operator-confirmed finalize flow.
func (h *Handler) Finalize(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	result, err := engine.Finalize(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Resume loads a specific pending record picked from the pending list.
func (h *Handler) Resume(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req transport.ResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	recordID, err := uuid.Parse(req.RecordID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := engine.Resume(c.Request.Context(), recordID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, engine.View())
}

// Leave saves progress best-effort and releases the screen. Navigation
// always succeeds; the response says whether the save stuck.
func (h *Handler) Leave(c *gin.Context) {
	stage, session, ok := h.screen(c)
	if !ok {
		return
	}

	saved := false
	if engine := h.registry.Get(session.UserID, stage); engine != nil {
		saved = engine.LeaveAndSave(c.Request.Context())
		h.registry.Drop(session.UserID, stage)
	}
	httpkit.OK(c, transport.LeaveResponse{Saved: saved})
}

// Counter returns today's completion count for the operator on this stage.
func (h *Handler) Counter(c *gin.Context) {
	stage, session, ok := h.screen(c)
	if !ok {
		return
	}

	count := h.counter.Today(c.Request.Context(), session.Email, stage)
	httpkit.OK(c, transport.CounterResponse{Stage: string(stage), Count: count})
}

// screen resolves the stage parameter and the authenticated session.
func (h *Handler) screen(c *gin.Context) (tracking.Stage, tracking.Session, bool) {
	stage, err := tracking.ParseStage(c.Param("stage"))
	if err != nil {
		_ = httpkit.HandleError(c, err)
		return "", tracking.Session{}, false
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return "", tracking.Session{}, false
	}

	role := ""
	if roles := identity.Roles(); len(roles) > 0 {
		role = roles[0]
	}

	return stage, tracking.Session{
		UserID: identity.UserID(),
		Email:  identity.Email(),
		Role:   role,
	}, true
}

// engine resolves the live engine for the request's screen.
func (h *Handler) engine(c *gin.Context) (*tracking.Engine, bool) {
	stage, session, ok := h.screen(c)
	if !ok {
		return nil, false
	}

	engine := h.registry.Get(session.UserID, stage)
	if engine == nil {
		httpkit.Error(c, http.StatusConflict, msgStationNotOpen, nil)
		return nil, false
	}
	return engine, true
}
