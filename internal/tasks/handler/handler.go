package handler

import (
	"net/http"
	"strconv"

	"factory_portal_backend/internal/tasks/repository"
	"factory_portal_backend/internal/tasks/service"
	"factory_portal_backend/internal/tasks/transport"
	"factory_portal_backend/internal/tracking"
	"factory_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// ListPending returns the caller's open records across all stages.
func (h *Handler) ListPending(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	tasks, err := h.svc.FetchUserPending(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.PendingTaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, transport.PendingTaskResponse{
			RecordID:   task.RecordID.String(),
			Stage:      string(task.Stage),
			Identifier: task.Identifier,
			Color:      task.Color,
			RAL:        task.RAL,
			DoneCount:  task.DoneCount,
			TotalCount: task.TotalCount,
		})
	}
	httpkit.OK(c, out)
}

// Status reports what the backend knows about an identifier within a
// stage, scoped to the caller. This is the same lookup the station screens
// run; exposing it directly lets the frontend pre-check an identifier
// before opening a station.
func (h *Handler) Status(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	stage, err := tracking.ParseStage(c.Query("stage"))
	if err != nil {
		_ = httpkit.HandleError(c, err)
		return
	}
	identifier := c.Query("identifier")
	if identifier == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	status, err := h.svc.FetchIdentifierStatus(c.Request.Context(), stage, identifier, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.IdentifierStatusResponse{
		Status: string(status.Status),
		Checks: status.Checks,
		Color:  status.Color,
		RAL:    status.RAL,
	}
	if status.RecordID != uuid.Nil {
		resp.RecordID = status.RecordID.String()
	}
	httpkit.OK(c, resp)
}

// Snapshot reads one pending record's checks and aux fields within a
// stage. Records outside the stage or already finalized report exists=false.
func (h *Handler) Snapshot(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	stage, err := tracking.ParseStage(c.Query("stage"))
	if err != nil {
		_ = httpkit.HandleError(c, err)
		return
	}

	result, err := h.svc.FetchSnapshot(c.Request.Context(), stage, recordID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.SnapshotResponse{Exists: result.Exists}
	if result.Exists {
		resp.RecordID = result.Snapshot.RecordID.String()
		resp.Identifier = result.Snapshot.Identifier
		resp.Checks = result.Snapshot.Checks
		resp.Color = result.Snapshot.Color
		resp.RAL = result.Snapshot.RAL
	}
	httpkit.OK(c, resp)
}

// Label renders the record's identifier as a QR code PNG for printed
// stage labels.
func (h *Handler) Label(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	record, err := h.svc.GetRecord(c.Request.Context(), recordID)
	if httpkit.HandleError(c, err) {
		return
	}

	png, err := qrcode.Encode(record.Identifier, qrcode.Medium, 256)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "label generation failed", nil)
		return
	}

	c.Header("Content-Disposition", `inline; filename="label-`+record.Identifier+`.png"`)
	c.Data(http.StatusOK, "image/png", png)
}

// List is the admin listing with filters and pagination.
func (h *Handler) List(c *gin.Context) {
	filter := repository.ListFilter{
		Stage:      c.Query("stage"),
		Status:     c.Query("status"),
		Identifier: c.Query("identifier"),
		Limit:      intQuery(c, "limit", 50),
		Offset:     intQuery(c, "offset", 0),
	}
	if raw := c.Query("createdBy"); raw != "" {
		createdBy, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		filter.CreatedBy = &createdBy
	}

	records, total, err := h.svc.ListRecords(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.RecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toRecordResponse(record))
	}
	httpkit.OK(c, transport.RecordListResponse{
		Records: out,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
}

// Get returns one record for the admin detail view.
func (h *Handler) Get(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	record, err := h.svc.GetRecord(c.Request.Context(), recordID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toRecordResponse(record))
}

func toRecordResponse(record repository.Record) transport.RecordResponse {
	return transport.RecordResponse{
		ID:          record.ID.String(),
		Stage:       record.Stage,
		Identifier:  record.Identifier,
		Color:       record.Color,
		RAL:         record.RAL,
		Checks:      record.Checks,
		Status:      record.Status,
		CreatedBy:   record.CreatedBy.String(),
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
		FinalizedAt: record.FinalizedAt,
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
