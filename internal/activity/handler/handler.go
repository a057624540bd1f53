package handler

import (
	"net/http"
	"strconv"
	"time"

	"factory_portal_backend/internal/activity/repository"
	"factory_portal_backend/internal/activity/service"
	"factory_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

type entryResponse struct {
	ID         int64      `json:"id"`
	EventType  string     `json:"eventType"`
	Stage      string     `json:"stage,omitempty"`
	Identifier string     `json:"identifier,omitempty"`
	RecordID   *uuid.UUID `json:"recordId,omitempty"`
	UserID     *uuid.UUID `json:"userId,omitempty"`
	UserEmail  string     `json:"userEmail,omitempty"`
	Detail     string     `json:"detail,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}

type searchResponse struct {
	Entries []entryResponse `json:"entries"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// Search is the admin activity search with filters, sorting and pagination.
func (h *Handler) Search(c *gin.Context) {
	sortBy, ok := repository.ParseSortColumn(c.Query("sortBy"))
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	filter := repository.SearchFilter{
		EventType:  c.Query("eventType"),
		Stage:      c.Query("stage"),
		Identifier: c.Query("identifier"),
		SortBy:     sortBy,
		Ascending:  c.Query("sort") == "asc",
		Limit:      intQuery(c, "limit", 50),
		Offset:     intQuery(c, "offset", 0),
	}

	if raw := c.Query("userId"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		filter.UserID = &userID
	}
	if from, ok := timeQuery(c, "from"); ok {
		filter.From = from
	} else {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if to, ok := timeQuery(c, "to"); ok {
		filter.To = to
	} else {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	entries, total, err := h.svc.Search(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entryResponse{
			ID:         entry.ID,
			EventType:  entry.EventType,
			Stage:      entry.Stage,
			Identifier: entry.Identifier,
			RecordID:   entry.RecordID,
			UserID:     entry.UserID,
			UserEmail:  entry.UserEmail,
			Detail:     entry.Detail,
			OccurredAt: entry.OccurredAt,
		})
	}
	httpkit.OK(c, searchResponse{Entries: out, Total: total, Limit: filter.Limit, Offset: filter.Offset})
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

// timeQuery parses an optional RFC 3339 query parameter. ok is false only
// when the parameter is present but malformed.
func timeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}
