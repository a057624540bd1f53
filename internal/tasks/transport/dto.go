package transport

import "time"

type RecordResponse struct {
	ID          string          `json:"id"`
	Stage       string          `json:"stage"`
	Identifier  string          `json:"identifier"`
	Color       string          `json:"color,omitempty"`
	RAL         string          `json:"ral,omitempty"`
	Checks      map[string]bool `json:"checks"`
	Status      string          `json:"status"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	FinalizedAt *time.Time      `json:"finalizedAt,omitempty"`
}

type RecordListResponse struct {
	Records []RecordResponse `json:"records"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

type IdentifierStatusResponse struct {
	Status   string          `json:"status"`
	RecordID string          `json:"recordId,omitempty"`
	Checks   map[string]bool `json:"checks,omitempty"`
	Color    string          `json:"color,omitempty"`
	RAL      string          `json:"ral,omitempty"`
}

type SnapshotResponse struct {
	Exists     bool            `json:"exists"`
	RecordID   string          `json:"recordId,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Checks     map[string]bool `json:"checks,omitempty"`
	Color      string          `json:"color,omitempty"`
	RAL        string          `json:"ral,omitempty"`
}

type PendingTaskResponse struct {
	RecordID   string `json:"recordId"`
	Stage      string `json:"stage"`
	Identifier string `json:"identifier"`
	Color      string `json:"color,omitempty"`
	RAL        string `json:"ral,omitempty"`
	DoneCount  int    `json:"doneCount"`
	TotalCount int    `json:"totalCount"`
}
