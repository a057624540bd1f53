package transport

import "time"

type CreateItemRequest struct {
	Label    string `json:"label" validate:"required,min=2,max=200"`
	Section  string `json:"section" validate:"max=100"`
	Position int    `json:"position" validate:"gte=0"`
}

type UpdateItemRequest struct {
	Label    string `json:"label" validate:"required,min=2,max=200"`
	Section  string `json:"section" validate:"required,max=100"`
	Position int    `json:"position" validate:"gte=0"`
	Active   *bool  `json:"active" validate:"required"`
}

type ItemResponse struct {
	ID        string    `json:"id"`
	Stage     string    `json:"stage"`
	Label     string    `json:"label"`
	Section   string    `json:"section"`
	Key       string    `json:"key"`
	Position  int       `json:"position"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
