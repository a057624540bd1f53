package transport

type SetIdentifierRequest struct {
	Identifier string `json:"identifier" validate:"required,max=64"`
}

type ToggleRequest struct {
	SectionIndex int `json:"sectionIndex" validate:"gte=0"`
	ItemIndex    int `json:"itemIndex" validate:"gte=0"`
}

type ClearSectionRequest struct {
	SectionIndex int `json:"sectionIndex" validate:"gte=0"`
}

type SetAuxRequest struct {
	Color string `json:"color" validate:"max=100"`
	RAL   string `json:"ral" validate:"max=20"`
}

type ResumeRequest struct {
	RecordID string `json:"recordId" validate:"required,uuid"`
}

type LeaveResponse struct {
	Saved bool `json:"saved"`
}

type CounterResponse struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}
