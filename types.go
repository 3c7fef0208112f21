package main

import (
	"context"
	"time"

	"pdf-tagger/export"
	"pdf-tagger/geometry"
	"pdf-tagger/regions"
)

// Exporter creates the accessible PDF. Implemented by export.Client.
type Exporter interface {
	CreateAccessiblePDF(ctx context.Context, req export.Request) ([]byte, error)
}

// DocumentSummary is the response payload for the /documents/:id endpoint.
type DocumentSummary struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	FileName     string     `json:"file_name"`
	TemplateName string     `json:"template_name"`
	PageCount    int        `json:"page_count"`
	RegionCount  int        `json:"region_count"`
	Scale        float64    `json:"scale"`
	Pages        []PageInfo `json:"pages"`
	Job          *JobInfo   `json:"job,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// PageInfo carries the canvas size of one page.
type PageInfo struct {
	Number   int               `json:"number"`
	Viewport geometry.Viewport `json:"viewport"`
}

// JobInfo is the public view of an extraction job.
type JobInfo struct {
	JobID       string    `json:"job_id"`
	WorkspaceID string    `json:"workspace_id"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	Added       int       `json:"added"`
	FailedPages []int     `json:"failed_pages,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ResolveDecisionRequest is the request payload for POST /documents/:id/decision.
type ResolveDecisionRequest struct {
	DecisionID string             `json:"decision_id" binding:"required"`
	Resolution regions.Resolution `json:"resolution" binding:"required"`
}

// AddSectionRequest is the request payload for POST /documents/:id/sections.
type AddSectionRequest struct {
	Name string `json:"name"`
}

// DragLocation mirrors one end of a drag-and-drop event.
type DragLocation struct {
	DroppableID string `json:"droppableId" binding:"required"`
	Index       int    `json:"index"`
}

// MoveRequest is the request payload for POST /documents/:id/move.
type MoveRequest struct {
	Source      DragLocation `json:"source" binding:"required"`
	Destination DragLocation `json:"destination" binding:"required"`
}

// DetectTextRequest is the request payload for POST /documents/:id/detect-text.
type DetectTextRequest struct {
	Page int `json:"page" binding:"required,min=1"`
}

// ExportRequest is the request payload for POST /documents/:id/export.
type ExportRequest struct {
	TemplateName string `json:"template_name"`
}

// SaveTemplateRequest is the request payload for POST /templates.
type SaveTemplateRequest struct {
	WorkspaceID string `json:"workspace_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
}

// TemplateData is the stringified content of a template's JSONData column.
type TemplateData struct {
	TemplateName       string           `json:"templateName"`
	TaggingInformation []regions.Region `json:"taggingInformation"`
}

// TemplateSummary is one entry of GET /templates.
type TemplateSummary struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TemplateResponse is the response payload for GET /templates/:id.
type TemplateResponse struct {
	TemplateSummary
	JSONData string `json:"jsonData"`
	PDFBlob  string `json:"pdfBlob"`
}

// AltTextSuggestion is the response payload for the alt-text endpoint.
type AltTextSuggestion struct {
	RegionID string `json:"region_id"`
	AltText  string `json:"alt"`
}

// Settings defines the structure for server-side editor settings
type Settings struct {
	DefaultLanguage      string              `json:"default_language"`
	DefaultTag           regions.SemanticTag `json:"default_tag"`
	DuplicateTolerance   float64             `json:"duplicate_tolerance"`
	AutoDetectTextBlocks bool                `json:"auto_detect_text_blocks"`
}
