package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExtractJob represents one processing attempt of a document.
type ExtractJob struct {
	ID            uuid.UUID       `json:"id"`
	DocumentID    uuid.UUID       `json:"document_id"`
	Format        string          `json:"format"`
	Status        string          `json:"status"`
	Path          *string         `json:"path,omitempty"`
	Confidence    *float64        `json:"confidence,omitempty"`
	LowQuality    bool            `json:"low_quality"`
	AnnotatedText *string         `json:"annotated_text,omitempty"`
	AnalysisJSON  json.RawMessage `json:"analysis_json,omitempty"`
	ModelName     *string         `json:"model_name,omitempty"`
	ErrorCode     *string         `json:"error_code,omitempty"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
}
