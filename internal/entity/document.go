package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/finextract/constants"
)

// Document represents an ingested file for data transfer between layers.
type Document struct {
	ID            uuid.UUID                `json:"id"`
	Name          string                   `json:"name"`
	MediaType     string                   `json:"media_type"`
	Format        string                   `json:"format"`
	SizeBytes     int64                    `json:"size_bytes"`
	ContentHash   string                   `json:"content_hash"`
	SourcePath    string                   `json:"source_path"`
	Status        constants.DocumentStatus `json:"status"`
	Kind          *constants.DocumentKind  `json:"kind,omitempty"`
	Confidence    *float64                 `json:"confidence,omitempty"`
	LowQuality    bool                     `json:"low_quality"`
	AnnotatedText *string                  `json:"annotated_text,omitempty"`
	Fields        []Field                  `json:"fields,omitempty"`
	ErrorMessage  *string                  `json:"error_message,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// Field is one rule-extracted label/value pair stored with a document.
type Field struct {
	Label string `json:"label"`
	Match string `json:"match"`
	Value string `json:"value"`
}
