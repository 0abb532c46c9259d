// Package ingest registers files from disk as documents, deduplicated by
// content hash, and hands new ones to processing.
package ingest

import (
	"context"

	"github.com/google/uuid"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	DocumentID   uuid.UUID
	Deduplicated bool
	Queued       bool
	HashHex      string
	MediaType    string
	SizeBytes    int64
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the service depends on.
type Ingestor interface {
	// IngestPath a single path.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}

// SubmitFunc hands a newly created document to processing.
type SubmitFunc func(ctx context.Context, docID uuid.UUID) error
