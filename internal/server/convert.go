package server

import (
	"time"

	"github.com/joseph-ayodele/finextract/internal/classify"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/entity"
	"github.com/joseph-ayodele/finextract/internal/ingest"
)

func fieldsToList(fields []classify.ExtractedField) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, map[string]any{"label": f.Label, "match": f.Match, "value": f.Value})
	}
	return out
}

func entityFieldsToList(fields []entity.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, map[string]any{"label": f.Label, "match": f.Match, "value": f.Value})
	}
	return out
}

func documentToMap(d *entity.Document) map[string]any {
	out := map[string]any{
		"id":           d.ID.String(),
		"name":         d.Name,
		"media_type":   d.MediaType,
		"format":       d.Format,
		"size_bytes":   d.SizeBytes,
		"content_hash": d.ContentHash,
		"status":       string(d.Status),
		"low_quality":  d.LowQuality,
		"fields":       entityFieldsToList(d.Fields),
		"created_at":   d.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":   d.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if d.Kind != nil {
		out["kind"] = string(*d.Kind)
	}
	if d.Confidence != nil {
		out["confidence"] = *d.Confidence
	}
	if d.AnnotatedText != nil {
		out["text"] = *d.AnnotatedText
	}
	if d.ErrorMessage != nil {
		out["error"] = *d.ErrorMessage
	}
	return out
}

func transactionToMap(t *entity.Transaction) map[string]any {
	return map[string]any{
		"date":        t.TxDate.UTC().Format(common.DateLayout),
		"description": t.Description,
		"amount":      t.Amount,
		"category":    t.Category,
		"type":        t.Type,
	}
}

func jobToMap(j *entity.ExtractJob) map[string]any {
	out := map[string]any{
		"id":          j.ID.String(),
		"status":      j.Status,
		"started_at":  j.StartedAt.UTC().Format(time.RFC3339),
		"low_quality": j.LowQuality,
	}
	if j.Path != nil {
		out["path"] = *j.Path
	}
	if j.ModelName != nil {
		out["model"] = *j.ModelName
	}
	if j.ErrorCode != nil {
		out["error_code"] = *j.ErrorCode
	}
	if j.ErrorMessage != nil {
		out["error_message"] = *j.ErrorMessage
	}
	if j.FinishedAt != nil {
		out["finished_at"] = j.FinishedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func ingestionResultToMap(r ingest.IngestionResult) map[string]any {
	item := map[string]any{
		"source_path":  r.SourcePath,
		"deduplicated": r.Deduplicated,
		"queued":       r.Queued,
	}
	if r.Err != "" {
		item["error"] = r.Err
		return item
	}
	item["document_id"] = r.DocumentID.String()
	item["content_hash"] = r.HashHex
	item["media_type"] = r.MediaType
	item["size_bytes"] = r.SizeBytes
	return item
}
