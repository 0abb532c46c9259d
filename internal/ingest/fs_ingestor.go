package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/repository"
)

// FSIngestor reads from the local filesystem.
type FSIngestor struct {
	Docs   repository.DocumentRepository
	Submit SubmitFunc // nil: documents are only registered
	Logger *slog.Logger
}

func NewFSIngestor(docs repository.DocumentRepository, submit SubmitFunc, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Docs: docs, Submit: submit, Logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, common.InvalidInputError("invalid path")
	}
	out.SourcePath = abs

	ext := filepath.Ext(abs)
	mediaType := constants.MediaTypeForExt(ext)
	if mediaType == "" {
		i.Logger.Debug("ingest.skip.unsupported", "path", abs, "ext", ext)
		return out, common.UnsupportedFormatError(ext)
	}
	out.MediaType = mediaType

	sum, size, err := hashFile(abs)
	if err != nil {
		i.Logger.Error("ingest.hash.failed", "path", abs, "error", err)
		return out, common.NewAppError(common.CodeNotFound, "cannot read file", err)
	}
	out.HashHex = hex.EncodeToString(sum)
	out.SizeBytes = size

	if existing, err := i.Docs.GetByHash(ctx, out.HashHex); err == nil {
		out.DocumentID = existing.ID
		out.Deduplicated = true
		// A failed document is retried on re-ingest.
		if existing.Status == constants.DocumentError && i.Submit != nil {
			if err := i.Docs.UpdateStatus(ctx, existing.ID, constants.DocumentPending, ""); err != nil {
				return out, err
			}
			if err := i.submit(ctx, existing.ID); err != nil {
				return out, err
			}
			out.Queued = true
		}
		i.Logger.Info("ingest.dedup", "path", abs, "document_id", existing.ID, "queued", out.Queued)
		return out, nil
	} else if common.CodeOf(err) != common.CodeNotFound {
		return out, err
	}

	doc, err := i.Docs.Create(ctx, repository.NewDocument{
		Name:        filepath.Base(abs),
		MediaType:   mediaType,
		Format:      constants.MapMediaTypeToFormat(mediaType),
		SizeBytes:   size,
		ContentHash: out.HashHex,
		SourcePath:  abs,
	})
	if err != nil {
		// Lost a race with another ingest of the same content.
		if existing, gerr := i.Docs.GetByHash(ctx, out.HashHex); gerr == nil {
			out.DocumentID = existing.ID
			out.Deduplicated = true
			return out, nil
		}
		return out, err
	}
	out.DocumentID = doc.ID

	if i.Submit != nil {
		if err := i.submit(ctx, doc.ID); err != nil {
			return out, err
		}
		out.Queued = true
	}
	i.Logger.Info("ingest.ok", "path", abs, "document_id", doc.ID, "media_type", mediaType, "size_bytes", size, "queued", out.Queued)
	return out, nil
}

// submit queues id and marks the document ERROR when that fails, so a later
// ingest of the same content picks it up again.
func (i *FSIngestor) submit(ctx context.Context, id uuid.UUID) error {
	err := i.Submit(ctx, id)
	if err == nil {
		return nil
	}
	i.Logger.Warn("ingest.submit.failed", "document_id", id, "error", err)
	if uerr := i.Docs.UpdateStatus(context.WithoutCancel(ctx), id, constants.DocumentError, "submit failed: "+err.Error()); uerr != nil {
		i.Logger.Error("ingest.mark_error.failed", "document_id", id, "error", uerr)
	}
	return err
}

func hashFile(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, 0, err
	}
	return h.Sum(nil), n, nil
}
