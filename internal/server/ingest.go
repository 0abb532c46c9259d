package server

import (
	"context"
	"os"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/ingest"
)

// Ingest registers a file or every supported file under a directory.
// Request fields: path, skip_hidden (default true).
func (s *ExtractionService) Ingest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Ingestor == nil {
		return nil, common.ToStatus(common.LibraryNotReadyError("ingest", nil))
	}
	path := str(req, "path")
	if path == "" {
		s.logger.Error("ingest request missing path")
		return nil, common.InvalidArgumentError("path is required")
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, common.NotFoundError("path does not exist")
	}

	var (
		results []ingest.IngestionResult
		stats   ingest.DirStats
	)
	if fi.IsDir() {
		skipHidden := boolOr(req, "skip_hidden", true)
		s.logger.Info("starting directory ingest", "root", path, "skip_hidden", skipHidden)
		results, stats, err = s.deps.Ingestor.IngestDirectory(ctx, path, skipHidden)
		if err != nil {
			return nil, common.ToStatus(err)
		}
	} else {
		s.logger.Info("starting file ingest", "path", path)
		r, err := s.deps.Ingestor.IngestPath(ctx, path)
		if err != nil {
			return nil, common.ToStatus(err)
		}
		results = []ingest.IngestionResult{r}
		stats = ingest.DirStats{Scanned: 1, Matched: 1, Succeeded: 1}
		if r.Deduplicated {
			stats.Deduplicated = 1
		}
	}

	docs := make([]any, 0, len(results))
	for _, r := range results {
		docs = append(docs, ingestionResultToMap(r))
	}
	return toStruct(map[string]any{
		"documents": docs,
		"stats": map[string]any{
			"scanned":      stats.Scanned,
			"matched":      stats.Matched,
			"succeeded":    stats.Succeeded,
			"deduplicated": stats.Deduplicated,
			"failed":       stats.Failed,
		},
	})
}
