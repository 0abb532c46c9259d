package server

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/finextract/internal/common"
)

// Export returns an XLSX workbook. Request fields: from_date, to_date
// (YYYY-MM-DD, inclusive, optional). The workbook is base64 in "xlsx".
func (s *ExtractionService) Export(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Exporter == nil {
		return nil, common.ToStatus(common.LibraryNotReadyError("export", nil))
	}
	fromStr, toStr := str(req, "from_date"), str(req, "to_date")
	if err := common.NewValidator().
		Field("from_date", fromStr, common.DateYMD).
		Field("to_date", toStr, common.DateYMD).
		Err(); err != nil {
		return nil, common.ToStatus(err)
	}
	from, to := optionalDate(fromStr), optionalDate(toStr)
	if from != nil && to != nil && to.Before(*from) {
		return nil, common.InvalidArgumentError("to_date must not be before from_date")
	}

	xlsx, err := s.deps.Exporter.ExportXLSX(ctx, from, to)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "err", err)
		return nil, common.ToStatus(err)
	}
	return toStruct(map[string]any{
		"filename": "finextract-" + time.Now().UTC().Format("20060102-150405") + ".xlsx",
		"xlsx":     xlsx,
	})
}
