package server

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/finextract/internal/common"
)

// GetDocument returns a stored document with its transactions and the
// state of its latest job. Request fields: id.
func (s *ExtractionService) GetDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Docs == nil {
		return nil, common.ToStatus(common.LibraryNotReadyError("document store", nil))
	}
	idStr := str(req, "id")
	if err := common.NewValidator().Field("id", idStr, common.Required, common.UUID).Err(); err != nil {
		return nil, common.ToStatus(err)
	}
	id := uuid.MustParse(idStr)

	doc, err := s.deps.Docs.GetByID(ctx, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	out := documentToMap(doc)

	if s.deps.Txs != nil {
		txs, err := s.deps.Txs.ListByDocument(ctx, doc.ID)
		if err != nil {
			return nil, common.ToStatus(err)
		}
		rows := make([]any, 0, len(txs))
		for _, t := range txs {
			rows = append(rows, transactionToMap(t))
		}
		out["transactions"] = rows
	}

	if s.deps.Jobs != nil {
		job, err := s.deps.Jobs.LatestForDocument(ctx, doc.ID)
		switch {
		case err == nil:
			out["job"] = jobToMap(job)
		case common.CodeOf(err) != common.CodeNotFound:
			return nil, common.ToStatus(err)
		}
	}
	return toStruct(out)
}
