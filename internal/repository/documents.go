package repository

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/entity"
)

// NewDocument is what ingest knows about a file before processing.
type NewDocument struct {
	Name        string
	MediaType   string
	Format      string
	SizeBytes   int64
	ContentHash string
	SourcePath  string
}

// DocumentResult is the extraction outcome recorded on a document.
type DocumentResult struct {
	Kind          constants.DocumentKind
	Confidence    float64
	LowQuality    bool
	AnnotatedText string
	Fields        []entity.Field
}

// ListFilter narrows List. Zero values mean no bound.
type ListFilter struct {
	Status constants.DocumentStatus
	From   *time.Time
	To     *time.Time
	Limit  int
}

type DocumentRepository interface {
	Create(ctx context.Context, doc NewDocument) (*entity.Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetByHash(ctx context.Context, hash string) (*entity.Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus, errMsg string) error
	SaveResult(ctx context.Context, id uuid.UUID, res DocumentResult) error
	List(ctx context.Context, f ListFilter) ([]*entity.Document, error)
}

var documentColumns = []string{
	"id", "name", "media_type", "format", "size_bytes", "content_hash", "source_path", "status",
	"kind", "confidence", "low_quality", "annotated_text", "fields", "error_message", "created_at", "updated_at",
}

type documentRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db, logger: logger}
}

func (r *documentRepo) Create(ctx context.Context, nd NewDocument) (*entity.Document, error) {
	now := time.Now().UTC()
	doc := &entity.Document{
		ID:          uuid.New(),
		Name:        nd.Name,
		MediaType:   nd.MediaType,
		Format:      nd.Format,
		SizeBytes:   nd.SizeBytes,
		ContentHash: nd.ContentHash,
		SourcePath:  nd.SourcePath,
		Status:      constants.DocumentPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	query, args := r.db.builder().Insert(TableDocuments).
		Columns("id", "name", "media_type", "format", "size_bytes", "content_hash", "source_path", "status", "low_quality", "created_at", "updated_at").
		Values(doc.ID, doc.Name, doc.MediaType, doc.Format, doc.SizeBytes, doc.ContentHash, doc.SourcePath, string(doc.Status), false, now, now).
		Query()
	if _, err := exec(ctx, r.db.drv, query, args); err != nil {
		r.logger.Error("failed to create document", "name", nd.Name, "error", err)
		return nil, dbError("create document", err)
	}
	r.logger.Info("document created", "document_id", doc.ID, "name", doc.Name, "format", doc.Format)
	return doc, nil
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	return r.getOne(ctx, entsql.EQ("id", id))
}

func (r *documentRepo) GetByHash(ctx context.Context, hash string) (*entity.Document, error) {
	return r.getOne(ctx, entsql.EQ("content_hash", hash))
}

func (r *documentRepo) getOne(ctx context.Context, p *entsql.Predicate) (*entity.Document, error) {
	b := r.db.builder()
	query, args := b.Select(documentColumns...).From(b.Table(TableDocuments)).Where(p).Limit(1).Query()
	docs, err := queryDocuments(ctx, r.db.drv, query, args)
	if err != nil {
		return nil, dbError("get document", err)
	}
	if len(docs) == 0 {
		return nil, notFound("document")
	}
	return docs[0], nil
}

func (r *documentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus, errMsg string) error {
	u := r.db.builder().Update(TableDocuments).
		Set("status", string(status)).
		Set("updated_at", time.Now().UTC())
	if errMsg != "" {
		u = u.Set("error_message", errMsg)
	} else {
		u = u.SetNull("error_message")
	}
	query, args := u.Where(entsql.EQ("id", id)).Query()
	n, err := exec(ctx, r.db.drv, query, args)
	if err != nil {
		r.logger.Error("failed to update document status", "document_id", id, "status", status, "error", err)
		return dbError("update document status", err)
	}
	if n == 0 {
		return notFound("document")
	}
	return nil
}

func (r *documentRepo) SaveResult(ctx context.Context, id uuid.UUID, res DocumentResult) error {
	var fields any
	if len(res.Fields) > 0 {
		b, err := json.Marshal(res.Fields)
		if err != nil {
			return err
		}
		fields = string(b)
	}
	query, args := r.db.builder().Update(TableDocuments).
		Set("kind", string(res.Kind)).
		Set("confidence", res.Confidence).
		Set("low_quality", res.LowQuality).
		Set("annotated_text", res.AnnotatedText).
		Set("fields", fields).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id)).
		Query()
	n, err := exec(ctx, r.db.drv, query, args)
	if err != nil {
		return dbError("save document result", err)
	}
	if n == 0 {
		return notFound("document")
	}
	return nil
}

// List returns documents newest first.
func (r *documentRepo) List(ctx context.Context, f ListFilter) ([]*entity.Document, error) {
	b := r.db.builder()
	sel := b.Select(documentColumns...).From(b.Table(TableDocuments))
	var preds []*entsql.Predicate
	if f.Status != "" {
		preds = append(preds, entsql.EQ("status", string(f.Status)))
	}
	if f.From != nil {
		preds = append(preds, entsql.GTE("created_at", *f.From))
	}
	if f.To != nil {
		preds = append(preds, entsql.LT("created_at", *f.To))
	}
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	sel = sel.OrderBy(entsql.Desc("created_at"), entsql.Asc("id"))
	if f.Limit > 0 {
		sel = sel.Limit(f.Limit)
	}
	query, args := sel.Query()
	docs, err := queryDocuments(ctx, r.db.drv, query, args)
	if err != nil {
		r.logger.Error("failed to list documents", "error", err)
		return nil, dbError("list documents", err)
	}
	return docs, nil
}

func queryDocuments(ctx context.Context, q dialect.ExecQuerier, query string, args []any) ([]*entity.Document, error) {
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Document
	for rows.Next() {
		var (
			d          entity.Document
			status     string
			kind       stdsql.NullString
			confidence stdsql.NullFloat64
			annotated  stdsql.NullString
			fields     []byte
			errMsg     stdsql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.MediaType, &d.Format, &d.SizeBytes, &d.ContentHash, &d.SourcePath,
			&status, &kind, &confidence, &d.LowQuality, &annotated, &fields, &errMsg, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Status = constants.DocumentStatus(status)
		if kind.Valid {
			k := constants.DocumentKind(kind.String)
			d.Kind = &k
		}
		if confidence.Valid {
			d.Confidence = &confidence.Float64
		}
		if annotated.Valid {
			d.AnnotatedText = &annotated.String
		}
		if errMsg.Valid {
			d.ErrorMessage = &errMsg.String
		}
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &d.Fields); err != nil {
				return nil, errors.Join(errors.New("decode document fields"), err)
			}
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
