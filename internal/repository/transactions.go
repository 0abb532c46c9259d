package repository

import (
	"context"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/finextract/internal/entity"
)

type TransactionRepository interface {
	// CreateBatch stores txs for a document, replacing any rows from an earlier run.
	CreateBatch(ctx context.Context, documentID uuid.UUID, txs []entity.Transaction) (int, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.Transaction, error)
	ListBetween(ctx context.Context, from, to *time.Time) ([]*entity.Transaction, error)
}

var transactionColumns = []string{"id", "document_id", "tx_date", "description", "amount", "category", "type", "created_at"}

type transactionRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewTransactionRepository(db *DB, logger *slog.Logger) TransactionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &transactionRepo{db: db, logger: logger}
}

func (r *transactionRepo) CreateBatch(ctx context.Context, documentID uuid.UUID, txs []entity.Transaction) (int, error) {
	now := time.Now().UTC()
	err := r.db.withTx(ctx, func(tx dialect.ExecQuerier) error {
		b := r.db.builder()
		query, args := b.Delete(TableTransactions).Where(entsql.EQ("document_id", documentID)).Query()
		if _, err := exec(ctx, tx, query, args); err != nil {
			return dbError("delete transactions", err)
		}
		if len(txs) == 0 {
			return nil
		}
		ins := b.Insert(TableTransactions).Columns(transactionColumns...)
		for _, t := range txs {
			id := t.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			ins = ins.Values(id, documentID, t.TxDate, t.Description, t.Amount, t.Category, t.Type, now)
		}
		query, args = ins.Query()
		if _, err := exec(ctx, tx, query, args); err != nil {
			return dbError("insert transactions", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to store transactions", "document_id", documentID, "count", len(txs), "error", err)
		return 0, err
	}
	r.logger.Info("transactions stored", "document_id", documentID, "count", len(txs))
	return len(txs), nil
}

func (r *transactionRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.Transaction, error) {
	b := r.db.builder()
	query, args := b.Select(transactionColumns...).
		From(b.Table(TableTransactions)).
		Where(entsql.EQ("document_id", documentID)).
		OrderBy(entsql.Asc("tx_date"), entsql.Asc("description")).
		Query()
	out, err := queryTransactions(ctx, r.db.drv, query, args)
	if err != nil {
		return nil, dbError("list transactions", err)
	}
	return out, nil
}

// ListBetween returns transactions dated in [from, to). A nil bound is open.
func (r *transactionRepo) ListBetween(ctx context.Context, from, to *time.Time) ([]*entity.Transaction, error) {
	b := r.db.builder()
	sel := b.Select(transactionColumns...).From(b.Table(TableTransactions))
	var preds []*entsql.Predicate
	if from != nil {
		preds = append(preds, entsql.GTE("tx_date", *from))
	}
	if to != nil {
		preds = append(preds, entsql.LT("tx_date", *to))
	}
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	query, args := sel.OrderBy(entsql.Asc("tx_date"), entsql.Asc("id")).Query()
	out, err := queryTransactions(ctx, r.db.drv, query, args)
	if err != nil {
		return nil, dbError("list transactions", err)
	}
	return out, nil
}

func queryTransactions(ctx context.Context, q dialect.ExecQuerier, query string, args []any) ([]*entity.Transaction, error) {
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Transaction
	for rows.Next() {
		var t entity.Transaction
		if err := rows.Scan(&t.ID, &t.DocumentID, &t.TxDate, &t.Description, &t.Amount, &t.Category, &t.Type, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
