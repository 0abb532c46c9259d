package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/entity"
	"github.com/joseph-ayodele/finextract/internal/repository"
)

func seed(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := repository.Open(ctx, repository.Config{DSN: "file:" + name + "?mode=memory&cache=shared"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	docs := repository.NewDocumentRepository(db, nil)
	txs := repository.NewTransactionRepository(db, nil)

	doc, err := docs.Create(ctx, repository.NewDocument{
		Name: "march.pdf", MediaType: constants.MediaTypePDF, Format: constants.PDF, ContentHash: "h1", SourcePath: "/x/march.pdf",
	})
	require.NoError(t, err)
	require.NoError(t, docs.SaveResult(ctx, doc.ID, repository.DocumentResult{
		Kind: constants.BankStatement, Confidence: 90,
		Fields: []entity.Field{{Label: "CLOSING_BALANCE", Value: "4,200.00"}},
	}))
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }
	_, err = txs.CreateBatch(ctx, doc.ID, []entity.Transaction{
		{TxDate: day(time.March, 1), Description: "Salary", Amount: 5000, Category: "Salary", Type: "INCOME"},
		{TxDate: day(time.March, 31), Description: "Rent", Amount: 1500, Category: "Housing", Type: "EXPENSE"},
		{TxDate: day(time.April, 2), Description: "Groceries", Amount: 300, Category: "Food", Type: "EXPENSE"},
	})
	require.NoError(t, err)
	return NewService(docs, txs, nil)
}

func open(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestExportXLSXAll(t *testing.T) {
	s := seed(t)
	b, err := s.ExportXLSX(context.Background(), nil, nil)
	require.NoError(t, err)
	f := open(t, b)

	assert.Equal(t, []string{SheetDocuments, SheetTransactions, SheetSummary}, f.GetSheetList())

	docRows, err := f.GetRows(SheetDocuments)
	require.NoError(t, err)
	require.Len(t, docRows, 2)
	assert.Equal(t, "File", docRows[0][0])
	assert.Equal(t, "march.pdf", docRows[1][0])
	assert.Equal(t, "BANK_STATEMENT", docRows[1][1])
	assert.Equal(t, "CLOSING_BALANCE: 4,200.00", docRows[1][5])

	txRows, err := f.GetRows(SheetTransactions)
	require.NoError(t, err)
	require.Len(t, txRows, 4)
	assert.Equal(t, []string{"Date", "Description", "Category", "Type", "Amount", "Document"}, txRows[0])
	assert.Equal(t, "2024-03-01", txRows[1][0])
	assert.Equal(t, "march.pdf", txRows[1][5])

	income, err := f.GetCellValue(SheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "5000", income)
	status, err := f.GetCellValue(SheetSummary, "B6")
	require.NoError(t, err)
	assert.Equal(t, "EXCELLENT", status)
	month, err := f.GetCellValue(SheetSummary, "A10")
	require.NoError(t, err)
	assert.Equal(t, "2024-03", month)
}

func TestExportXLSXWindowIsInclusive(t *testing.T) {
	s := seed(t)
	from := time.Date(2024, time.March, 31, 15, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC)
	b, err := s.ExportXLSX(context.Background(), &from, &to)
	require.NoError(t, err)

	rows, err := open(t, b).GetRows(SheetTransactions)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Rent", rows[1][1])
	assert.Equal(t, "Groceries", rows[2][1])
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, time.May, 10, 18, 0, 0, 0, time.UTC)
	from := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)

	lo, hi := window(&from, nil, now)
	require.NotNil(t, lo)
	require.NotNil(t, hi)
	assert.Equal(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), *lo)
	assert.Equal(t, time.Date(2024, time.May, 11, 0, 0, 0, 0, time.UTC), *hi)

	lo, hi = window(nil, nil, now)
	assert.Nil(t, lo)
	assert.Nil(t, hi)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "₹1…", truncate("₹1000", 3))
}
