package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/classify"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/entity"
	"github.com/joseph-ayodele/finextract/internal/export"
	"github.com/joseph-ayodele/finextract/internal/extract"
	"github.com/joseph-ayodele/finextract/internal/ingest"
	"github.com/joseph-ayodele/finextract/internal/repository"
)

const slipText = "Salary Slip\nEmployee Name: A. Rao\nGross Earnings 50,000.00\nNet Pay 42,000.00"

type stubExtractor struct {
	err error
}

func (s stubExtractor) Extract(_ context.Context, in extract.Input) (extract.Result, error) {
	if s.err != nil {
		return extract.Result{}, s.err
	}
	if constants.MapMediaTypeToFormat(in.MediaType) == "" {
		return extract.Result{}, common.UnsupportedFormatError(in.MediaType)
	}
	return extract.Result{
		Annotated:  classify.Annotate(string(in.Data)),
		Path:       extract.PathPDFText,
		Confidence: 90,
		Pages:      1,
		Duration:   5 * time.Millisecond,
	}, nil
}

type harness struct {
	client *Client
	conn   *grpc.ClientConn
	docs   repository.DocumentRepository
	txs    repository.TransactionRepository
	jobs   repository.ExtractJobRepository
	queued []uuid.UUID
}

func newHarness(t *testing.T, ex extract.Extractor) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: "file:" + uuid.NewString() + "?mode=memory&cache=shared"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	h := &harness{
		docs: repository.NewDocumentRepository(db, nil),
		txs:  repository.NewTransactionRepository(db, nil),
		jobs: repository.NewExtractJobRepository(db, nil),
	}
	submit := func(_ context.Context, id uuid.UUID) error {
		h.queued = append(h.queued, id)
		return nil
	}
	svc := NewExtractionService(Deps{
		Extractor: ex,
		Ingestor:  ingest.NewFSIngestor(h.docs, submit, nil),
		Docs:      h.docs,
		Txs:       h.txs,
		Jobs:      h.jobs,
		Exporter:  export.NewService(h.docs, h.txs, nil),
	}, nil)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryLogging(nil)))
	RegisterExtractionServer(srv, svc)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	h.conn = conn
	h.client = NewClient(conn)
	return h
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestHealth(t *testing.T) {
	h := newHarness(t, stubExtractor{})
	resp, err := healthpb.NewHealthClient(h.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestExtract(t *testing.T) {
	h := newHarness(t, stubExtractor{})
	var header metadata.MD
	out, err := h.client.Extract(context.Background(), mustStruct(t, map[string]any{
		"name":       "slip.pdf",
		"media_type": "application/pdf",
		"data":       base64.StdEncoding.EncodeToString([]byte(slipText)),
	}), grpc.Header(&header))
	require.NoError(t, err)

	f := out.GetFields()
	assert.Equal(t, string(constants.SalarySlip), f["kind"].GetStringValue())
	assert.Equal(t, extract.PathPDFText, f["path"].GetStringValue())
	assert.InDelta(t, 90, f["confidence"].GetNumberValue(), 0.001)
	assert.False(t, f["low_quality"].GetBoolValue())
	assert.Contains(t, f["text"].GetStringValue(), "DOCUMENT_TYPE: SALARY_SLIP")
	assert.NotEmpty(t, f["fields"].GetListValue().GetValues())
	assert.NotEmpty(t, header.Get(requestIDHeader))
}

func TestExtractPropagatesRequestID(t *testing.T) {
	h := newHarness(t, stubExtractor{})
	ctx := metadata.AppendToOutgoingContext(context.Background(), requestIDHeader, "req-42")
	var header metadata.MD
	_, err := h.client.Extract(ctx, mustStruct(t, map[string]any{
		"media_type": "application/pdf",
		"data":       base64.StdEncoding.EncodeToString([]byte(slipText)),
	}), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-42"}, header.Get(requestIDHeader))
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name string
		ex   extract.Extractor
		req  map[string]any
		code codes.Code
	}{
		{
			name: "bad base64",
			ex:   stubExtractor{},
			req:  map[string]any{"media_type": "application/pdf", "data": "%%%"},
			code: codes.InvalidArgument,
		},
		{
			name: "unsupported media type",
			ex:   stubExtractor{},
			req:  map[string]any{"media_type": "text/plain", "data": base64.StdEncoding.EncodeToString([]byte("x"))},
			code: codes.InvalidArgument,
		},
		{
			name: "ocr failure",
			ex:   stubExtractor{err: common.OCRError(assert.AnError)},
			req:  map[string]any{"media_type": "image/png", "data": base64.StdEncoding.EncodeToString([]byte("x"))},
			code: codes.Internal,
		},
		{
			name: "engine unavailable",
			ex:   stubExtractor{err: common.LibraryNotReadyError("tesseract", nil)},
			req:  map[string]any{"media_type": "image/png", "data": base64.StdEncoding.EncodeToString([]byte("x"))},
			code: codes.Unavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.ex)
			_, err := h.client.Extract(context.Background(), mustStruct(t, tt.req))
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestIngestFileAndDirectory(t *testing.T) {
	h := newHarness(t, stubExtractor{})
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), []byte("png b"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o600))

	out, err := h.client.Ingest(ctx, mustStruct(t, map[string]any{"path": filepath.Join(dir, "a.pdf")}))
	require.NoError(t, err)
	docs := out.GetFields()["documents"].GetListValue().GetValues()
	require.Len(t, docs, 1)
	first := docs[0].GetStructValue().GetFields()
	assert.True(t, first["queued"].GetBoolValue())
	_, err = uuid.Parse(first["document_id"].GetStringValue())
	require.NoError(t, err)

	out, err = h.client.Ingest(ctx, mustStruct(t, map[string]any{"path": dir}))
	require.NoError(t, err)
	stats := out.GetFields()["stats"].GetStructValue().GetFields()
	assert.EqualValues(t, 2, stats["matched"].GetNumberValue())
	assert.EqualValues(t, 1, stats["deduplicated"].GetNumberValue())
	assert.Len(t, h.queued, 2)
}

func TestIngestErrors(t *testing.T) {
	h := newHarness(t, stubExtractor{})
	ctx := context.Background()

	_, err := h.client.Ingest(ctx, mustStruct(t, map[string]any{}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.Ingest(ctx, mustStruct(t, map[string]any{"path": filepath.Join(t.TempDir(), "missing.pdf")}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	txt := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o600))
	_, err = h.client.Ingest(ctx, mustStruct(t, map[string]any{"path": txt}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetDocument(t *testing.T) {
	h := newHarness(t, stubExtractor{})
	ctx := context.Background()
	doc, err := h.docs.Create(ctx, repository.NewDocument{
		Name: "stmt.pdf", MediaType: "application/pdf", Format: constants.PDF,
		SizeBytes: 10, ContentHash: "abc", SourcePath: "/tmp/stmt.pdf",
	})
	require.NoError(t, err)
	_, err = h.txs.CreateBatch(ctx, doc.ID, []entity.Transaction{
		{TxDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Description: "NEFT credit", Amount: 5000, Category: "Income", Type: "credit"},
	})
	require.NoError(t, err)
	job, err := h.jobs.Start(ctx, doc.ID, constants.PDF)
	require.NoError(t, err)

	out, err := h.client.GetDocument(ctx, mustStruct(t, map[string]any{"id": doc.ID.String()}))
	require.NoError(t, err)
	f := out.GetFields()
	assert.Equal(t, "stmt.pdf", f["name"].GetStringValue())
	assert.Equal(t, string(constants.DocumentPending), f["status"].GetStringValue())
	txs := f["transactions"].GetListValue().GetValues()
	require.Len(t, txs, 1)
	assert.Equal(t, "2024-03-01", txs[0].GetStructValue().GetFields()["date"].GetStringValue())
	j := f["job"].GetStructValue().GetFields()
	assert.Equal(t, job.ID.String(), j["id"].GetStringValue())
	assert.Equal(t, string(constants.JobStatusRunning), j["status"].GetStringValue())

	_, err = h.client.GetDocument(ctx, mustStruct(t, map[string]any{"id": "nope"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "field 'id': must be a valid UUID")
	_, err = h.client.GetDocument(ctx, mustStruct(t, map[string]any{}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "field 'id': is required")
	_, err = h.client.GetDocument(ctx, mustStruct(t, map[string]any{"id": uuid.NewString()}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestExport(t *testing.T) {
	h := newHarness(t, stubExtractor{})
	ctx := context.Background()

	out, err := h.client.Export(ctx, mustStruct(t, map[string]any{"from_date": "2024-01-01", "to_date": "2024-12-31"}))
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(out.GetFields()["xlsx"].GetStringValue())
	require.NoError(t, err)
	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()
	assert.Equal(t, []string{export.SheetDocuments, export.SheetTransactions, export.SheetSummary}, wb.GetSheetList())
	assert.True(t, strings.HasSuffix(out.GetFields()["filename"].GetStringValue(), ".xlsx"))

	_, err = h.client.Export(ctx, mustStruct(t, map[string]any{"from_date": "01/02/2024"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "field 'from_date': must be YYYY-MM-DD")
	_, err = h.client.Export(ctx, mustStruct(t, map[string]any{"to_date": "2024-13-01"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "field 'to_date': must be YYYY-MM-DD")
	_, err = h.client.Export(ctx, mustStruct(t, map[string]any{"from_date": "2024-02-01", "to_date": "2024-01-01"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
