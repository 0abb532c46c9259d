package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/llm"
)

const salaryText = "DOCUMENT_TYPE: SALARY_SLIP\n\nSalary slip March 2024\nBasic Salary: ₹50,000.00"

type fakeServer struct {
	*httptest.Server
	calls   atomic.Int32
	lastReq map[string]any
}

func newFakeServer(t *testing.T, status int, content string) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.calls.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fs.lastReq = body

		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func newTestClient(url string, lenient bool) *Client {
	return NewClient(Config{
		APIKey:          "test-key",
		BaseURL:         url + "/",
		Model:           "test-model",
		LenientOptional: lenient,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAnalyzeParsesFencedJSON(t *testing.T) {
	content := "```json\n" + `{"transactions":[{"date":"2024-03-31","description":"Basic salary","amount":50000,"category":"Basic","type":"INCOME"}],
		"summary":{"totalIncome":50000,"totalExpense":0,"netSavings":50000}}` + "\n```"
	srv := newFakeServer(t, http.StatusOK, content)
	c := newTestClient(srv.URL, true)

	a, raw, err := c.Analyze(context.Background(), llm.AnalyzeRequest{Text: salaryText})
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, constants.SalarySlip, a.DocumentType)
	require.Len(t, a.Transactions, 1)
	assert.Equal(t, 50000.0, a.Transactions[0].Amount)
	assert.Nil(t, a.FinancialScore)
	assert.NotNil(t, a.Categories)

	assert.Equal(t, "test-model", srv.lastReq["model"])
	rf := srv.lastReq["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", rf["type"])
	msgs := srv.lastReq["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].(map[string]any)["content"], "salary slip analyzer")
	assert.Contains(t, msgs[1].(map[string]any)["content"], "Basic Salary: ₹50,000.00")
}

func TestAnalyzeAppliesLenientSanitize(t *testing.T) {
	content := `{"transactions":[{"date":"31/03/2024","description":"Basic","amount":"₹50,000.00","type":"income"}],"commentary":"ok"}`
	srv := newFakeServer(t, http.StatusOK, content)

	a, raw, err := newTestClient(srv.URL, true).Analyze(context.Background(), llm.AnalyzeRequest{Text: salaryText})
	require.NoError(t, err)
	require.Len(t, a.Transactions, 1)
	assert.Equal(t, llm.Transaction{Date: "2024-03-31", Description: "Basic", Amount: 50000, Type: llm.TxIncome}, a.Transactions[0])
	assert.NotContains(t, string(raw), "commentary")
}

func TestAnalyzeStrictModeRejects(t *testing.T) {
	content := `{"transactions":[{"date":"2024-03-31","description":"Basic","amount":"50000","type":"INCOME"}]}`
	srv := newFakeServer(t, http.StatusOK, content)

	_, _, err := newTestClient(srv.URL, false).Analyze(context.Background(), llm.AnalyzeRequest{Text: salaryText})
	assert.Equal(t, common.CodeAnalysisFailed, common.CodeOf(err))
}

func TestAnalyzeRejectsGarbage(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, "I could not find any transactions.")

	_, _, err := newTestClient(srv.URL, true).Analyze(context.Background(), llm.AnalyzeRequest{Text: salaryText})
	assert.Equal(t, common.CodeAnalysisFailed, common.CodeOf(err))
}

func TestAnalyzeHTTPError(t *testing.T) {
	srv := newFakeServer(t, http.StatusTooManyRequests, "")

	_, _, err := newTestClient(srv.URL, true).Analyze(context.Background(), llm.AnalyzeRequest{Text: salaryText})
	assert.Equal(t, common.CodeAnalysisFailed, common.CodeOf(err))
	var se *llm.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Status)
	assert.Contains(t, se.Body, "rate limited")
}

func TestAnalyzeShortTextSkipsRequest(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, "{}")

	a, raw, err := newTestClient(srv.URL, true).Analyze(context.Background(), llm.AnalyzeRequest{Text: "  tiny  ", Kind: constants.Cheque})
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.Zero(t, srv.calls.Load())
	require.NotNil(t, a.FinancialScore)
	assert.Equal(t, llm.StatusPoor, a.FinancialScore.Status)
	assert.Equal(t, constants.Cheque, a.DocumentType)
}

func TestAnalyzeCancelled(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, "{}")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newTestClient(srv.URL, true).Analyze(ctx, llm.AnalyzeRequest{Text: salaryText})
	assert.Equal(t, common.CodeCancelled, common.CodeOf(err))
}
