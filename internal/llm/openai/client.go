// Package openai implements llm.Analyzer over an OpenAI-compatible
// chat/completions endpoint with JSON-schema structured output.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/llm"
)

// Model names the chat model requests are sent to.
func (c *Client) Model() string { return c.cfg.Model }

// Analyze sends the annotated text with a kind-specific prompt and returns
// the validated analysis plus the JSON it was decoded from. Text shorter
// than llm.MinTextLength is answered locally without a request.
func (c *Client) Analyze(ctx context.Context, req llm.AnalyzeRequest) (llm.Analysis, []byte, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.NewString()
		ctx = common.WithRequestID(ctx, rid)
	}
	start := time.Now()

	kind := req.Kind
	if kind == "" {
		kind = llm.DetectKind(req.Text)
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Text)) < llm.MinTextLength {
		c.log.Warn("llm.analyze.insufficient_text", "req_id", rid, "name", req.Name, "text_len", len(req.Text))
		return llm.Insufficient(kind), nil, nil
	}

	c.log.Info("llm.analyze.start",
		"req_id", rid,
		"name", req.Name,
		"model", c.cfg.Model,
		"kind", kind,
		"text_len", len(req.Text),
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "financial_analysis",
				"schema": llm.BuildAnalysisJSONSchema(),
			},
		},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt(kind)},
			{"role": "user", "content": llm.BuildUserPrompt(req.Text, c.cfg.MaxPromptChars)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := llm.SendJSON(ctx, c.http, endpoint, body, map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}, c.log)
	if err != nil {
		if ctx.Err() != nil {
			return llm.Analysis{}, nil, common.CancelledError(ctx.Err())
		}
		c.log.Error("llm.analyze.http_error", "req_id", rid, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return llm.Analysis{}, raw, common.AnalysisError(err)
	}

	content, err := firstChoice(raw)
	if err != nil {
		c.log.Error("llm.analyze.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return llm.Analysis{}, raw, common.AnalysisError(err)
	}
	rawContent := []byte(llm.ExtractJSON(content))

	if err := llm.ValidateAnalysisJSON(rawContent); err != nil {
		if !c.cfg.LenientOptional {
			c.log.Error("llm.analyze.schema_validation_failed", "req_id", rid, "error", err)
			return llm.Analysis{}, rawContent, common.AnalysisError(err)
		}
		cleaned, dropped, sErr := llm.NormalizeAndSanitizeJSON(rawContent, c.log)
		if sErr != nil {
			c.log.Error("llm.analyze.sanitize_failed", "req_id", rid, "error", sErr)
			return llm.Analysis{}, rawContent, common.AnalysisError(errors.Join(err, sErr))
		}
		if vErr := llm.ValidateAnalysisJSON(cleaned); vErr != nil {
			c.log.Error("llm.analyze.schema_validation_failed", "req_id", rid, "error", vErr)
			return llm.Analysis{}, rawContent, common.AnalysisError(vErr)
		}
		c.log.Warn("llm.analyze.lenient_sanitize_applied", "req_id", rid, "dropped", dropped)
		rawContent = cleaned
	}

	var out llm.Analysis
	if err := json.Unmarshal(rawContent, &out); err != nil {
		c.log.Error("llm.analyze.unmarshal_failed", "req_id", rid, "error", err)
		return llm.Analysis{}, rawContent, common.AnalysisError(fmt.Errorf("unmarshal analysis: %w", err))
	}
	if out.Transactions == nil {
		out.Transactions = []llm.Transaction{}
	}
	if out.Categories == nil {
		out.Categories = []llm.CategoryShare{}
	}
	out.DocumentType = kind

	c.log.Info("llm.analyze.ok",
		"req_id", rid,
		"kind", kind,
		"transactions", len(out.Transactions),
		"has_score", out.FinancialScore != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, rawContent, nil
}

func firstChoice(raw []byte) (string, error) {
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode chat completion: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("no choices in chat completion")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}
