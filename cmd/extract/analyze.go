package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/finextract/internal/analysis"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/extract"
	"github.com/joseph-ayodele/finextract/internal/llm"
	"github.com/joseph-ayodele/finextract/internal/llm/openai"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Extract a document and analyze its transactions",
	Long: `Extract a document, send the annotated text to the configured
OpenAI-compatible model and print the completed analysis as JSON.

Requires OPENAI_API_KEY.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger := setup()
	if !cfg.AnalyzerEnabled() {
		return common.NewAppError(common.CodeConfig, "OPENAI_API_KEY is required", common.ErrInvalidInput)
	}

	in, err := readInput(args[0])
	if err != nil {
		return err
	}
	res, err := extract.NewDispatcher(extract.NewServices(cfg, logger), logger).Extract(cmd.Context(), in)
	if err != nil {
		return err
	}

	client := openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)
	a, _, err := client.Analyze(cmd.Context(), llm.AnalyzeRequest{Text: res.Text(), Name: in.Name})
	if err != nil {
		var ae *common.AppError
		if !errors.As(err, &ae) {
			err = common.AnalysisError(err)
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(analysis.Complete(a))
}
