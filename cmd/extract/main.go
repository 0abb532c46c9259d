package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/extract"
)

var (
	logLevel  string
	mediaType string
	ocrEngine string
	asJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "extract <file>...",
	Short: "Extract annotated text from financial documents",
	Long: `Run the extraction core on local files and print the annotated text.

Images go through preprocessing and OCR; PDFs use their embedded text.

Examples:
  # Print annotated text
  extract statement.pdf

  # Structured output with confidence and fields
  extract --json scan.jpg

  # Force the tesseract CLI engine
  extract --engine cli scan.png`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runExtract,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&ocrEngine, "engine", "", "OCR engine (auto, gosseract or cli); defaults to OCR_ENGINE")
	rootCmd.PersistentFlags().StringVar(&mediaType, "media-type", "", "Override the media type detected from the file extension")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if common.IsRejected(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// setup loads .env and configuration and builds the process logger.
func setup() (*common.Config, *slog.Logger) {
	_ = godotenv.Load()
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if ocrEngine != "" {
		cfg.OCR.Engine = ocrEngine
	}
	return cfg, logger
}

func readInput(path string) (extract.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Input{}, common.NewAppError(common.CodeNotFound, "cannot read "+path, err)
	}
	mt := mediaType
	if mt == "" {
		mt = constants.MediaTypeForExt(filepath.Ext(path))
	}
	if mt == "" {
		return extract.Input{}, common.UnsupportedFormatError(filepath.Ext(path))
	}
	return extract.Input{Name: filepath.Base(path), MediaType: mt, Data: data}, nil
}

type fileResult struct {
	File       string           `json:"file"`
	Kind       string           `json:"kind,omitempty"`
	Path       string           `json:"path,omitempty"`
	Confidence float64          `json:"confidence"`
	LowQuality bool             `json:"low_quality"`
	Pages      int              `json:"pages,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
	Fields     []map[string]any `json:"fields,omitempty"`
	Text       string           `json:"text,omitempty"`
	Error      string           `json:"error,omitempty"`
	Code       string           `json:"code,omitempty"`
	DurationMS int64            `json:"duration_ms"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, logger := setup()
	dispatcher := extract.NewDispatcher(extract.NewServices(cfg, logger), logger)

	var firstErr error
	results := make([]fileResult, 0, len(args))
	for _, path := range args {
		fr := fileResult{File: path}
		in, err := readInput(path)
		if err == nil {
			var res extract.Result
			res, err = dispatcher.Extract(cmd.Context(), in)
			if err == nil {
				fr.Kind = string(res.Annotated.Kind)
				fr.Path = res.Path
				fr.Confidence = res.Confidence
				fr.LowQuality = res.LowQuality
				fr.Pages = res.Pages
				fr.Warnings = res.Warnings
				fr.Text = res.Text()
				fr.DurationMS = res.Duration.Milliseconds()
				for _, f := range res.Annotated.Fields {
					fr.Fields = append(fr.Fields, map[string]any{"label": f.Label, "value": f.Value})
				}
			}
		}
		if err != nil {
			fr.Error = common.MessageOf(err)
			fr.Code = common.CodeOf(err)
			if firstErr == nil {
				firstErr = err
			}
		}
		results = append(results, fr)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
		return firstErr
	}
	for i, fr := range results {
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "==> %s <==\n", fr.File)
		}
		if fr.Error != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (%s)\n", fr.File, fr.Error, fr.Code)
			continue
		}
		if fr.LowQuality {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: low confidence (%.1f); results may be unreliable\n", fr.File, fr.Confidence)
		}
		fmt.Fprintln(out, fr.Text)
	}
	if firstErr != nil {
		return errors.New("one or more files failed")
	}
	return nil
}
