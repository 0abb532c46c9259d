package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/finextract/internal/execx"
)

// CLIEngine shells out to the tesseract binary and parses its TSV output.
type CLIEngine struct {
	bin    string
	cfg    EngineConfig
	runner execx.Runner
	logger *slog.Logger
}

// NewCLIFactory checks that bin resolves and returns a factory of CLI engines.
func NewCLIFactory(bin string, cfg EngineConfig, runner execx.Runner, logger *slog.Logger) (EngineFactory, error) {
	if bin == "" {
		bin = "tesseract"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		if err := execx.LookPath(bin); err != nil {
			return nil, err
		}
		runner = execx.ExecRunner{Logger: logger}
	}
	cfg = cfg.withDefaults()
	return func(ctx context.Context) (Engine, error) {
		return &CLIEngine{bin: bin, cfg: cfg, runner: runner, logger: logger}, nil
	}, nil
}

func (e *CLIEngine) args(mode PageSegMode) []string {
	// tesseract stdin stdout --psm N -l lang -c k=v ... tsv
	args := []string{"stdin", "stdout", "--psm", strconv.Itoa(int(mode)), "-l", e.cfg.Language}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "-c", "tessedit_char_whitelist="+e.cfg.Whitelist)
	for _, k := range slices.Sorted(maps.Keys(e.cfg.Variables)) {
		args = append(args, "-c", k+"="+e.cfg.Variables[k])
	}
	return append(args, "tsv")
}

func (e *CLIEngine) Recognize(ctx context.Context, png []byte, mode PageSegMode) (Recognition, error) {
	out, errb, err := e.runner.Run(ctx, png, e.bin, e.args(mode)...)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract: %w: %s", err, execx.Truncate(strings.TrimSpace(string(errb)), 512))
	}
	words := ParseTSV(string(out))
	return Recognition{
		Text:       TextFromWords(words),
		Confidence: MeanConfidence(words),
		TSV:        RenderTSV(words),
		Words:      words,
	}, nil
}

func (e *CLIEngine) Close() error { return nil }
