package imaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/finextract/internal/execx"
)

// HEICConverter turns HEIC/HEIF bytes into PNG bytes the native decoders understand.
type HEICConverter interface {
	ConvertToPNG(ctx context.Context, data []byte) ([]byte, error)
}

// CommandHEICConverter shells out to heif-convert, magick or sips.
type CommandHEICConverter struct {
	Tool   string
	Runner execx.Runner
	Logger *slog.Logger
}

// DetectHEICConverter picks the first converter found on PATH.
func DetectHEICConverter(logger *slog.Logger) (*CommandHEICConverter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, tool := range []string{"heif-convert", "magick", "sips"} {
		if execx.LookPath(tool) == nil {
			return &CommandHEICConverter{Tool: tool, Runner: execx.ExecRunner{Logger: logger}, Logger: logger}, nil
		}
	}
	return nil, fmt.Errorf("no HEIC converter on PATH (need heif-convert, magick or sips)")
}

func (c *CommandHEICConverter) ConvertToPNG(ctx context.Context, data []byte) ([]byte, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tmpDir, err := os.MkdirTemp("", "finextract-heic-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			logger.Warn("imaging.heic.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	in := filepath.Join(tmpDir, "page.heic")
	out := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	var args []string
	switch c.Tool {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return nil, fmt.Errorf("unsupported HEIC converter %q", c.Tool)
	}
	if _, errb, err := c.Runner.Run(ctx, nil, c.Tool, args...); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", c.Tool, err, execx.Truncate(string(errb), 512))
	}

	png, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	return png, nil
}
