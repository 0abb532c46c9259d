//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/otiai10/gosseract/v2"
)

// GosseractAvailable reports whether this binary links libtesseract.
const GosseractAvailable = true

var psmToGosseract = map[PageSegMode]gosseract.PageSegMode{
	PSMAutoOSD:     gosseract.PSM_AUTO_OSD,
	PSMAuto:        gosseract.PSM_AUTO,
	PSMSingleBlock: gosseract.PSM_SINGLE_BLOCK,
	PSMSingleLine:  gosseract.PSM_SINGLE_LINE,
}

// GosseractEngine wraps one libtesseract client. Not safe for concurrent use.
type GosseractEngine struct {
	client *gosseract.Client
}

// NewGosseractFactory returns a factory that builds a configured client per call.
func NewGosseractFactory(cfg EngineConfig, logger *slog.Logger) (EngineFactory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return func(ctx context.Context) (Engine, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := gosseract.NewClient()
		if err := configureClient(c, cfg); err != nil {
			_ = c.Close()
			logger.Error("ocr.gosseract.init_failed", "error", err)
			return nil, err
		}
		return &GosseractEngine{client: c}, nil
	}, nil
}

func configureClient(c *gosseract.Client, cfg EngineConfig) error {
	if cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(cfg.TessdataDir); err != nil {
			return fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(cfg.Language); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	if err := c.SetWhitelist(cfg.Whitelist); err != nil {
		return fmt.Errorf("set whitelist: %w", err)
	}
	for _, k := range slices.Sorted(maps.Keys(cfg.Variables)) {
		if err := c.SetVariable(gosseract.SettableVariable(k), cfg.Variables[k]); err != nil {
			return fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	return nil
}

func (e *GosseractEngine) Recognize(ctx context.Context, png []byte, mode PageSegMode) (Recognition, error) {
	psm, ok := psmToGosseract[mode]
	if !ok {
		return Recognition{}, fmt.Errorf("unsupported page segmentation mode %d", mode)
	}
	if err := e.client.SetPageSegMode(psm); err != nil {
		return Recognition{}, fmt.Errorf("set psm: %w", err)
	}
	if err := e.client.SetImageFromBytes(png); err != nil {
		return Recognition{}, fmt.Errorf("set image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}
	text, err := e.client.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("recognize text: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxesVerbose()
	if err != nil {
		return Recognition{}, fmt.Errorf("word boxes: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		if b.Word == "" || b.Confidence < 0 {
			continue
		}
		words = append(words, Word{
			Text:       b.Word,
			Confidence: b.Confidence,
			Box:        b.Box,
			Block:      b.BlockNum,
			Par:        b.ParNum,
			Line:       b.LineNum,
			Num:        b.WordNum,
		})
	}
	return Recognition{
		Text:       text,
		Confidence: MeanConfidence(words),
		TSV:        RenderTSV(words),
		Words:      words,
	}, nil
}

func (e *GosseractEngine) Close() error {
	return e.client.Close()
}
