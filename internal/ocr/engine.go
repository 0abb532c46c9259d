package ocr

import (
	"context"
	"image"
)

// PageSegMode mirrors tesseract's --psm values for the modes the driver cycles through.
type PageSegMode int

const (
	PSMAutoOSD     PageSegMode = 1
	PSMAuto        PageSegMode = 3
	PSMSingleBlock PageSegMode = 6
	PSMSingleLine  PageSegMode = 7
)

// ModeCycle is the order in which attempts walk the segmentation modes.
var ModeCycle = []PageSegMode{PSMAutoOSD, PSMAuto, PSMSingleBlock, PSMSingleLine}

func (m PageSegMode) String() string {
	switch m {
	case PSMAutoOSD:
		return "auto_osd"
	case PSMAuto:
		return "auto"
	case PSMSingleBlock:
		return "single_block"
	case PSMSingleLine:
		return "single_line"
	}
	return "unknown"
}

// Word is one recognized word with tesseract's layout coordinates.
type Word struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
	Block      int
	Par        int
	Line       int
	Num        int
}

// Recognition is the output of a single engine pass.
type Recognition struct {
	Text       string
	Confidence float64 // mean word confidence, 0..100
	TSV        string
	Words      []Word
}

// Engine runs tesseract over an encoded PNG. Implementations are not
// required to be safe for concurrent use; the driver acquires one per call.
type Engine interface {
	Recognize(ctx context.Context, png []byte, mode PageSegMode) (Recognition, error)
	Close() error
}

// EngineFactory acquires a configured engine.
type EngineFactory func(ctx context.Context) (Engine, error)

// EngineConfig is shared by the gosseract and CLI engines.
type EngineConfig struct {
	Language    string
	TessdataDir string
	Whitelist   string
	Variables   map[string]string
}

// DefaultVariables are set on every engine before recognition. Only
// runtime-settable parameters belong here: init-only ones such as
// load_system_dawg make SetVariable fail on every image.
func DefaultVariables() map[string]string {
	return map[string]string{
		"preserve_interword_spaces":     "1",
		"tessedit_do_invert":            "0",
		"tessedit_enable_doc_dict":      "1",
		"enable_new_segsearch":          "1",
		"textord_heavy_nr":              "1",
		"textord_force_make_prop_words": "1",
	}
}

// initOnlyVariables cannot be changed once the engine is initialised;
// withDefaults drops them so a stray entry never fails every pass.
var initOnlyVariables = map[string]bool{
	"load_system_dawg":         true,
	"load_freq_dawg":           true,
	"load_unambig_dawg":        true,
	"load_punc_dawg":           true,
	"load_number_dawg":         true,
	"load_bigram_dawg":         true,
	"tessedit_ocr_engine_mode": true,
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.Whitelist == "" {
		c.Whitelist = CharWhitelist
	}
	if c.Variables == nil {
		c.Variables = DefaultVariables()
	}
	vars := make(map[string]string, len(c.Variables))
	for k, v := range c.Variables {
		if !initOnlyVariables[k] {
			vars[k] = v
		}
	}
	c.Variables = vars
	return c
}
