package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpscaledSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"small portrait", 500, 800, 2000, 3200},
		{"small landscape", 900, 400, 4500, 2000},
		{"already large", 1200, 1500, 1200, 1500},
		{"exact threshold", 1000, 1000, 1000, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := UpscaledSize(tt.w, tt.h)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestPrepareImageFlattensOntoWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1000, 1000))
	src.SetNRGBA(10, 10, color.NRGBA{R: 0, G: 0, B: 0, A: 255})

	data, err := PrepareImage(src)
	require.NoError(t, err)
	out, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 1000, 1000), out.Bounds())
	r, g, b, a := out.At(500, 500).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff, 0xffff}, []uint32{r, g, b, a})
	r, _, _, _ = out.At(10, 10).RGBA()
	assert.Zero(t, r)
}

func TestPrepareImageUpscalesSmallScans(t *testing.T) {
	data, err := PrepareImage(image.NewGray(image.Rect(0, 0, 100, 50)))
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Width)
	assert.Equal(t, 2000, cfg.Height)
}

func TestPrepareImageRejectsEmpty(t *testing.T) {
	_, err := PrepareImage(image.NewGray(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
	_, err = PrepareImage(nil)
	assert.Error(t, err)
}
