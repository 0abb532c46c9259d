package extract

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/finextract/internal/common"
)

func TestNewServicesWithoutEngine(t *testing.T) {
	cfg := &common.Config{OCR: common.OCRConfig{Engine: "cli", Tesseract: "finextract-no-such-tesseract"}}
	svc := NewServices(cfg, nil)
	require.NotNil(t, svc.Decoder)
	require.NotNil(t, svc.Preprocessor)
	require.NotNil(t, svc.OCR)
	require.NotNil(t, svc.PDF)

	img := image.NewGray(image.Rect(0, 0, 40, 20))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(5, 5, color.Gray{Y: 0})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	_, err := NewDispatcher(svc, nil).Extract(context.Background(), Input{Name: "scan.png", MediaType: "image/png", Data: buf.Bytes()})
	require.Error(t, err)
	assert.Equal(t, common.CodeLibraryNotReady, common.CodeOf(err))
}
