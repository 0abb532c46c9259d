//go:build !tesseract

package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/finextract/internal/common"
)

func TestGosseractWithoutBuildTagIsNotReady(t *testing.T) {
	factory := NewFactory(common.OCRConfig{Engine: "gosseract", Language: "eng"}, quietLogger())
	d := NewDriver(factory, quietLogger())

	_, err := d.Recognize(context.Background(), smallScan())
	require.Error(t, err)
	assert.Equal(t, common.CodeLibraryNotReady, common.CodeOf(err))
	assert.ErrorIs(t, err, ErrGosseractDisabled)
}

func TestAutoEngineUsesCLIWithoutBuildTag(t *testing.T) {
	assert.Equal(t, "cli", ResolveEngine("auto"))
	assert.Equal(t, "cli", ResolveEngine(""))
	assert.Equal(t, "gosseract", ResolveEngine("gosseract"))
	assert.Equal(t, "cli", ResolveEngine("cli"))

	// auto goes to the binary; a missing binary is a lookup error, not the build tag one.
	factory := NewFactory(common.OCRConfig{Engine: "auto", Tesseract: "/nonexistent/tesseract"}, quietLogger())
	_, err := factory(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGosseractDisabled)
}
