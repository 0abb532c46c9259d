package ocr

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

// PrepareImage upscales small scans so the short side reaches
// TargetUpscaleSide, flattens onto opaque white and encodes PNG.
func PrepareImage(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, errors.New("empty image")
	}

	dw, dh := UpscaledSize(w, h)
	canvas := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if dw == w && dh == h {
		draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(canvas, canvas.Bounds(), img, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UpscaledSize returns the target dimensions for a w x h scan.
func UpscaledSize(w, h int) (int, int) {
	short := min(w, h)
	if short >= MinUpscaleSide {
		return w, h
	}
	scale := float64(TargetUpscaleSide) / float64(short)
	return int(float64(w)*scale + 0.5), int(float64(h)*scale + 0.5)
}
