package imaging

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"math"
	"time"
)

// SkewTolerance is the smallest skew, in degrees, worth correcting.
const SkewTolerance = 0.1

// ThresholdAttempt is one (block size, constant) pair for adaptive binarization.
type ThresholdAttempt struct {
	Block int
	C     float64
}

// DefaultAttempts spans large, medium and very large neighbourhoods.
var DefaultAttempts = []ThresholdAttempt{
	{Block: 51, C: 25},
	{Block: 21, C: 15},
	{Block: 99, C: 10},
}

// BinarizationAttempt is a candidate binary image tagged with its parameters.
type BinarizationAttempt struct {
	Params ThresholdAttempt
	Image  *image.Gray
}

// Report describes what Process did to an image.
type Report struct {
	Selected  ThresholdAttempt
	Attempts  int
	SkewAngle float64
	Rotated   bool
	FellBack  bool
	Err       error
	Duration  time.Duration
}

// Preprocessor turns a decoded scan into a binarized, deskewed image.
// It holds no per-call state and is safe for concurrent use.
type Preprocessor struct {
	backend  Backend
	attempts []ThresholdAttempt
	logger   *slog.Logger
}

type Option func(*Preprocessor)

// WithAttempts overrides the threshold parameter order.
func WithAttempts(attempts ...ThresholdAttempt) Option {
	return func(p *Preprocessor) {
		if len(attempts) > 0 {
			p.attempts = attempts
		}
	}
}

func NewPreprocessor(backend Backend, logger *slog.Logger, opts ...Option) *Preprocessor {
	if backend == nil {
		backend = NewNativeBackend()
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Preprocessor{backend: backend, attempts: DefaultAttempts, logger: logger}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process never fails: on any error, including a panic inside the backend,
// it returns a clone of img and records the cause in the report.
func (p *Preprocessor) Process(ctx context.Context, img image.Image) (out image.Image, rep Report) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			rep.FellBack = true
			rep.Err = fmt.Errorf("preprocess panic: %v", r)
			out = Clone(img)
		}
		rep.Duration = time.Since(start)
		if rep.FellBack {
			p.logger.Warn("imaging.preprocess.fallback", "error", rep.Err, "duration_ms", rep.Duration.Milliseconds())
			return
		}
		p.logger.Debug("imaging.preprocess.ok",
			"block", rep.Selected.Block,
			"c", rep.Selected.C,
			"skew_deg", rep.SkewAngle,
			"rotated", rep.Rotated,
			"duration_ms", rep.Duration.Milliseconds(),
		)
	}()

	res, err := p.process(ctx, img, &rep)
	if err != nil {
		rep.FellBack = true
		rep.Err = err
		return Clone(img), rep
	}
	return res, rep
}

func (p *Preprocessor) process(ctx context.Context, img image.Image, rep *Report) (image.Image, error) {
	gray, err := p.backend.Grayscale(img)
	if err != nil {
		return nil, fmt.Errorf("grayscale: %w", err)
	}

	attempts := make([]BinarizationAttempt, 0, len(p.attempts))
	for _, a := range p.attempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bin, err := p.backend.AdaptiveThreshold(gray, a.Block, a.C)
		if err != nil {
			return nil, fmt.Errorf("threshold %d/%v: %w", a.Block, a.C, err)
		}
		attempts = append(attempts, BinarizationAttempt{Params: a, Image: bin})
	}
	if len(attempts) == 0 {
		return nil, fmt.Errorf("no threshold attempts configured")
	}
	rep.Attempts = len(attempts)

	// TODO: score attempts (foreground density or edge sharpness) instead of always taking the first.
	chosen := attempts[0]
	rep.Selected = chosen.Params

	deskewed, angle, err := p.Deskew(chosen.Image)
	if err != nil {
		return nil, fmt.Errorf("deskew: %w", err)
	}
	rep.SkewAngle = angle
	rep.Rotated = deskewed != chosen.Image
	return deskewed, nil
}

// Deskew straightens bin. It returns bin itself when there is no foreground
// or the measured skew is within SkewTolerance.
func (p *Preprocessor) Deskew(bin *image.Gray) (*image.Gray, float64, error) {
	points := p.backend.ForegroundPoints(bin)
	if len(points) == 0 {
		return bin, 0, nil
	}
	angle, err := p.backend.MinAreaAngle(points)
	if err != nil {
		return nil, 0, err
	}
	if math.Abs(angle) <= SkewTolerance {
		return bin, angle, nil
	}
	rotated, err := p.backend.Rotate(bin, -angle)
	if err != nil {
		return nil, angle, err
	}
	return rotated, angle, nil
}

// Clone deep-copies img into a new image with the same bounds.
func Clone(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray:
		out := image.NewGray(b)
		if out.Stride == src.Stride && len(out.Pix) == len(src.Pix) {
			copy(out.Pix, src.Pix)
		} else {
			draw.Draw(out, b, src, b.Min, draw.Src)
		}
		return out
	case *image.RGBA:
		out := image.NewRGBA(b)
		if out.Stride == src.Stride && len(out.Pix) == len(src.Pix) {
			copy(out.Pix, src.Pix)
		} else {
			draw.Draw(out, b, src, b.Min, draw.Src)
		}
		return out
	}
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out
}
