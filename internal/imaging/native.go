package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyImage    = errors.New("imaging: empty image")
	ErrBadBlockSize  = errors.New("imaging: block size must be odd and greater than 1")
	ErrNoPoints      = errors.New("imaging: no points")
	ErrUnknownFormat = errors.New("imaging: unknown image format")
)

// NativeBackend implements Backend in pure Go on top of x/image.
type NativeBackend struct{}

func NewNativeBackend() *NativeBackend { return &NativeBackend{} }

func (NativeBackend) Decode(ctx context.Context, data []byte) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnknownFormat
		}
		return nil, fmt.Errorf("decode: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decode %s: %w", format, ErrEmptyImage)
	}
	return img, nil
}

// Grayscale flattens img onto white and converts with BT.601 luma weights.
// The result is anchored at the origin.
func (NativeBackend) Grayscale(img image.Image) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	b := img.Bounds()
	r := image.Rect(0, 0, b.Dx(), b.Dy())
	if g, ok := img.(*image.Gray); ok {
		out := image.NewGray(r)
		draw.Draw(out, r, g, b.Min, draw.Src)
		return out, nil
	}
	out := image.NewGray(r)
	draw.Draw(out, r, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, r, img, b.Min, draw.Over)
	return out, nil
}

// AdaptiveThreshold binarizes against a Gaussian-weighted local mean:
// a pixel becomes 255 when src > mean - c, else 0. Borders replicate.
func (NativeBackend) AdaptiveThreshold(gray *image.Gray, blockSize int, c float64) (*image.Gray, error) {
	if gray == nil || gray.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if blockSize < 3 || blockSize%2 == 0 {
		return nil, ErrBadBlockSize
	}
	mean := gaussianBlur(gray, blockSize)
	delta := int(math.Ceil(c))

	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srow := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		mrow := mean[y*w : y*w+w]
		orow := out.Pix[y*out.Stride : y*out.Stride+w]
		for x := 0; x < w; x++ {
			if int(srow[x])-int(mrow[x]) > -delta {
				orow[x] = 255
			}
		}
	}
	return out, nil
}

// gaussianBlur returns the rounded, separably blurred luma of g using the
// sigma OpenCV derives from the kernel size.
func gaussianBlur(g *image.Gray, ksize int) []uint8 {
	kernel := gaussianKernel(ksize)
	radius := ksize / 2
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for x := 0; x < w; x++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				acc += kernel[k+radius] * float64(row[clamp(x+k, 0, w-1)])
			}
			tmp[y*w+x] = acc
		}
	}

	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				acc += kernel[k+radius] * tmp[clamp(y+k, 0, h-1)*w+x]
			}
			out[y*w+x] = uint8(clamp(int(math.Round(acc)), 0, 255))
		}
	}
	return out
}

func gaussianKernel(ksize int) []float64 {
	sigma := 0.3*(float64(ksize-1)*0.5-1) + 0.8
	radius := ksize / 2
	k := make([]float64, ksize)
	var sum float64
	for i := range k {
		d := float64(i - radius)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ForegroundPoints lists the coordinates of every non-zero pixel.
func (NativeBackend) ForegroundPoints(bin *image.Gray) []image.Point {
	if bin == nil {
		return nil
	}
	b := bin.Bounds()
	var pts []image.Point
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := (y - b.Min.Y) * bin.Stride
		for x := b.Min.X; x < b.Max.X; x++ {
			if bin.Pix[off+x-b.Min.X] != 0 {
				pts = append(pts, image.Point{X: x, Y: y})
			}
		}
	}
	return pts
}

// MinAreaAngle returns the orientation, in degrees within (-45, 45], of the
// minimum-area rectangle enclosing points. Positive angles lean clockwise
// on screen (y grows downward).
func (NativeBackend) MinAreaAngle(points []image.Point) (float64, error) {
	if len(points) == 0 {
		return 0, ErrNoPoints
	}
	hull := convexHull(rowExtremes(points))
	if len(hull) < 2 {
		return 0, nil
	}
	if len(hull) == 2 {
		return foldAngle(edgeAngle(hull[0], hull[1])), nil
	}

	best := math.Inf(1)
	bestAngle := 0.0
	for i := range hull {
		p, q := hull[i], hull[(i+1)%len(hull)]
		dx, dy := float64(q.X-p.X), float64(q.Y-p.Y)
		n := math.Hypot(dx, dy)
		if n == 0 {
			continue
		}
		ux, uy := dx/n, dy/n
		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, r := range hull {
			rx, ry := float64(r.X), float64(r.Y)
			u := rx*ux + ry*uy
			v := -rx*uy + ry*ux
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}
		area := (maxU - minU) * (maxV - minV)
		if area < best-1e-9 {
			best = area
			bestAngle = edgeAngle(p, q)
		}
	}
	return foldAngle(bestAngle), nil
}

func edgeAngle(p, q image.Point) float64 {
	return math.Atan2(float64(q.Y-p.Y), float64(q.X-p.X)) * 180 / math.Pi
}

func foldAngle(a float64) float64 {
	for a > 45 {
		a -= 90
	}
	for a <= -45 {
		a += 90
	}
	if math.Abs(a) < 1e-9 {
		return 0
	}
	return a
}

// rowExtremes keeps only the leftmost and rightmost point of each row,
// which leaves the convex hull unchanged.
func rowExtremes(points []image.Point) []image.Point {
	type span struct{ lo, hi int }
	rows := make(map[int]span, 64)
	for _, p := range points {
		s, ok := rows[p.Y]
		if !ok {
			rows[p.Y] = span{p.X, p.X}
			continue
		}
		if p.X < s.lo {
			s.lo = p.X
		}
		if p.X > s.hi {
			s.hi = p.X
		}
		rows[p.Y] = s
	}
	out := make([]image.Point, 0, len(rows)*2)
	for y, s := range rows {
		out = append(out, image.Point{X: s.lo, Y: y})
		if s.hi != s.lo {
			out = append(out, image.Point{X: s.hi, Y: y})
		}
	}
	return out
}

// Rotate turns img about its centre by degrees (clockwise on screen),
// keeping its bounds. Uncovered pixels are white.
func (NativeBackend) Rotate(img *image.Gray, degrees float64) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	b := img.Bounds()
	out := image.NewGray(b)
	draw.Draw(out, b, image.NewUniform(color.White), image.Point{}, draw.Src)

	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	cx := float64(b.Min.X) + float64(b.Dx())/2
	cy := float64(b.Min.Y) + float64(b.Dy())/2
	s2d := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
	draw.BiLinear.Transform(out, s2d, img, b, draw.Src, nil)
	return out, nil
}
