package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is the embedded text of one PDF page, numbered from 1.
type Page struct {
	Number int
	Text   string
}

// PageSource reads embedded page text without rasterizing anything.
type PageSource interface {
	Pages(ctx context.Context, data []byte) ([]Page, error)
}

// LedongthucSource reads content streams with github.com/ledongthuc/pdf.
type LedongthucSource struct{}

func (LedongthucSource) Pages(ctx context.Context, data []byte) (pages []Page, err error) {
	// the parser panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n := r.NumPage()
	pages = make([]Page, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pages = append(pages, Page{Number: i, Text: joinGlyphs(p.Content().Text)})
	}
	return pages, nil
}

// joinGlyphs rebuilds page text from positioned glyphs: glyphs close
// together form a run, runs on a line are joined by one space and lines
// by a newline.
func joinGlyphs(texts []pdf.Text) string {
	var (
		lines   []string
		line    strings.Builder
		prev    pdf.Text
		started bool
	)
	flush := func() {
		if l := strings.TrimSpace(line.String()); l != "" {
			lines = append(lines, l)
		}
		line.Reset()
	}
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		if started {
			size := math.Max(prev.FontSize, 1)
			switch {
			case math.Abs(t.Y-prev.Y) > size*0.5:
				flush()
			case t.X-(prev.X+prev.W) > size*0.2 && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(t.S, " "):
				line.WriteByte(' ')
			}
		}
		line.WriteString(t.S)
		prev, started = t, true
	}
	flush()
	return strings.Join(lines, "\n")
}
