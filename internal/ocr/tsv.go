package ocr

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

const tsvHeader = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext"

// wordLevel is tesseract's RIL_WORD row level in TSV output.
const wordLevel = 5

// ParseTSV reads tesseract's 12-column TSV and returns the word rows.
// Rows with conf -1 (layout rows) and empty text are skipped.
func ParseTSV(tsv string) []Word {
	var words []Word
	for i, ln := range strings.Split(tsv, "\n") {
		ln = strings.TrimRight(ln, "\r")
		if ln == "" || (i == 0 && strings.HasPrefix(ln, "level")) {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		if level, err := strconv.Atoi(cols[0]); err != nil || level != wordLevel {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(strings.Join(cols[11:], "\t"))
		if text == "" {
			continue
		}
		n := atoiAll(cols[2:10])
		words = append(words, Word{
			Text:       text,
			Confidence: conf,
			Block:      n[0],
			Par:        n[1],
			Line:       n[2],
			Num:        n[3],
			Box:        image.Rect(n[4], n[5], n[4]+n[6], n[5]+n[7]),
		})
	}
	return words
}

func atoiAll(cols []string) []int {
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i], _ = strconv.Atoi(strings.TrimSpace(c))
	}
	return out
}

// RenderTSV writes words back out in tesseract's TSV layout (word rows only).
func RenderTSV(words []Word) string {
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(tsvHeader)
	b.WriteByte('\n')
	for _, w := range words {
		fmt.Fprintf(&b, "%d\t1\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			wordLevel, w.Block, w.Par, w.Line, w.Num,
			w.Box.Min.X, w.Box.Min.Y, w.Box.Dx(), w.Box.Dy(),
			strconv.FormatFloat(w.Confidence, 'f', 6, 64), w.Text)
	}
	return b.String()
}

// MeanConfidence averages word confidences; zero when there are no words.
func MeanConfidence(words []Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}

// TextFromWords rebuilds reading-order text: words on a line joined by a
// space, lines by a newline, blocks by a blank line.
func TextFromWords(words []Word) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			prev := words[i-1]
			switch {
			case w.Block != prev.Block:
				b.WriteString("\n\n")
			case w.Par != prev.Par || w.Line != prev.Line:
				b.WriteByte('\n')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteString(w.Text)
	}
	return b.String()
}
