package classify

import (
	"strings"

	"github.com/joseph-ayodele/finextract/constants"
)

const (
	HeaderPrefix    = "DOCUMENT_TYPE: "
	ExtractedHeader = "EXTRACTED_DATA:"
)

// Annotated is cleaned text tagged with its kind and extracted fields.
// Text is the full annotated form handed to the semantic analyzer.
type Annotated struct {
	Kind   constants.DocumentKind
	Text   string
	Body   string
	Fields []ExtractedField
}

// Annotate classifies text, extracts its fields and renders
//
//	DOCUMENT_TYPE: <KIND>
//
//	<text>
//
//	EXTRACTED_DATA:
//	LABEL: match
//
// The EXTRACTED_DATA block is omitted when no field matched.
func Annotate(text string) Annotated {
	kind := Classify(text)
	fields := ExtractFields(kind, text)

	var b strings.Builder
	b.WriteString(HeaderPrefix)
	b.WriteString(string(kind))
	b.WriteString("\n\n")
	b.WriteString(text)
	if len(fields) > 0 {
		b.WriteString("\n\n")
		b.WriteString(ExtractedHeader)
		b.WriteByte('\n')
		for _, f := range fields {
			b.WriteString(f.Label)
			b.WriteString(": ")
			b.WriteString(f.Match)
			b.WriteByte('\n')
		}
	}
	return Annotated{Kind: kind, Text: b.String(), Body: text, Fields: fields}
}

// KindFromAnnotated reads the DOCUMENT_TYPE header back out of annotated text.
func KindFromAnnotated(text string) (constants.DocumentKind, bool) {
	line, _, _ := strings.Cut(text, "\n")
	label, ok := strings.CutPrefix(strings.TrimSpace(line), HeaderPrefix)
	if !ok {
		return constants.Unknown, false
	}
	return constants.CanonicalizeKind(label)
}
