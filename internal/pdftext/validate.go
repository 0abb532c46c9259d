package pdftext

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Validator rejects corrupt or encrypted PDFs before text extraction.
type Validator interface {
	Validate(ctx context.Context, data []byte) (pageCount int, err error)
}

// PDFCPUValidator validates with pdfcpu's relaxed model.
type PDFCPUValidator struct{}

func (PDFCPUValidator) Validate(ctx context.Context, data []byte) (n int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("pdf validate panic: %v", r)
		}
	}()
	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu read: %w", err)
	}
	return pctx.PageCount, nil
}
