package app

import (
	"bytes"
	"fmt"
	"math"

	"github.com/ledongthuc/pdf"
	"jobportal/pkg/domain"
)

// pdfMimeType is the only media type that triggers metadata extraction.
const pdfMimeType = "application/pdf"

// extractPDFMetadata derives page count and first-page dimensions in inches
// from raw PDF bytes. The parser panics on some malformed inputs, so the
// whole extraction runs under recover; every failure path returns nil
// metadata and an error the caller only logs.
func extractPDFMetadata(data []byte) (meta *domain.PDFMetadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			meta = nil
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	pageCount := reader.NumPage()
	if pageCount < 1 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	page := reader.Page(1)
	if page.V.IsNull() {
		return nil, fmt.Errorf("first page unreadable")
	}
	mediaBox := findMediaBox(page.V)
	if mediaBox.IsNull() || mediaBox.Len() < 4 {
		return nil, fmt.Errorf("media box missing")
	}
	widthPts := mediaBox.Index(2).Float64() - mediaBox.Index(0).Float64()
	heightPts := mediaBox.Index(3).Float64() - mediaBox.Index(1).Float64()
	if widthPts <= 0 || heightPts <= 0 {
		return nil, fmt.Errorf("media box degenerate")
	}
	return &domain.PDFMetadata{
		PageCount: pageCount,
		Width:     pointsToInches(widthPts),
		Height:    pointsToInches(heightPts),
	}, nil
}

// findMediaBox walks up the page tree; MediaBox may be inherited from a
// parent Pages node. The depth cap guards against cyclic Parent chains in
// malformed files.
func findMediaBox(v pdf.Value) pdf.Value {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if mb := v.Key("MediaBox"); !mb.IsNull() {
			return mb
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}

// pointsToInches converts PDF points (72 per inch) to inches rounded to one
// decimal place.
func pointsToInches(pts float64) float64 {
	return math.Round(pts/72*10) / 10
}
