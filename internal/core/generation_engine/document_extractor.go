package generation_engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"

	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/logger"
)

const pdfContentType = "application/pdf"

// PDFExtractor pulls plain text out of an uploaded PDF. docconv is tried first since
// it keeps layout better; the pure Go reader covers hosts without poppler installed.
type PDFExtractor struct {
	useReadability bool
}

var _ core.DocumentExtractor = (*PDFExtractor)(nil)

func NewPDFExtractor(useReadability bool) *PDFExtractor {
	return &PDFExtractor{useReadability: useReadability}
}

func (e *PDFExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", core.ErrNoText
	}
	if contentType == "" {
		contentType = pdfContentType
	}

	text, err := e.convert(data, contentType)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			logger.Debug("docconv extraction failed, using pdf reader", "content_type", contentType, "err", err)
		}
		text, err = readPlainText(data)
		if err != nil {
			// neither reader could open it, so it is not a PDF we can use
			return "", fmt.Errorf("%w: %v", core.ErrUnsupportedFile, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	text = cleanLines(text)
	if text == "" {
		return "", core.ErrNoText
	}
	return text, nil
}

func (e *PDFExtractor) convert(data []byte, contentType string) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

func readPlainText(data []byte) (text string, err error) {
	// the reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// cleanLines trims every line and drops the blank ones.
func cleanLines(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
