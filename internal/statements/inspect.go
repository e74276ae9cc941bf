package statements

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

const mimePDF = "application/pdf"

// MaxSize bounds a single statement upload.
const MaxSize = 20 << 20

var (
	ErrEmpty    = errors.New("statement is empty")
	ErrTooLarge = errors.New("statement exceeds size limit")
	ErrNotPDF   = errors.New("statement is not a pdf")
	ErrNoPages  = errors.New("statement has no pages")
)

// Info describes an inspected statement.
type Info struct {
	Size  int
	Pages int
}

// Inspect checks that data is a readable PDF with at least one page.
func Inspect(ctx context.Context, data []byte, contentType string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	if len(data) == 0 {
		return Info{}, ErrEmpty
	}
	if len(data) > MaxSize {
		return Info{}, ErrTooLarge
	}
	if ct := normalizeMimeType(contentType); ct != "" && ct != mimePDF && ct != "application/octet-stream" {
		return Info{}, fmt.Errorf("%w: content type %s", ErrNotPDF, ct)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\r\n\t "), []byte("%PDF-")) {
		return Info{}, ErrNotPDF
	}

	pages, err := countPages(data)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if pages < 1 {
		return Info{}, ErrNoPages
	}
	return Info{Size: len(data), Pages: pages}, nil
}

// ReadAll reads at most MaxSize+1 bytes so oversized uploads fail in Inspect
// without buffering the whole body.
func ReadAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, MaxSize+1))
}

func countPages(data []byte) (pages int, err error) {
	// The parser panics on some truncated inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}

func normalizeMimeType(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}
