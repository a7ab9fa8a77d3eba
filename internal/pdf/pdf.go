// Package pdf extracts plain text from uploaded PDF documents.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
)

// ErrNotPDF is returned when the payload does not carry a PDF signature.
var ErrNotPDF = errors.New("not a PDF document")

// ErrNoText is returned when a valid PDF yields no extractable text, for
// example a pure image scan.
var ErrNoText = errors.New("no extractable text in PDF")

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF signature.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// ExtractText returns the document's plain text. The signature is checked
// before parsing so obviously wrong uploads fail with ErrNotPDF instead of
// a parser error.
//
// The parser panics on some malformed documents; the recover turns those
// into ordinary errors so one bad upload cannot take down the server.
func ExtractText(data []byte) (text string, err error) {
	if !IsPDF(data) {
		return "", ErrNotPDF
	}

	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("parsing PDF: %v", r)
		}
	}()

	reader, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parsing PDF: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting PDF text: %w", err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, plain); err != nil {
		return "", fmt.Errorf("reading PDF text: %w", err)
	}

	text = strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
