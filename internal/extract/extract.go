// Package extract turns uploaded files into the plain text that gets indexed.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

// Result is the text of a file together with the content type of the original.
type Result struct {
	Text        string
	ContentType string
}

// Text extracts the text of a file. PDFs are parsed; text formats are used as-is.
func Text(name string, data []byte) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(name))
	contentType := http.DetectContentType(data)

	switch {
	case ext == ".pdf" || contentType == "application/pdf":
		text, err := pdfText(data)
		if err != nil {
			return nil, err
		}
		return &Result{Text: text, ContentType: "application/pdf"}, nil
	case ext == ".md" || ext == ".markdown":
		return plain(data, "text/markdown; charset=utf-8")
	case ext == ".txt" || ext == "" || strings.HasPrefix(contentType, "text/"):
		return plain(data, "text/plain; charset=utf-8")
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

func plain(data []byte, contentType string) (*Result, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrUnsupportedFormat)
	}
	return &Result{Text: Normalize(string(data)), ContentType: contentType}, nil
}

func pdfText(data []byte) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return Normalize(buf.String()), nil
}

// Normalize unifies line endings and trims trailing blanks of every line.
func Normalize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
