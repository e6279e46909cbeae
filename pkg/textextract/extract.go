package textextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedType = errors.New("unsupported file type")

// Page is the plain text of one page. Number is 0-based.
type Page struct {
	Number int
	Text   string
}

type ExtractedText struct {
	Pages    []Page
	NumPages int
	Metadata map[string]string
}

// Content joins all page texts with newlines.
func (e *ExtractedText) Content() string {
	var sb strings.Builder
	for _, p := range e.Pages {
		sb.WriteString(p.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

func Extract(data io.ReaderAt, size int64, fileType string) (*ExtractedText, error) {
	switch strings.ToLower(fileType) {
	case ".pdf", "pdf", "application/pdf":
		return extractPDF(data, size)
	case ".txt", "txt", "text/plain":
		return extractTXT(data, size)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, fileType)
	}
}

func SupportedTypes() []string {
	return []string{".pdf", ".txt"}
}

func extractPDF(data io.ReaderAt, size int64) (result *ExtractedText, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("parse PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]Page, 0, numPages)

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, Page{Number: i - 1, Text: text})
	}

	return &ExtractedText{
		Pages:    pages,
		NumPages: numPages,
		Metadata: map[string]string{
			"type": "pdf",
		},
	}, nil
}

func extractTXT(data io.ReaderAt, size int64) (*ExtractedText, error) {
	buf := make([]byte, size)
	_, err := data.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read TXT: %w", err)
	}

	// Form feeds separate pages in text exports.
	raw := bytes.Split(buf, []byte("\f"))
	pages := make([]Page, len(raw))
	for i, p := range raw {
		pages[i] = Page{Number: i, Text: string(bytes.TrimSpace(p))}
	}

	return &ExtractedText{
		Pages:    pages,
		NumPages: len(pages),
		Metadata: map[string]string{
			"type": "txt",
		},
	}, nil
}
