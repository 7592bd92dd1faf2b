// Package reader loads disclosure files as normalized UTF-8 text.
//
// Plain text and markdown are read as-is, HTML filings are converted to
// markdown so tables survive as pipe rows, and PDFs are extracted page by
// page. EUC-KR input, common in older DART exports, is transcoded.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Format identifies how a file was decoded.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// DefaultMaxBytes bounds the size of a file the reader will load.
const DefaultMaxBytes = 64 << 20

var (
	// ErrEmptyPath is returned when no file path is given.
	ErrEmptyPath = errors.New("file path is empty")
	// ErrNotFound is returned when the file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrUnsupported is returned for binary formats the reader cannot decode.
	ErrUnsupported = errors.New("unsupported file format")
	// ErrTooLarge is returned when the file exceeds the size limit.
	ErrTooLarge = errors.New("file too large")
)

// Document is a decoded file.
type Document struct {
	Path   string
	MIME   string
	Format Format
	Text   string
	Pages  int
}

// Reader decodes files from the local filesystem.
type Reader struct {
	maxBytes int64
}

// New creates a Reader. maxBytes <= 0 uses DefaultMaxBytes.
func New(maxBytes int64) *Reader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Reader{maxBytes: maxBytes}
}

// Read loads path and returns its text content, NFC-normalized with Unix
// line endings.
func (r *Reader) Read(ctx context.Context, path string) (*Document, error) {
	_, span := otel.Tracer("dartrag.reader").Start(ctx, "reader.Read")
	defer span.End()

	doc, err := r.read(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("reader.format", string(doc.Format)),
		attribute.String("reader.mime", doc.MIME),
		attribute.Int("reader.chars", utf8.RuneCountInString(doc.Text)),
	)
	return doc, nil
}

func (r *Reader) read(path string) (*Document, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupported, path)
	}
	if info.Size() > r.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, info.Size(), r.maxBytes)
	}

	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect type of %s: %w", path, err)
	}

	doc := &Document{Path: path, MIME: mime.String()}
	switch {
	case mime.Is("application/pdf"):
		doc.Format = FormatPDF
		doc.Text, doc.Pages, err = extractPDF(path)
	case mime.Is("text/html") || hasExt(path, ".html", ".htm", ".xhtml"):
		doc.Format = FormatHTML
		doc.Text, err = readHTML(path)
	case isText(mime):
		doc.Format = FormatText
		if hasExt(path, ".md", ".markdown") {
			doc.Format = FormatMarkdown
		}
		doc.Text, err = readText(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mime.String())
	}
	if err != nil {
		return nil, err
	}
	doc.Text = normalize(doc.Text)
	return doc, nil
}

func isText(mime *mimetype.MIME) bool {
	for m := mime; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return decode(data)
}

func readHTML(path string) (string, error) {
	html, err := readText(path)
	if err != nil {
		return "", err
	}
	converted, err := md.NewConverter("", true, nil).ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert html %s: %w", path, err)
	}
	return converted, nil
}

// decode returns data as UTF-8, transcoding from EUC-KR when it is not
// already valid UTF-8.
func decode(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("transcode euc-kr: %w", err)
	}
	return string(out), nil
}

// extractPDF recovers from panics raised by corrupt streams in the pdf package.
func extractPDF(path string) (text string, pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, pages = "", 0
			err = fmt.Errorf("extract pdf %s: %v", path, rec)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	pages = r.NumPage()
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n\n")
	}
	return sb.String(), pages, nil
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(norm.NFC.String(s))
}
