// Package extractor picks a format decoder for a stored document and returns
// its plain text.
package extractor

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
	"github.com/kirillkom/study-assistant/internal/infrastructure/extractor/htmltext"
	"github.com/kirillkom/study-assistant/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/study-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/study-assistant/internal/infrastructure/extractor/xlsx"
)

// Decoder turns raw file bytes of one format into text.
type Decoder interface {
	Decode(raw []byte) (string, error)
}

type Extractor struct {
	storage  ports.ObjectStorage
	maxBytes int64
	byMime   map[string]Decoder
	byExt    map[string]Decoder
}

func New(storage ports.ObjectStorage, maxBytes int64) *Extractor {
	e := &Extractor{
		storage:  storage,
		maxBytes: maxBytes,
		byMime:   map[string]Decoder{},
		byExt:    map[string]Decoder{},
	}
	e.Register(pdf.Decoder{}, []string{"application/pdf"}, ".pdf")
	e.Register(xlsx.Decoder{}, []string{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}, ".xlsx")
	e.Register(htmltext.Decoder{}, []string{"text/html", "application/xhtml+xml"}, ".html", ".htm", ".xhtml")
	e.Register(plaintext.Decoder{}, []string{"text/plain", "text/markdown", "text/csv"}, ".txt", ".md", ".markdown", ".csv")
	return e
}

// Register maps mime types and file extensions to a decoder. Later
// registrations win.
func (e *Extractor) Register(decoder Decoder, mimeTypes []string, extensions ...string) {
	for _, m := range mimeTypes {
		e.byMime[strings.ToLower(m)] = decoder
	}
	for _, ext := range extensions {
		e.byExt[strings.ToLower(ext)] = decoder
	}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	decoder, ok := e.decoderFor(doc)
	if !ok {
		return "", domain.WrapError(
			domain.ErrInvalidInput,
			"extract text",
			fmt.Errorf("unsupported document format: %s (%s)", doc.Filename, doc.MimeType),
		)
	}

	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	var src io.Reader = reader
	if e.maxBytes > 0 {
		src = io.LimitReader(reader, e.maxBytes+1)
	}
	raw, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}
	if e.maxBytes > 0 && int64(len(raw)) > e.maxBytes {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("document exceeds %d bytes", e.maxBytes))
	}

	return decoder.Decode(raw)
}

// decoderFor prefers the declared mime type and falls back to the extension,
// since browsers often send application/octet-stream.
func (e *Extractor) decoderFor(doc *domain.Document) (Decoder, bool) {
	if mediaType, _, err := mime.ParseMediaType(doc.MimeType); err == nil {
		if decoder, ok := e.byMime[strings.ToLower(mediaType)]; ok {
			return decoder, true
		}
	}
	decoder, ok := e.byExt[strings.ToLower(filepath.Ext(doc.Filename))]
	return decoder, ok
}
