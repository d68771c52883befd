package extractor

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

type memStorage struct {
	files map[string]string
}

func (m memStorage) Save(context.Context, string, io.Reader) (int64, error) {
	return 0, errors.New("read only")
}

func (m memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := m.files[key]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (m memStorage) Delete(context.Context, string) error { return nil }

type upperDecoder struct{}

func (upperDecoder) Decode(raw []byte) (string, error) { return strings.ToUpper(string(raw)), nil }

func TestExtractDispatchesByMimeThenExtension(t *testing.T) {
	storage := memStorage{files: map[string]string{
		"a": "<p>hello</p>",
		"b": "plain words",
	}}
	e := New(storage, 0)

	got, err := e.Extract(context.Background(), &domain.Document{StoragePath: "a", Filename: "page.bin", MimeType: "text/html; charset=utf-8"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "hello" {
		t.Fatalf("expected html decoding by mime type, got %q", got)
	}

	got, err = e.Extract(context.Background(), &domain.Document{StoragePath: "b", Filename: "notes.TXT", MimeType: "application/octet-stream"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "plain words" {
		t.Fatalf("expected plain text decoding by extension, got %q", got)
	}
}

func TestExtractRejectsUnknownFormat(t *testing.T) {
	e := New(memStorage{files: map[string]string{"a": "x"}}, 0)

	_, err := e.Extract(context.Background(), &domain.Document{StoragePath: "a", Filename: "slides.key", MimeType: "application/x-iwork"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestExtractEnforcesSizeLimit(t *testing.T) {
	e := New(memStorage{files: map[string]string{"a": "0123456789"}}, 4)

	_, err := e.Extract(context.Background(), &domain.Document{StoragePath: "a", Filename: "a.txt"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for oversized file, got %v", err)
	}
}

func TestRegisterOverridesDecoder(t *testing.T) {
	e := New(memStorage{files: map[string]string{"a": "shout"}}, 0)
	e.Register(upperDecoder{}, nil, ".txt")

	got, err := e.Extract(context.Background(), &domain.Document{StoragePath: "a", Filename: "a.txt"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "SHOUT" {
		t.Fatalf("expected registered decoder to win, got %q", got)
	}
}
