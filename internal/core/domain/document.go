package domain

import "time"

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Filename      string         `json:"filename"`
	MimeType      string         `json:"mime_type"`
	StoragePath   string         `json:"storage_path"`
	SizeBytes     int64          `json:"size_bytes"`
	Status        DocumentStatus `json:"status"`
	Error         string         `json:"error,omitempty"`
	ChunkCount    int            `json:"chunk_count"`
	ExtractedText string         `json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	LastAccessed  time.Time      `json:"last_accessed"`
}

// ListOptions pages through documents newest first.
type ListOptions struct {
	Limit  int
	Offset int
}

type DocumentPage struct {
	Documents []Document `json:"documents"`
	Count     int        `json:"count"`
}

// Chunk is one bounded span of a document's text. The JSON shape is the
// storage/wire contract shared with every collaborator.
type Chunk struct {
	Content    string `json:"content"`
	ChunkIndex int    `json:"chunkIndex"`
	// PageNumber is reserved; extraction does not map text to pages.
	PageNumber int `json:"pageNumber"`
}

func ChunkIndexes(chunks []Chunk) []int {
	out := make([]int, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, chunk.ChunkIndex)
	}
	return out
}
