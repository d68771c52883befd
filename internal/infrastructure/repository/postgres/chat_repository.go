package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// AppendMessages stores a question and its answer together.
func (r *ChatRepository) AppendMessages(ctx context.Context, messages ...domain.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chat tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, message := range messages {
		if message.CreatedAt.IsZero() {
			message.CreatedAt = time.Now().UTC()
		}
		sources := message.Sources
		if sources == nil {
			sources = []int{}
		}
		sourcesJSON, err := json.Marshal(sources)
		if err != nil {
			return fmt.Errorf("marshal sources: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO chat_messages (id, document_id, role, content, sources, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, message.ID, message.DocumentID, string(message.Role), message.Content, sourcesJSON, message.CreatedAt); err != nil {
			return fmt.Errorf("append message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chat tx: %w", err)
	}
	return nil
}

// ListMessages returns the history oldest first. A question and its answer
// share a timestamp, and "user" sorts after "assistant", hence role DESC.
func (r *ChatRepository) ListMessages(ctx context.Context, documentID string) ([]domain.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, role, content, sources, created_at
FROM chat_messages
WHERE document_id = $1
ORDER BY created_at ASC, role DESC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0)
	for rows.Next() {
		var msg domain.ChatMessage
		var role string
		var sourcesRaw []byte
		if err := rows.Scan(&msg.ID, &msg.DocumentID, &role, &msg.Content, &sourcesRaw, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal(sourcesRaw, &msg.Sources); err != nil {
			return nil, fmt.Errorf("unmarshal sources: %w", err)
		}
		msg.Role = domain.ChatRole(role)
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func (r *ChatRepository) DeleteMessages(ctx context.Context, documentID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}
