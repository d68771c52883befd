package plaintext

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

// Decoder accepts UTF-8 text as is. A leading byte order mark is dropped.
type Decoder struct{}

func (Decoder) Decode(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "decode plain text", errors.New("content is not valid UTF-8"))
	}
	text := strings.TrimPrefix(string(raw), "\uFEFF")
	return strings.TrimSpace(text), nil
}
