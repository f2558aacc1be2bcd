package permission

import (
	"encoding/json"
	"fmt"
	"time"

	"boardstore/internal/storeerr"

	"github.com/google/uuid"
)

// SettingName is the settings entry that holds the persisted token.
const SettingName = "folder_handle"

// Token is the persisted reference to a user-chosen directory. Holding a
// token says nothing about whether access is currently allowed; that is the
// State tracked by the Gate.
type Token struct {
	ID        uuid.UUID `json:"id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// NewToken mints a token for path.
func NewToken(path string) Token {
	return Token{
		ID:        uuid.New(),
		Path:      path,
		CreatedAt: time.Now().UTC(),
	}
}

// IsZero reports whether t is the zero token.
func (t Token) IsZero() bool {
	return t.ID == uuid.Nil
}

func (t Token) String() string {
	return fmt.Sprintf("%s (%s)", t.Path, t.ID)
}

// ParseToken decodes a persisted token. Records without an id or a path are
// corrupt.
func ParseToken(data []byte) (Token, error) {
	var t Token
	if err := json.Unmarshal(data, &t); err != nil {
		return Token{}, fmt.Errorf("%w: token: %v", storeerr.ErrCorruptData, err)
	}
	if t.IsZero() || t.Path == "" {
		return Token{}, fmt.Errorf("%w: token missing id or path", storeerr.ErrCorruptData)
	}
	return t, nil
}
