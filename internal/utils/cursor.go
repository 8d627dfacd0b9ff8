package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// KeysetCursor marks the last row of a page ordered by (created_at, id) desc.
type KeysetCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        int64     `json:"id"`
}

var ErrInvalidCursor = errors.New("invalid cursor")

func EncodeCursor(createdAt time.Time, id int64) (string, error) {
	b, err := json.Marshal(KeysetCursor{CreatedAt: createdAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(cursor string) (KeysetCursor, error) {
	if cursor == "" {
		return KeysetCursor{}, ErrInvalidCursor
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return KeysetCursor{}, ErrInvalidCursor
	}

	var c KeysetCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return KeysetCursor{}, ErrInvalidCursor
	}
	if c.ID <= 0 || c.CreatedAt.IsZero() {
		return KeysetCursor{}, ErrInvalidCursor
	}
	return c, nil
}
