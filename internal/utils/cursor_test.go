package utils

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 6000, time.UTC)

	enc, err := EncodeCursor(at, 17)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	c, err := DecodeCursor(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if c.ID != 17 || !c.CreatedAt.Equal(at) {
		t.Fatalf("unexpected cursor %+v", c)
	}
}

func TestDecodeCursorRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"not base64": "%%%",
		"not json":   base64.RawURLEncoding.EncodeToString([]byte("nope")),
		"zero id":    base64.RawURLEncoding.EncodeToString([]byte(`{"createdAt":"2025-01-01T00:00:00Z","id":0}`)),
		"no time":    base64.RawURLEncoding.EncodeToString([]byte(`{"id":3}`)),
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeCursor(in); err != ErrInvalidCursor {
				t.Fatalf("expected ErrInvalidCursor, got %v", err)
			}
		})
	}
}
