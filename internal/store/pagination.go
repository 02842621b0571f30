package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type CursorPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// OrderCursor is the keyset position of the last order on a page. Orders are
// listed newest first by (created_at, id).
type OrderCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        int64     `json:"id"`
}

func EncodeCursor(cursor OrderCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor parses an encoded cursor. The empty string yields a cursor
// positioned before the newest possible order.
func DecodeCursor(encoded string) (OrderCursor, error) {
	var cursor OrderCursor
	if encoded == "" {
		return OrderCursor{
			CreatedAt: time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC),
			ID:        math.MaxInt64,
		}, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return cursor, fmt.Errorf("decode cursor: %w", err)
	}

	if err := json.Unmarshal(data, &cursor); err != nil {
		return cursor, fmt.Errorf("unmarshal cursor: %w", err)
	}
	return cursor, nil
}

// Before reports whether an order at (createdAt, id) sorts after the cursor
// in newest-first order.
func (c OrderCursor) Before(createdAt time.Time, id int64) bool {
	if createdAt.Equal(c.CreatedAt) {
		return id < c.ID
	}
	return createdAt.Before(c.CreatedAt)
}
