package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano // Use a precise time format

// Cursor is the position of the last row of a page ordered by date, creation time and id, all descending.
type Cursor struct {
	Date      time.Time
	CreatedAt time.Time
	ID        string
}

// After reports whether a row at (date, createdAt, id) comes after the cursor in descending order.
func (c Cursor) After(date, createdAt time.Time, id string) bool {
	if !date.Equal(c.Date) {
		return date.Before(c.Date)
	}
	if !createdAt.Equal(c.CreatedAt) {
		return createdAt.Before(c.CreatedAt)
	}
	return id < c.ID
}

// EncodeToken creates a base64 encoded token from a row's business date, creation time and id.
// This is used for consistent pagination across different repositories.
func EncodeToken(date time.Time, createdAt time.Time, id string) string {
	tokenStr := fmt.Sprintf("%s|%s|%s", date.Format(timeFormat), createdAt.Format(timeFormat), id)
	return base64.StdEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses the base64 encoded token back into a cursor.
func DecodeToken(token string) (Cursor, error) {
	decodedBytes, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 3)
	if len(parts) != 3 {
		return Cursor{}, fmt.Errorf("invalid pagination token format (split)")
	}

	date, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (date parse): %w", err)
	}
	createdAt, err := time.Parse(timeFormat, parts[1])
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (created_at parse): %w", err)
	}

	return Cursor{Date: date, CreatedAt: createdAt, ID: parts[2]}, nil
}
