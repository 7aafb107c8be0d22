// Package pagination carries keyset page tokens between the admin list
// endpoints and the repositories.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

// DefaultPageSize is used when a request leaves page_size unset.
const DefaultPageSize = 10

var ErrInvalidPageToken = errors.New("invalid_page_token")

// Pagination is bound from the page_token and page_size query parameters.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=10" validate:"gte=1,lte=250"`
}

// Size returns the effective page size.
func (p Pagination) Size() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	return p.PageSize
}

// Cursor is the decoded form of a page token. ID is the last snowflake id
// seen on the previous page.
type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken     string `json:"next_page_token"`
	PreviousPageToken string `json:"previous_page_token,omitempty"`
	HasMore           bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func DecodeCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidPageToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidPageToken
	}
	c := &Cursor{}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, ErrInvalidPageToken
	}
	return c, nil
}

// BuildCursorPageInfo expects rows fetched with limit+1. The extra row only
// signals HasMore; the next token points at the last row actually returned.
func BuildCursorPageInfo[T any](rows []*T, limit int32, token func(*T) string) *PageInfo {
	info := &PageInfo{}
	n := len(rows)
	if n == 0 {
		return info
	}
	if limit > 0 && n > int(limit) {
		info.HasMore = true
		n = int(limit)
	}
	if info.HasMore {
		info.NextPageToken = token(rows[n-1])
	}
	return info
}
