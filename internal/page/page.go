// Package page implements the cursor pagination contract shared by every
// listing endpoint: a request carries {pageSize, cursor}, a response carries
// {items, cursor, empty}. Cursors are opaque to clients and encode the keyset
// position of the last entity on the previous page.
package page

import (
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 30
)

// Params are the client-supplied pagination inputs. An empty cursor means
// "start from the beginning".
type Params struct {
	PageSize int
	Cursor   string
}

// Limit returns the effective page size: default when unset, silently capped
// at MaxPageSize. Oversized requests are clamped, not rejected.
func (p Params) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// Page is the response envelope. Empty is true iff Items has no elements;
// Cursor is only meaningful when Empty is false. The final non-empty page
// still carries a cursor; fetching with it yields an empty page, which is
// how callers detect the end.
type Page[T any] struct {
	Items  []T    `json:"items"`
	Cursor string `json:"cursor"`
	Empty  bool   `json:"empty"`
}

// New assembles a page from fetched items, deriving the cursor from the last
// item in the query's order.
func New[T any](items []T, cursorOf func(T) string) Page[T] {
	if len(items) == 0 {
		return Page[T]{Items: []T{}, Empty: true}
	}
	return Page[T]{
		Items:  items,
		Cursor: cursorOf(items[len(items)-1]),
	}
}

// Token is the decoded form of a time-ordered cursor: the (timestamp, id)
// pair of the entity to resume after. The id breaks ties between entities
// sharing a timestamp, keeping pages disjoint.
type Token struct {
	At time.Time
	ID string
}

// EncodeToken renders a time-ordered cursor as "<epochMicros>,<id>".
// Microsecond resolution matches the timestamps Postgres stores, so the
// decoded position compares equal to the boundary row and the keyset
// predicate never skips rows that share its millisecond.
func EncodeToken(at time.Time, id string) string {
	return strconv.FormatInt(at.UnixMicro(), 10) + "," + id
}

// DecodeToken parses a time-ordered cursor. Malformed input (wrong field
// count, non-numeric timestamp, blank id) reports ok=false and callers treat
// the request as cursorless rather than failing it. A cursor whose entity has
// since been deleted still decodes; keyset comparison degrades gracefully.
func DecodeToken(cursor string) (Token, bool) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return Token{}, false
	}
	micros, id, found := strings.Cut(cursor, ",")
	if !found || id == "" {
		return Token{}, false
	}
	epoch, err := strconv.ParseInt(micros, 10, 64)
	if err != nil {
		return Token{}, false
	}
	return Token{At: time.UnixMicro(epoch).UTC(), ID: id}, true
}

// EncodeID renders an identifier-ordered cursor; it is simply the id itself.
func EncodeID(id string) string {
	return id
}

// DecodeID parses an identifier-ordered cursor. Blank means no cursor.
func DecodeID(cursor string) (string, bool) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return "", false
	}
	return cursor, true
}
