// Package correlation tags a calculation with an ID that follows it through
// logs and spans. Generated IDs are ULIDs so they sort by creation time.
package correlation

import (
	"context"
	"strings"
	"unicode"

	"github.com/oklog/ulid/v2"
)

// MaxIDLength bounds IDs accepted from callers.
const MaxIDLength = 128

type key struct{}

// FromContext returns the correlation ID carried by ctx, if any.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key{}).(string)
	return id
}

// WithID attaches a caller supplied ID. IDs that are blank, too long or
// contain spaces or control characters are ignored.
func WithID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if !Valid(id) {
		return ctx
	}
	return context.WithValue(ctx, key{}, id)
}

// Ensure returns ctx carrying a correlation ID, generating one when missing.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := NewID()
	return context.WithValue(ctx, key{}, id), id
}

func NewID() string {
	return ulid.Make().String()
}

// Valid reports whether id can be used as a correlation ID.
func Valid(id string) bool {
	if id == "" || len(id) > MaxIDLength {
		return false
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
