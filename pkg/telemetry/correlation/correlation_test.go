package correlation

import (
	"context"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsure(t *testing.T) {
	ctx, id := Ensure(context.Background())
	_, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, FromContext(ctx))

	again, same := Ensure(ctx)
	assert.Equal(t, id, same)
	assert.Equal(t, ctx, again)
}

func TestWithID(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		id   string
		want string
	}{
		{name: "trimmed", id: "  quote-42 ", want: "quote-42"},
		{name: "blank", id: "   ", want: ""},
		{name: "inner space", id: "quote 42", want: ""},
		{name: "control", id: "quote\x0042", want: ""},
		{name: "too long", id: strings.Repeat("a", MaxIDLength+1), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromContext(WithID(ctx, tt.id)))
		})
	}

	tagged, id := Ensure(WithID(ctx, "quote-42"))
	assert.Equal(t, "quote-42", id)
	assert.Equal(t, "quote-42", FromContext(tagged))
	assert.Empty(t, FromContext(nil))
}
