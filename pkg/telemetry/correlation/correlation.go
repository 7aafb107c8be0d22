// Package correlation threads one id through a payment flow: the inbound
// request, the gateway calls it makes and the emails it sends.
package correlation

import (
	"context"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
)

const HeaderName = "X-Correlation-Id"

type key struct{}

func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key{}).(string)
	return id
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id = strings.TrimSpace(id); id == "" {
		return ctx
	}
	return context.WithValue(ctx, key{}, id)
}

// EnsureCorrelationID returns ctx unchanged when it already carries an id,
// otherwise it attaches a fresh ULID.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := ExtractCorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := ulid.Make().String()
	return context.WithValue(ctx, key{}, id), id
}

// FromRequest prefers the caller supplied header over a new id.
func FromRequest(ctx context.Context, header http.Header) (context.Context, string) {
	if id := strings.TrimSpace(header.Get(HeaderName)); id != "" {
		return context.WithValue(ctx, key{}, id), id
	}
	return EnsureCorrelationID(ctx)
}
