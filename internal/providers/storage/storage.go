package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"
)

// Storage persists uploaded files and returns the public URL they are served from.
type Storage interface {
	Put(ctx context.Context, key string, contentType string, body io.Reader, size int64) (string, error)
}

const (
	ProofsPrefix  = "proofs"
	UploadsPrefix = "files"
)

var (
	ErrInvalidKey   = errors.New("invalid_storage_key")
	ErrNotAvailable = errors.New("storage_not_available")
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9.-]`)

// Sanitize replaces every character outside [A-Za-z0-9.-] with an underscore.
func Sanitize(name string) string {
	return unsafeChars.ReplaceAllString(path.Base(strings.ReplaceAll(name, `\`, "/")), "_")
}

// Extension returns the lower-cased extension of name without the dot, or fallback.
func Extension(name string, fallback string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(Sanitize(name))), ".")
	if ext == "" {
		return fallback
	}
	return ext
}

func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(key)), "/")
	if key == "" || key == "." {
		return "", ErrInvalidKey
	}
	return key, nil
}
