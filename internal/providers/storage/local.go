package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Local writes files below Root and serves them under PublicPrefix.
type Local struct {
	root         string
	publicPrefix string
	log          *zap.Logger
}

func NewLocal(root, publicPrefix string, log *zap.Logger) (*Local, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: local root is empty", ErrNotAvailable)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Local{
		root:         root,
		publicPrefix: "/" + strings.Trim(publicPrefix, "/"),
		log:          log,
	}, nil
}

func (l *Local) Root() string         { return l.root }
func (l *Local) PublicPrefix() string { return l.publicPrefix }

func (l *Local) Put(ctx context.Context, key string, contentType string, body io.Reader, size int64) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	target := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", err
	}

	l.log.Debug("stored file", zap.String("key", key), zap.Int64("bytes", written), zap.String("content_type", contentType))
	return l.publicPrefix + "/" + key, nil
}
