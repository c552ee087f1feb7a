package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// ErrNotExist is returned by Open for an unknown key.
var ErrNotExist = errors.New("file does not exist")

// Store keeps uploaded files under opaque keys.
type Store interface {
	// Save writes content under key
	Save(ctx context.Context, key string, content io.Reader) error

	// Open retrieves the contents stored under key
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the file. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

// NewKey builds a unique key inside folder that keeps a sanitised copy of the
// original file name, e.g. "resources/20310106-<uuid>-paper.pdf".
func NewKey(folder, originalName string) string {
	name := unsafeChars.ReplaceAllString(path.Base(originalName), "_")
	if name == "" || name == "." || name == "_" {
		name = "file"
	}
	return path.Join(folder, fmt.Sprintf("%s-%s-%s", time.Now().Format("20060102"), uuid.NewString(), name))
}

// SaveNew stores content under a fresh key in folder and returns the key.
func SaveNew(ctx context.Context, store Store, folder, originalName string, content io.Reader) (string, error) {
	key := NewKey(folder, originalName)
	if err := store.Save(ctx, key, content); err != nil {
		return "", err
	}
	return key, nil
}
