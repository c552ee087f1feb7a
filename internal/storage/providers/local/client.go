package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrlokans/campuslib/internal/storage"
)

var errOutsideRoot = errors.New("key escapes storage root")

// Client implements storage.Store on the local filesystem
type Client struct {
	root string
}

// NewClient creates the root directory if needed
func NewClient(root string) (*Client, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Client{root: root}, nil
}

func (c *Client) Save(ctx context.Context, key string, content io.Reader) error {
	target, err := c.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	// Write to a temp file in the same directory, then rename
	tmpFile, err := os.CreateTemp(filepath.Dir(target), ".upload_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if _, err := io.Copy(tmpFile, content); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, target)
}

func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	target, err := c.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotExist, key)
	}
	return f, err
}

func (c *Client) Delete(ctx context.Context, key string) error {
	target, err := c.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Root returns the storage directory path.
func (c *Client) Root() string {
	return c.root
}

func (c *Client) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", errOutsideRoot, key)
	}
	return filepath.Join(c.root, cleaned), nil
}
