// Package covers normalises uploaded cover images for books and digital
// resources before they reach the file store.
package covers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/mrlokans/campuslib/internal/storage"
)

const (
	MaxWidth  = 600
	MaxHeight = 900

	jpegQuality = 85
)

var ErrNotAnImage = errors.New("cover is not a supported image")

// Processor shrinks covers to fit MaxWidth x MaxHeight and re-encodes them as JPEG.
type Processor struct {
	store storage.Store
}

func NewProcessor(store storage.Store) *Processor {
	return &Processor{store: store}
}

// Thumbnail decodes src (JPEG, PNG, GIF, BMP or TIFF) and returns a JPEG no
// larger than MaxWidth x MaxHeight. Smaller images keep their size.
func Thumbnail(src io.Reader) ([]byte, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > MaxWidth || bounds.Dy() > MaxHeight {
		img = imaging.Fit(img, MaxWidth, MaxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode cover: %w", err)
	}
	return buf.Bytes(), nil
}

// Save stores a thumbnail of src in folder and returns its storage key.
func (p *Processor) Save(ctx context.Context, folder, originalName string, src io.Reader) (string, error) {
	thumb, err := Thumbnail(src)
	if err != nil {
		return "", err
	}
	name := strings.TrimSuffix(path.Base(originalName), path.Ext(originalName)) + ".jpg"
	return storage.SaveNew(ctx, p.store, folder, name, bytes.NewReader(thumb))
}
