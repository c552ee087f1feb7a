package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/campuslib/internal/storage"
)

// FileOpener reads stored files by key.
type FileOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// CoversController serves cover thumbnails of books and digital resources.
type CoversController struct {
	catalog   Catalog
	resources Resources
	files     FileOpener
}

// NewCoversController creates a new CoversController.
func NewCoversController(catalog Catalog, res Resources, files FileOpener) *CoversController {
	return &CoversController{
		catalog:   catalog,
		resources: res,
		files:     files,
	}
}

// GetBookCover serves a book's cover image.
// GET /books/:id/cover
func (cc *CoversController) GetBookCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		respondLibraryError(c, err, "/books", "get book cover")
		return
	}
	cc.serve(c, book.CoverKey)
}

// GetResourceCover serves a digital resource's cover image.
// GET /digital-resources/:id/cover
func (cc *CoversController) GetResourceCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	res, err := cc.resources.Get(c.Request.Context(), id)
	if err != nil {
		respondLibraryError(c, err, "/digital-resources", "get resource cover")
		return
	}
	cc.serve(c, res.CoverKey)
}

func (cc *CoversController) serve(c *gin.Context, key string) {
	if key == "" {
		respondNotFound(c, "cover")
		return
	}

	content, err := cc.files.Open(c.Request.Context(), key)
	if errors.Is(err, storage.ErrNotExist) {
		respondNotFound(c, "cover")
		return
	}
	if err != nil {
		respondInternalError(c, err, "open cover")
		return
	}
	defer content.Close()

	// Covers are re-encoded as JPEG on upload and never change under a key
	c.DataFromReader(http.StatusOK, -1, "image/jpeg", content, map[string]string{
		"Cache-Control": "private, max-age=86400",
	})
}
