package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/campuslib/internal/covers"
	"github.com/mrlokans/campuslib/internal/entities"
	"github.com/mrlokans/campuslib/internal/forms"
)

// BooksController serves the catalog and students' book requests.
type BooksController struct {
	catalog       Catalog
	lending       Lending
	maxUploadSize int64
}

// NewBooksController creates a new BooksController.
func NewBooksController(catalog Catalog, lending Lending, maxUploadSize int64) *BooksController {
	return &BooksController{
		catalog:       catalog,
		lending:       lending,
		maxUploadSize: maxUploadSize,
	}
}

type bookForm struct {
	Name            string `form:"name" json:"name" validate:"required,max=200"`
	Author          string `form:"author" json:"author" validate:"max=200"`
	ExternalID      string `form:"external_id" json:"external_id" validate:"required,max=64"`
	Description     string `form:"description" json:"description" validate:"max=5000"`
	AvailableCopies int    `form:"available_copies" json:"available_copies" validate:"gte=0,lte=10000"`
}

// ListBooks handles GET /books?search=
func (bc *BooksController) ListBooks(c *gin.Context) {
	books, err := bc.catalog.ListBooks(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"books": books,
		"count": len(books),
	})
}

// GetBook handles GET /books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		respondLibraryError(c, err, "/books", "get book")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"book":      book,
		"available": book.IsAvailable(),
	})
}

// AddBook handles POST /books
func (bc *BooksController) AddBook(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var form bookForm
	if errs := forms.Bind(c, &form); errs != nil {
		forms.Respond(c, errs)
		return
	}

	book := &entities.Book{
		Name:            form.Name,
		Author:          form.Author,
		ExternalID:      form.ExternalID,
		Description:     form.Description,
		AvailableCopies: form.AvailableCopies,
	}
	if err := bc.catalog.AddBook(c.Request.Context(), user.ID, book); err != nil {
		respondLibraryError(c, err, "/books", "add book")
		return
	}

	respondCreated(c, gin.H{
		"book":     book,
		"redirect": "/books/" + strconv.FormatUint(uint64(book.ID), 10),
	})
}

// UploadCover handles POST /books/:id/cover with a multipart "cover" file.
func (bc *BooksController) UploadCover(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	limitBody(c, bc.maxUploadSize)
	header, err := c.FormFile("cover")
	if err != nil {
		forms.Respond(c, forms.FieldErrors{{Field: "cover", Message: "This field is required."}})
		return
	}
	file, err := header.Open()
	if err != nil {
		respondInternalError(c, err, "open cover upload")
		return
	}
	defer file.Close()

	book, err := bc.catalog.SetBookCover(c.Request.Context(), user.ID, id, header.Filename, file)
	if err != nil {
		if errors.Is(err, covers.ErrNotAnImage) {
			forms.Respond(c, forms.FieldErrors{{Field: "cover", Message: "Upload a valid image."}})
			return
		}
		respondLibraryError(c, err, "/books", "set book cover")
		return
	}

	respondDone(c, "cover updated", book, "")
}

// RequestBook handles POST /books/:id/request
func (bc *BooksController) RequestBook(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	req, err := bc.lending.SubmitRequest(c.Request.Context(), user.ID, id)
	if err != nil {
		respondLibraryError(c, err, "/books", "request book")
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message:  "Book requested successfully.",
		Data:     req,
		Redirect: "/requests",
	})
}

// MyRequests handles GET /requests
func (bc *BooksController) MyRequests(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	requests, err := bc.catalog.MyRequests(c.Request.Context(), user.ID)
	if err != nil {
		respondInternalError(c, err, "list requests")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"count":    len(requests),
	})
}

// CancelRequest handles POST /requests/:id/cancel
func (bc *BooksController) CancelRequest(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.lending.CancelRequest(c.Request.Context(), user.ID, id); err != nil {
		respondLibraryError(c, err, "/requests", "cancel request")
		return
	}

	respondDone(c, "Request cancelled.", nil, "/requests")
}

// limitBody caps the request body; oversized uploads fail while parsing.
func limitBody(c *gin.Context, maxBytes int64) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}
}
