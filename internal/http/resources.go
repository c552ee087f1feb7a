package http

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/campuslib/internal/covers"
	resourcesRepo "github.com/mrlokans/campuslib/internal/database/resources"
	"github.com/mrlokans/campuslib/internal/entities"
	"github.com/mrlokans/campuslib/internal/forms"
	"github.com/mrlokans/campuslib/internal/resources"
)

// ResourcesController lists, serves and uploads digital resources.
type ResourcesController struct {
	resources     Resources
	maxUploadSize int64
}

// NewResourcesController creates a new ResourcesController.
func NewResourcesController(res Resources, maxUploadSize int64) *ResourcesController {
	return &ResourcesController{resources: res, maxUploadSize: maxUploadSize}
}

type resourceQuery struct {
	Type   string `form:"type" validate:"omitempty,oneof=MAGAZINE JOURNAL BOOK RESEARCH"`
	Search string `form:"search" validate:"max=200"`
	Sort   string `form:"sort" validate:"omitempty,oneof=upload_date -upload_date name -name author -author"`
}

type resourceForm struct {
	Name        string `form:"name" validate:"required,max=200"`
	Author      string `form:"author" validate:"max=200"`
	Type        string `form:"resource_type" validate:"required,oneof=MAGAZINE JOURNAL BOOK RESEARCH"`
	Description string `form:"description" validate:"max=5000"`
}

// ListResources handles GET /digital-resources?type=&sort=&search=
func (rc *ResourcesController) ListResources(c *gin.Context) {
	var q resourceQuery
	if errs := forms.Bind(c, &q); errs != nil {
		forms.Respond(c, errs)
		return
	}

	list, err := rc.resources.List(c.Request.Context(), resourcesRepo.Filter{
		Type:   entities.ResourceType(q.Type),
		Search: q.Search,
		Sort:   resourcesRepo.Sort(q.Sort),
	})
	if err != nil {
		respondLibraryError(c, err, "/digital-resources", "list resources")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"resources": list,
		"count":     len(list),
		"types":     entities.ResourceTypes,
	})
}

// GetResource handles GET /digital-resources/:id. Staff also see the download count.
func (rc *ResourcesController) GetResource(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	res, err := rc.resources.Get(c.Request.Context(), id)
	if err != nil {
		respondLibraryError(c, err, "/digital-resources", "get resource")
		return
	}

	body := gin.H{"resource": res}
	if user.IsStaff() {
		downloads, err := rc.resources.Downloads(c.Request.Context(), id)
		if err != nil {
			respondInternalError(c, err, "count downloads")
			return
		}
		body["downloads"] = downloads
	}
	c.JSON(http.StatusOK, body)
}

// Download handles GET /digital-resources/:id/download. Every download is
// recorded with the client's address and user agent.
func (rc *ResourcesController) Download(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	res, content, err := rc.resources.RecordDownload(c.Request.Context(), user.ID, id, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondLibraryError(c, err, "/digital-resources", "download resource")
		return
	}
	defer content.Close()

	name := res.FileName
	if name == "" {
		name = path.Base(res.FileKey)
	}
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, -1, contentType, content, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": name}),
	})
}

// Upload handles POST /digital-resources (multipart: metadata, "file", optional "cover").
func (rc *ResourcesController) Upload(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	limitBody(c, rc.maxUploadSize)
	var form resourceForm
	if errs := forms.Bind(c, &form); errs != nil {
		forms.Respond(c, errs)
		return
	}

	file, closeFile, ok := openUpload(c, "file", true)
	if !ok {
		return
	}
	defer closeFile()

	cover, closeCover, ok := openUpload(c, "cover", false)
	if !ok {
		return
	}
	defer closeCover()

	res, err := rc.resources.Upload(c.Request.Context(), user.ID, resources.UploadInput{
		Name:        form.Name,
		Author:      form.Author,
		Type:        entities.ResourceType(form.Type),
		Description: form.Description,
	}, *file, cover)
	if err != nil {
		if errors.Is(err, covers.ErrNotAnImage) {
			forms.Respond(c, forms.FieldErrors{{Field: "cover", Message: "Upload a valid image."}})
			return
		}
		respondLibraryError(c, err, "/digital-resources", "upload resource")
		return
	}

	respondCreated(c, gin.H{"resource": res, "redirect": "/digital-resources"})
}

// ReplaceFile handles POST /digital-resources/:id/file
func (rc *ResourcesController) ReplaceFile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	limitBody(c, rc.maxUploadSize)
	file, closeFile, ok := openUpload(c, "file", true)
	if !ok {
		return
	}
	defer closeFile()

	res, err := rc.resources.ReplaceFile(c.Request.Context(), user.ID, id, *file)
	if err != nil {
		respondLibraryError(c, err, "/digital-resources", "replace resource file")
		return
	}

	respondDone(c, "File replaced.", res, "")
}

// openUpload opens the multipart file in field. A missing optional field
// yields a nil file and ok.
func openUpload(c *gin.Context, field string, required bool) (*resources.File, func(), bool) {
	noop := func() {}

	header, err := c.FormFile(field)
	if err != nil {
		if !required && errors.Is(err, http.ErrMissingFile) {
			return nil, noop, true
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "upload is too large")
			return nil, noop, false
		}
		forms.Respond(c, forms.FieldErrors{{Field: field, Message: "This field is required."}})
		return nil, noop, false
	}

	f, err := header.Open()
	if err != nil {
		respondInternalError(c, err, "open upload "+field)
		return nil, noop, false
	}
	return &resources.File{Name: header.Filename, Content: f}, closer(f), true
}

func closer(f multipart.File) func() {
	return func() { _ = f.Close() }
}
