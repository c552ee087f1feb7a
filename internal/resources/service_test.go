package resources

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/campuslib/internal/covers"
	"github.com/mrlokans/campuslib/internal/database"
	"github.com/mrlokans/campuslib/internal/database/dbtest"
	resourcesRepo "github.com/mrlokans/campuslib/internal/database/resources"
	"github.com/mrlokans/campuslib/internal/entities"
	"github.com/mrlokans/campuslib/internal/libraryerr"
	"github.com/mrlokans/campuslib/internal/storage"
	"github.com/mrlokans/campuslib/internal/storage/providers/local"
)

type testEnv struct {
	db    *database.Database
	repo  *resourcesRepo.Repository
	files *local.Client
	svc   *Service
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()
	files, err := local.NewClient(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{db: dbtest.New(t), files: files}
	env.repo = resourcesRepo.NewRepository(env.db.DB)
	env.svc = NewService(env.repo, files, covers.NewProcessor(files), nil)
	return env
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestUploadAndDownload(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	staff := dbtest.User(t, env.db, "librarian", entities.UserRoleStaff)
	student := dbtest.User(t, env.db, "hari", entities.UserRoleStudent)

	var coverPNG bytes.Buffer
	require.NoError(t, png.Encode(&coverPNG, image.NewRGBA(image.Rect(0, 0, 40, 60))))

	res, err := env.svc.Upload(ctx, staff.ID, UploadInput{
		Name: "IEEE Spectrum", Author: "IEEE", Type: entities.ResourceTypeMagazine,
	}, File{Name: "spectrum.pdf", Content: strings.NewReader("issue-1")}, &File{Name: "cover.png", Content: &coverPNG})
	require.NoError(t, err)
	assert.NotEmpty(t, res.FileKey)
	assert.NotEmpty(t, res.CoverKey)
	assert.Equal(t, "spectrum.pdf", res.FileName)

	// each call is recorded, repeated downloads included
	for i := 0; i < 2; i++ {
		got, content, err := env.svc.RecordDownload(ctx, student.ID, res.ID, "10.1.2.3", "curl/8.0")
		require.NoError(t, err)
		assert.Equal(t, res.ID, got.ID)
		assert.Equal(t, "issue-1", readAll(t, content))
	}

	recs, err := env.repo.ListEngagements(ctx, res.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, student.ID, recs[0].UserID)
	assert.Equal(t, "10.1.2.3", recs[0].IPAddress)
	assert.Equal(t, "curl/8.0", recs[0].UserAgent)

	count, err := env.svc.Downloads(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestUpload_Validation(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	_, err := env.svc.Upload(ctx, 1, UploadInput{Name: "X", Type: "PODCAST"}, File{Name: "x", Content: strings.NewReader("x")}, nil)
	assert.ErrorIs(t, err, ErrInvalidResource)

	_, err = env.svc.Upload(ctx, 1, UploadInput{Name: "  ", Type: entities.ResourceTypeBook}, File{Name: "x", Content: strings.NewReader("x")}, nil)
	assert.ErrorIs(t, err, libraryerr.ErrInvalidState)

	_, err = env.svc.Upload(ctx, 1, UploadInput{Name: "X", Type: entities.ResourceTypeBook}, File{}, nil)
	assert.ErrorIs(t, err, ErrInvalidResource)
}

func TestRecordDownload_NotFound(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	student := dbtest.User(t, env.db, "isha", entities.UserRoleStudent)

	_, _, err := env.svc.RecordDownload(ctx, student.ID, 999, "", "")
	assert.ErrorIs(t, err, libraryerr.ErrNotFound)

	orphan := dbtest.Resource(t, env.db, "Lost Paper", entities.ResourceTypeResearch, "resources/missing.pdf")
	_, _, err = env.svc.RecordDownload(ctx, student.ID, orphan.ID, "", "")
	assert.ErrorIs(t, err, libraryerr.ErrNotFound)

	count, err := env.svc.Downloads(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "no record without a download")
}

type failingLogStore struct {
	*resourcesRepo.Repository
}

func (failingLogStore) RecordEngagement(context.Context, *entities.EngagementRecord) error {
	return errors.New("disk full")
}

func TestRecordDownload_LogFailureDoesNotFailDownload(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	student := dbtest.User(t, env.db, "jay", entities.UserRoleStudent)

	key, err := storage.SaveNew(ctx, env.files, "resources", "j.pdf", strings.NewReader("journal"))
	require.NoError(t, err)
	res := dbtest.Resource(t, env.db, "Journal", entities.ResourceTypeJournal, key)

	svc := NewService(failingLogStore{env.repo}, env.files, nil, nil)
	_, content, err := svc.RecordDownload(ctx, student.ID, res.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, "journal", readAll(t, content))
}

func TestReplaceFile(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	res, err := env.svc.Upload(ctx, 1, UploadInput{Name: "Thesis", Type: entities.ResourceTypeResearch},
		File{Name: "v1.pdf", Content: strings.NewReader("draft")}, nil)
	require.NoError(t, err)
	oldKey := res.FileKey

	updated, err := env.svc.ReplaceFile(ctx, 1, res.ID, File{Name: "v2.pdf", Content: strings.NewReader("final")})
	require.NoError(t, err)
	assert.NotEqual(t, oldKey, updated.FileKey)
	assert.Equal(t, "Thesis", updated.Name)

	_, err = env.files.Open(ctx, oldKey)
	assert.ErrorIs(t, err, storage.ErrNotExist, "old file is removed")

	stored, err := env.svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2.pdf", stored.FileName)

	_, err = env.svc.ReplaceFile(ctx, 1, 12345, File{Name: "x.pdf", Content: strings.NewReader("x")})
	assert.ErrorIs(t, err, libraryerr.ErrNotFound)
}

func TestList(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	older := dbtest.Resource(t, env.db, "Alpha Journal", entities.ResourceTypeJournal, "a")
	require.NoError(t, env.db.DB.Model(older).Update("uploaded_at", time.Now().Add(-time.Hour)).Error)
	dbtest.Resource(t, env.db, "Beta Magazine", entities.ResourceTypeMagazine, "b")

	list, err := env.svc.List(ctx, resourcesRepo.Filter{Sort: "bogus"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Beta Magazine", list[0].Name)

	list, err = env.svc.List(ctx, resourcesRepo.Filter{Type: entities.ResourceTypeJournal})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Alpha Journal", list[0].Name)

	_, err = env.svc.List(ctx, resourcesRepo.Filter{Type: "VIDEO"})
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestUpload_SanitizesFileName(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	res, err := env.svc.Upload(ctx, 1, UploadInput{Name: "Thesis", Type: entities.ResourceTypeResearch},
		File{Name: `C:\Users\student\"final" thesis.pdf`, Content: strings.NewReader("pdf")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "final thesis.pdf", res.FileName)
	assert.NotContains(t, res.FileKey, `\`)
}

func TestRecordDownload_LongUserAgent(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	student := dbtest.User(t, env.db, "ivan", entities.UserRoleStudent)

	require.NoError(t, env.files.Save(ctx, "resources/a.pdf", strings.NewReader("pdf")))
	res := dbtest.Resource(t, env.db, "Atlas", entities.ResourceTypeBook, "resources/a.pdf")

	// the 500 byte cut lands inside the first two byte rune
	agent := strings.Repeat("a", 499) + strings.Repeat("ж", 10)
	_, content, err := env.svc.RecordDownload(ctx, student.ID, res.ID, "10.0.0.9", agent)
	require.NoError(t, err)
	content.Close()

	recs, err := env.repo.ListEngagements(ctx, res.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, strings.Repeat("a", 499), recs[0].UserAgent)
	assert.True(t, utf8.ValidString(recs[0].UserAgent))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc", truncate("abcdef", 3))
	assert.Equal(t, "", truncate("жж", 1))
	assert.Equal(t, "ж", truncate("жж", 3))
}
