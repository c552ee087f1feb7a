package books

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/campuslib/internal/database/dbtest"
	"github.com/mrlokans/campuslib/internal/entities"
)

func TestRepository_ListBooks(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	dbtest.Book(t, db, "Operating Systems", 2)
	dbtest.Book(t, db, "Compilers", 1)
	dbtest.Book(t, db, "Networks", 0)

	t.Run("all books sorted by name", func(t *testing.T) {
		books, err := repo.ListBooks(ctx, "")
		require.NoError(t, err)
		require.Len(t, books, 3)
		assert.Equal(t, "Compilers", books[0].Name)
		assert.Equal(t, "Networks", books[1].Name)
		assert.Equal(t, "Operating Systems", books[2].Name)
	})

	t.Run("search matches name case-insensitively", func(t *testing.T) {
		books, err := repo.ListBooks(ctx, "  comPIL ")
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Compilers", books[0].Name)
	})

	t.Run("search matches author", func(t *testing.T) {
		books, err := repo.ListBooks(ctx, "author of networks")
		require.NoError(t, err)
		require.Len(t, books, 1)
	})
}

func TestRepository_CreateBookDuplicateExternalID(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	require.NoError(t, repo.CreateBook(ctx, &entities.Book{Name: "A", ExternalID: "ACC-1", AvailableCopies: 1}))
	err := repo.CreateBook(ctx, &entities.Book{Name: "B", ExternalID: "ACC-1", AvailableCopies: 1})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestRepository_CreateBookRejectsNegativeCopies(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)

	err := repo.CreateBook(context.Background(), &entities.Book{Name: "A", ExternalID: "ACC-2", AvailableCopies: -1})
	assert.Error(t, err)
}

func TestRepository_SetCover(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	book := dbtest.Book(t, db, "Algorithms", 1)

	require.NoError(t, repo.SetCover(ctx, book.ID, "covers/abc.jpg"))

	loaded, err := repo.GetBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "covers/abc.jpg", loaded.CoverKey)

	assert.ErrorIs(t, repo.SetCover(ctx, 9999, "x"), gorm.ErrRecordNotFound)
}
