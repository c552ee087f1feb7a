package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/campuslib/internal/database/dbtest"
	"github.com/mrlokans/campuslib/internal/entities"
)

func TestRepository_CreateUserWithStudent(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	user := &entities.User{Username: "asha", PasswordHash: "x", Role: entities.UserRoleStudent}
	student := &entities.Student{Department: entities.DepartmentEEE, RollNumber: "21EE07"}

	require.NoError(t, repo.CreateUser(ctx, user, student))
	assert.NotZero(t, user.ID)
	assert.Equal(t, user.ID, student.UserID)

	loaded, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Student)
	assert.Equal(t, "21EE07", loaded.Student.RollNumber)
}

func TestRepository_CreateUserDuplicateUsername(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, &entities.User{Username: "dup", PasswordHash: "x", Role: entities.UserRoleStaff}, nil))

	err := repo.CreateUser(ctx, &entities.User{Username: "dup", PasswordHash: "y", Role: entities.UserRoleStudent}, &entities.Student{})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	var students int64
	require.NoError(t, db.DB.Model(&entities.Student{}).Count(&students).Error)
	assert.Zero(t, students, "profile must not outlive a failed account insert")
}

func TestRepository_GetUserByUsernameNotFound(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)

	_, err := repo.GetUserByUsername(context.Background(), "nobody")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepository_UpdateProfile(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	t.Run("student fields are saved", func(t *testing.T) {
		user := dbtest.User(t, db, "ravi", entities.UserRoleStudent)

		updated, err := repo.UpdateProfile(ctx, user.ID, ProfileUpdate{
			FirstName:  "Ravi",
			LastName:   "Kumar",
			Email:      "ravi@campus.test",
			Department: entities.DepartmentBCA,
			RollNumber: "BCA-12",
			College:    "North Campus",
			Phone:      "5550100",
		})
		require.NoError(t, err)
		assert.Equal(t, "Kumar", updated.LastName)
		require.NotNil(t, updated.Student)
		assert.Equal(t, entities.DepartmentBCA, updated.Student.Department)
		assert.Equal(t, "5550100", updated.Student.Phone)
	})

	t.Run("student without profile gets one", func(t *testing.T) {
		user := &entities.User{Username: "noprofile", PasswordHash: "x", Role: entities.UserRoleStudent}
		require.NoError(t, repo.CreateUser(ctx, user, nil))

		updated, err := repo.UpdateProfile(ctx, user.ID, ProfileUpdate{Department: entities.DepartmentEC})
		require.NoError(t, err)
		require.NotNil(t, updated.Student)
		assert.Equal(t, entities.DepartmentEC, updated.Student.Department)
	})

	t.Run("staff never get a student profile", func(t *testing.T) {
		staff := dbtest.User(t, db, "librarian", entities.UserRoleStaff)

		updated, err := repo.UpdateProfile(ctx, staff.ID, ProfileUpdate{FirstName: "Lib", RollNumber: "ignored"})
		require.NoError(t, err)
		assert.Equal(t, "Lib", updated.FirstName)
		assert.Nil(t, updated.Student)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.UpdateProfile(ctx, 9999, ProfileUpdate{})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestRepository_CountByRole(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)

	dbtest.User(t, db, "s1", entities.UserRoleStudent)
	dbtest.User(t, db, "s2", entities.UserRoleStudent)
	dbtest.User(t, db, "staff1", entities.UserRoleStaff)

	count, err := repo.CountByRole(context.Background(), entities.UserRoleStudent)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
