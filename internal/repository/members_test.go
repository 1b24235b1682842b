// internal/repository/members_test.go
package repository

import (
	"context"
	"testing"
	"time"

	"beef-back/internal/apperrors"
	"beef-back/internal/models"
	"beef-back/internal/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberRepository_CreateAndFind(t *testing.T) {
	db := testhelpers.NewDB(t)
	repo := NewMemberRepository(db, time.Second)
	ctx := context.Background()

	m := &models.Member{Email: "cook@example.com", Password: "hash", Name: "Cook"}
	require.NoError(t, repo.Create(ctx, m))
	assert.NotZero(t, m.ID)

	found, err := repo.FindByEmail(ctx, "cook@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, m.ID, found.ID)
	assert.Equal(t, "Cook", found.Name)
	assert.Equal(t, "hash", found.Password)
}

func TestMemberRepository_FindMissing(t *testing.T) {
	db := testhelpers.NewDB(t)
	repo := NewMemberRepository(db, time.Second)

	found, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestMemberRepository_DuplicateEmail(t *testing.T) {
	db := testhelpers.NewDB(t)
	repo := NewMemberRepository(db, time.Second)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Member{Email: "dup@example.com", Password: "h1"}))

	err := repo.Create(ctx, &models.Member{Email: "dup@example.com", Password: "h2"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEmail)

	var count int64
	require.NoError(t, db.Model(&models.Member{}).Where("email = ?", "dup@example.com").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestMemberRepository_UniqueIndexBackstop(t *testing.T) {
	db := testhelpers.NewDB(t)
	require.NoError(t, db.Create(&models.Member{Email: "race@example.com", Password: "h"}).Error)

	err := db.Create(&models.Member{Email: "race@example.com", Password: "h"}).Error
	assert.Error(t, err)
}
