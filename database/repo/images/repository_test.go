package images

import (
	"context"
	"testing"
	"time"

	"github.com/anoixa/image-shelf/database/dbtest"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImage(filename, original string, owner *uint) *models.Image {
	size := int64(1000)
	mime := "image/png"
	return &models.Image{
		Filename:      filename,
		OriginalName:  original,
		FileSize:      &size,
		MimeType:      &mime,
		ShortURL:      "s_" + filename,
		StorageDriver: "local",
		UserID:        owner,
		AccessType:    models.AccessPublic,
		UploadedAt:    time.Now(),
	}
}

func uintPtr(v uint) *uint { return &v }

// --- 测试 Create / Get ---

func TestRepository_CreateAndGet(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	ctx := context.Background()

	img := newImage("1_abc_cat.png", "cat.png", uintPtr(1))
	require.NoError(t, repo.Create(ctx, img))
	assert.NotZero(t, img.ID)

	byID, err := repo.GetByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "cat.png", byID.OriginalName)

	byName, err := repo.GetByFilename(ctx, "1_abc_cat.png")
	require.NoError(t, err)
	assert.Equal(t, img.ID, byName.ID)

	byShort, err := repo.GetByShortURL(ctx, "s_1_abc_cat.png")
	require.NoError(t, err)
	assert.Equal(t, img.ID, byShort.ID)

	_, err = repo.GetByFilename(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestRepository_Create_DuplicateFilename(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newImage("dup.png", "a.png", nil)))
	dup := newImage("dup.png", "b.png", nil)
	dup.ShortURL = "other"
	assert.Error(t, repo.Create(ctx, dup))
}

// --- 测试 FindByOriginalName ---

func TestRepository_FindByOriginalName_ScopedByOwner(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newImage("f1.png", "cat.png", uintPtr(1))))
	require.NoError(t, repo.Create(ctx, newImage("f2.png", "cat.png", nil)))

	found, err := repo.FindByOriginalName(ctx, uintPtr(1), "cat.png")
	require.NoError(t, err)
	assert.Equal(t, "f1.png", found.Filename)

	anon, err := repo.FindByOriginalName(ctx, nil, "cat.png")
	require.NoError(t, err)
	assert.Equal(t, "f2.png", anon.Filename)

	_, err = repo.FindByOriginalName(ctx, uintPtr(2), "cat.png")
	assert.ErrorIs(t, err, ErrImageNotFound)
}

// --- 测试 UpdateAccess ---

func TestRepository_UpdateAccess(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	ctx := context.Background()

	img := newImage("acc.png", "acc.png", uintPtr(1))
	require.NoError(t, repo.Create(ctx, img))

	_, err := repo.UpdateAccess(ctx, img.ID, 2, false, models.AccessPrivate)
	assert.ErrorIs(t, err, ErrImageNotFound, "other users cannot change access")

	updated, err := repo.UpdateAccess(ctx, img.ID, 1, false, models.AccessPrivate)
	require.NoError(t, err)
	assert.Equal(t, models.AccessPrivate, updated.AccessType)

	updated, err = repo.UpdateAccess(ctx, img.ID, 99, true, models.AccessShared)
	require.NoError(t, err)
	assert.Equal(t, models.AccessShared, updated.AccessType)
}

// --- 测试 ReplaceContent ---

func TestRepository_ReplaceContent_KeepsIDAndMemberships(t *testing.T) {
	provider := dbtest.NewProvider(t)
	repo := NewRepository(provider)
	ctx := context.Background()

	img := newImage("old.png", "cat.png", uintPtr(1))
	require.NoError(t, repo.Create(ctx, img))
	require.NoError(t, provider.DB().Create(&models.FolderImage{FolderID: 7, ImageID: img.ID}).Error)

	size := int64(2048)
	mime := "image/jpeg"
	replaced, err := repo.ReplaceContent(ctx, img.ID, ContentUpdate{
		Filename:      "new.jpg",
		ShortURL:      "newcode",
		FileSize:      &size,
		MimeType:      &mime,
		StorageDriver: "local",
	})
	require.NoError(t, err)
	assert.Equal(t, img.ID, replaced.ID)
	assert.Equal(t, "new.jpg", replaced.Filename)
	assert.Equal(t, int64(2048), replaced.Size())
	assert.Equal(t, "cat.png", replaced.OriginalName)

	var count int64
	provider.DB().Model(&models.FolderImage{}).Where("image_id = ?", img.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

// --- 测试 DeleteOwned ---

func TestRepository_DeleteOwned_RemovesMemberships(t *testing.T) {
	provider := dbtest.NewProvider(t)
	repo := NewRepository(provider)
	ctx := context.Background()

	img := newImage("del.png", "del.png", uintPtr(1))
	require.NoError(t, repo.Create(ctx, img))
	require.NoError(t, provider.DB().Create(&models.FolderImage{FolderID: 1, ImageID: img.ID}).Error)

	_, err := repo.DeleteOwned(ctx, img.ID, 2)
	assert.ErrorIs(t, err, ErrImageNotFound)

	deleted, err := repo.DeleteOwned(ctx, img.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "del.png", deleted.Filename)

	_, err = repo.GetByID(ctx, img.ID)
	assert.ErrorIs(t, err, ErrImageNotFound)

	var count int64
	provider.DB().Model(&models.FolderImage{}).Count(&count)
	assert.Zero(t, count)
}

// --- 测试 ListByOwner / FindInBatches ---

func TestRepository_ListByOwner_Ordering(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.png", "b.png", "c.png"} {
		img := newImage(name, name, uintPtr(1))
		img.UploadedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Create(ctx, img))
	}
	require.NoError(t, repo.Create(ctx, newImage("other.png", "other.png", uintPtr(2))))

	list, err := repo.ListByOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c.png", list[0].Filename)
	assert.Equal(t, "a.png", list[2].Filename)

	var seen int
	err = repo.FindInBatches(ctx, 2, func(batch []*models.Image) error {
		seen += len(batch)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, seen)
}
