package metadata

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/anoixa/image-shelf/database/dbtest"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/database/repo/accounts"
	"github.com/anoixa/image-shelf/database/repo/folders"
	"github.com/anoixa/image-shelf/database/repo/images"
	"github.com/anoixa/image-shelf/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	provider := dbtest.NewProvider(t)
	return NewClient(images.NewRepository(provider), folders.NewRepository(provider), accounts.NewRepository(provider))
}

func addImage(t *testing.T, c *Client, owner uint, name string) *models.Image {
	t.Helper()
	img := &models.Image{
		Filename:     "f_" + name,
		OriginalName: name,
		ShortURL:     "c_" + name,
		UserID:       &owner,
		AccessType:   models.AccessPublic,
		UploadedAt:   time.Now(),
	}
	require.NoError(t, c.CreateImage(context.Background(), img))
	return img
}

func ptr[T any](v T) *T { return &v }

// --- 测试错误分类 ---

func TestClient_ErrorClassification(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.GetImage(ctx, 404)
	assert.True(t, apperr.IsNotFound(err))

	img := addImage(t, c, 1, "cat.png")
	dup := &models.Image{Filename: img.Filename, OriginalName: "x", ShortURL: "other", AccessType: models.AccessPublic}
	err = c.CreateImage(ctx, dup)
	assert.True(t, apperr.IsConflict(err), "unique filename violation is a conflict: %v", err)

	err = c.CreateImage(ctx, &models.Image{Filename: "z", AccessType: "secret"})
	assert.True(t, apperr.IsValidation(err))
}

// --- 测试文件夹 ---

func TestClient_CreateFolder_Validation(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	err := c.CreateFolder(ctx, &models.Folder{Name: "   ", UserID: 1})
	assert.True(t, apperr.IsValidation(err))

	err = c.CreateFolder(ctx, &models.Folder{Name: strings.Repeat("a", 101), UserID: 1})
	assert.True(t, apperr.IsValidation(err))

	err = c.CreateFolder(ctx, &models.Folder{Name: "ok", Color: "red", UserID: 1})
	assert.True(t, apperr.IsValidation(err))

	f := &models.Folder{Name: "  Trips ", UserID: 1}
	require.NoError(t, c.CreateFolder(ctx, f))
	assert.Equal(t, "Trips", f.Name)
	assert.Equal(t, models.DefaultFolderColor, f.Color)
	assert.Equal(t, models.AccessPrivate, f.AccessType)
}

func TestClient_UpdateFolder(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	f := &models.Folder{Name: "Old", UserID: 1}
	require.NoError(t, c.CreateFolder(ctx, f))

	updated, err := c.UpdateFolder(ctx, f.ID, 1, FolderPatch{Name: ptr("New"), Color: ptr("#abc")})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "#abc", updated.Color)

	_, err = c.UpdateFolder(ctx, f.ID, 1, FolderPatch{Name: ptr("")})
	assert.True(t, apperr.IsValidation(err))

	_, err = c.UpdateFolder(ctx, f.ID, 2, FolderPatch{Name: ptr("Mine")})
	assert.True(t, apperr.IsNotFound(err))

	same, err := c.UpdateFolder(ctx, f.ID, 1, FolderPatch{})
	require.NoError(t, err)
	assert.Equal(t, "New", same.Name)
}

func TestClient_DeleteFolder_KeepsImages(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	f := &models.Folder{Name: "F", UserID: 1}
	require.NoError(t, c.CreateFolder(ctx, f))
	a := addImage(t, c, 1, "a.png")
	b := addImage(t, c, 1, "b.png")
	_, err := c.AddFolderImages(ctx, f.ID, 1, []uint{a.ID, b.ID})
	require.NoError(t, err)

	require.NoError(t, c.DeleteFolder(ctx, f.ID, 1))

	_, err = c.ListFolderImageIDs(ctx, f.ID, 1)
	assert.True(t, apperr.IsNotFound(err))

	list, err := c.ListImages(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

// --- 测试成员关系 ---

func TestClient_AddFolderImages_TwiceGivesTwoRows(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	f := &models.Folder{Name: "F", UserID: 1}
	require.NoError(t, c.CreateFolder(ctx, f))
	a := addImage(t, c, 1, "a.png")
	b := addImage(t, c, 1, "b.png")

	for i := 0; i < 2; i++ {
		_, err := c.AddFolderImages(ctx, f.ID, 1, []uint{a.ID, b.ID})
		require.NoError(t, err)
	}

	ids, err := c.ListFolderImageIDs(ctx, f.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID, b.ID}, ids)
}

func TestClient_AddFolderImages_RejectsForeignImages(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	f := &models.Folder{Name: "F", UserID: 1}
	require.NoError(t, c.CreateFolder(ctx, f))
	foreign := addImage(t, c, 2, "x.png")

	_, err := c.AddFolderImages(ctx, f.ID, 1, []uint{foreign.ID})
	assert.True(t, apperr.IsValidation(err))

	_, err = c.AddFolderImages(ctx, f.ID, 1, []uint{9999})
	assert.True(t, apperr.IsValidation(err))

	_, err = c.AddFolderImages(ctx, f.ID, 2, []uint{foreign.ID})
	assert.True(t, apperr.IsNotFound(err), "folder belongs to another user")
}

func TestClient_RemoveFolderImages(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	f := &models.Folder{Name: "F", UserID: 1}
	require.NoError(t, c.CreateFolder(ctx, f))
	a := addImage(t, c, 1, "a.png")
	_, err := c.AddFolderImages(ctx, f.ID, 1, []uint{a.ID})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = c.RemoveFolderImages(ctx, f.ID, 1, []uint{a.ID})
		require.NoError(t, err)
	}
	ids, err := c.ListFolderImageIDs(ctx, f.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// --- 测试访问类型 ---

func TestClient_UpdateImageAccess(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	img := addImage(t, c, 1, "a.png")

	_, err := c.UpdateImageAccess(ctx, img.ID, 1, false, "everyone")
	assert.True(t, apperr.IsValidation(err))

	_, err = c.UpdateImageAccess(ctx, img.ID, 2, false, models.AccessPrivate)
	assert.True(t, apperr.IsNotFound(err))

	updated, err := c.UpdateImageAccess(ctx, img.ID, 1, false, models.AccessShared)
	require.NoError(t, err)
	assert.Equal(t, models.AccessShared, updated.AccessType)
}

// --- 测试资料 ---

func TestClient_UpdateProfile_MergesPreferences(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.UpdateProfile(ctx, 1, ProfilePatch{
		DisplayName: ptr("Alice"),
		Preferences: map[string]interface{}{"view_mode": "table", "page_size": 50},
	})
	require.NoError(t, err)

	p, err := c.UpdateProfile(ctx, 1, ProfilePatch{
		Preferences: map[string]interface{}{"view_mode": nil, "columns": 4},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.DisplayName)

	reloaded, err := c.GetProfile(ctx, 1)
	require.NoError(t, err)
	_, hasMode := reloaded.Preferences["view_mode"]
	assert.False(t, hasMode)
	assert.EqualValues(t, 50, reloaded.Preferences["page_size"])
	assert.EqualValues(t, 4, reloaded.Preferences["columns"])
}
