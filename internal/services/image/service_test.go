package image

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/anoixa/image-shelf/cache"
	"github.com/anoixa/image-shelf/database/dbtest"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/database/repo/accounts"
	"github.com/anoixa/image-shelf/database/repo/folders"
	"github.com/anoixa/image-shelf/database/repo/images"
	"github.com/anoixa/image-shelf/internal/apperr"
	"github.com/anoixa/image-shelf/internal/metadata"
	"github.com/anoixa/image-shelf/storage"
	"github.com/anoixa/image-shelf/utils/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	svc    *Service
	meta   *metadata.Client
	local  *storage.LocalStorage
	helper *cache.Helper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	provider := dbtest.NewProvider(t)
	meta := metadata.NewClient(images.NewRepository(provider), folders.NewRepository(provider), accounts.NewRepository(provider))

	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	blobs := storage.NewFactoryWithProviders("local", "http://localhost:8080/files", local)

	mem, err := cache.NewMemoryCache(cache.MemoryConfig{NumCounters: 1000, MaxCost: 8 << 20, BufferItems: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })
	helper := cache.NewHelper(mem, cache.HelperConfig{})

	return &testEnv{
		svc:    NewService(meta, blobs, helper, nil),
		meta:   meta,
		local:  local,
		helper: helper,
	}
}

func (e *testEnv) addImage(t *testing.T, filename string, owner *uint, access models.AccessType, content []byte) *models.Image {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.local.SaveWithContext(ctx, filename, strings.NewReader(string(content))))

	size := int64(len(content))
	mime := "image/png"
	img := &models.Image{
		Filename:      filename,
		OriginalName:  filename,
		FileSize:      &size,
		MimeType:      &mime,
		ShortURL:      generator.ShortCode(filename),
		StorageDriver: "local",
		UserID:        owner,
		AccessType:    access,
		UploadedAt:    time.Now(),
	}
	require.NoError(t, e.meta.CreateImage(ctx, img))
	return img
}

func uintPtr(v uint) *uint { return &v }

func TestService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	img := env.addImage(t, "a.png", uintPtr(1), models.AccessPublic, []byte("x"))

	folder := &models.Folder{Name: "trip", UserID: 1}
	require.NoError(t, env.meta.CreateFolder(ctx, folder))
	_, err := env.meta.AddFolderImages(ctx, folder.ID, 1, []uint{img.ID})
	require.NoError(t, err)

	// 先缓存，删除后应当失效
	_, err = env.svc.ResolveFilename(ctx, "a.png")
	require.NoError(t, err)

	// 非所有者
	err = env.svc.Delete(ctx, img.ID, 2)
	assert.True(t, apperr.IsNotFound(err))

	require.NoError(t, env.svc.Delete(ctx, img.ID, 1))

	ok, err := env.local.Exists(ctx, "a.png")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = env.meta.GetImage(ctx, img.ID)
	assert.True(t, apperr.IsNotFound(err))

	ids, err := env.meta.ListFolderImageIDs(ctx, folder.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = env.svc.ResolveFilename(ctx, "a.png")
	assert.True(t, apperr.IsNotFound(err))
}

func TestService_DeleteMissingBlob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	img := env.addImage(t, "a.png", uintPtr(1), models.AccessPublic, []byte("x"))
	require.NoError(t, env.local.DeleteWithContext(ctx, "a.png"))

	// 对象删除失败不影响元数据删除
	require.NoError(t, env.svc.Delete(ctx, img.ID, 1))
	_, err := env.meta.GetImage(ctx, img.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestService_SetAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	img := env.addImage(t, "a.png", uintPtr(1), models.AccessPublic, []byte("x"))

	cached, err := env.svc.ResolveFilename(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, models.AccessPublic, cached.AccessType)

	updated, err := env.svc.SetAccess(ctx, img.ID, 1, false, models.AccessPrivate)
	require.NoError(t, err)
	assert.Equal(t, models.AccessPrivate, updated.AccessType)

	// 缓存已失效，重新读取到新值
	resolved, err := env.svc.ResolveFilename(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, models.AccessPrivate, resolved.AccessType)

	_, err = env.svc.SetAccess(ctx, img.ID, 2, false, models.AccessPublic)
	assert.True(t, apperr.IsNotFound(err))

	_, err = env.svc.SetAccess(ctx, img.ID, 2, true, models.AccessShared)
	assert.NoError(t, err)

	_, err = env.svc.SetAccess(ctx, img.ID, 1, false, "secret")
	assert.True(t, apperr.IsValidation(err))
}

func TestService_ResolveShortCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	img := env.addImage(t, "a.png", nil, models.AccessPublic, []byte("x"))

	got, err := env.svc.ResolveShortCode(ctx, img.ShortURL)
	require.NoError(t, err)
	assert.Equal(t, img.ID, got.ID)

	// 第二次走缓存
	filename, err := env.helper.GetCachedFilename(ctx, img.ShortURL)
	require.NoError(t, err)
	assert.Equal(t, "a.png", filename)

	got, err = env.svc.ResolveShortCode(ctx, img.ShortURL)
	require.NoError(t, err)
	assert.Equal(t, img.ID, got.ID)

	_, err = env.svc.ResolveShortCode(ctx, "nope")
	assert.True(t, apperr.IsNotFound(err))
}

func TestService_ResolveFilenameCachesMiss(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.ResolveFilename(ctx, "missing.png")
	assert.True(t, apperr.IsNotFound(err))
	assert.True(t, env.helper.IsEmptyValue(ctx, "missing.png"))

	env.svc.ForgetEmpty(ctx, "missing.png")
	assert.False(t, env.helper.IsEmptyValue(ctx, "missing.png"))
}

func TestService_ResolveVisible(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addImage(t, "private.png", uintPtr(1), models.AccessPrivate, []byte("x"))
	env.addImage(t, "shared.png", uintPtr(1), models.AccessShared, []byte("x"))

	_, err := env.svc.ResolveVisible(ctx, "private.png", nil)
	assert.True(t, apperr.IsNotFound(err))
	_, err = env.svc.ResolveVisible(ctx, "private.png", uintPtr(2))
	assert.True(t, apperr.IsNotFound(err))
	_, err = env.svc.ResolveVisible(ctx, "private.png", uintPtr(1))
	assert.NoError(t, err)

	_, err = env.svc.ResolveVisible(ctx, "shared.png", nil)
	assert.NoError(t, err)
}

func TestService_PublicURL(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, "http://localhost:8080/files/a.png", env.svc.PublicURL(&models.Image{Filename: "a.png"}))
}

func TestService_ListAndGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	img := env.addImage(t, "a.png", uintPtr(1), models.AccessPublic, []byte("x"))
	env.addImage(t, "b.png", uintPtr(2), models.AccessPublic, []byte("x"))

	list, err := env.svc.ListImages(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, img.ID, list[0].ID)

	_, err = env.svc.Get(ctx, img.ID, 2)
	assert.True(t, apperr.IsNotFound(err))
}
