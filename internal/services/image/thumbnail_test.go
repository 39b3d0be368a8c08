package image

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/anoixa/image-shelf/config"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestThumbnailService_SnapWidth(t *testing.T) {
	svc := NewThumbnailService(nil, nil, ThumbnailConfig{MaxWidth: 512})

	assert.Equal(t, 128, svc.SnapWidth(0))
	assert.Equal(t, 128, svc.SnapWidth(100))
	assert.Equal(t, 256, svc.SnapWidth(129))
	assert.Equal(t, 512, svc.SnapWidth(512))
	assert.Equal(t, 512, svc.SnapWidth(5000))

	small := NewThumbnailService(nil, nil, ThumbnailConfig{MaxWidth: 64})
	assert.Equal(t, 64, small.SnapWidth(300))
}

func TestThumbnailService_Get(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addImage(t, "big.png", uintPtr(1), models.AccessPublic, encodePNG(t, 400, 200))

	svc := NewThumbnailService(env.svc, env.helper, ThumbnailConfig{MaxWidth: 1024})

	thumb, err := svc.Get(ctx, "big.png", 100, nil)
	require.NoError(t, err)
	assert.Equal(t, "image/png", thumb.MimeType)
	assert.Equal(t, 128, thumb.Width)
	assert.False(t, thumb.Cached)

	decoded, err := png.DecodeConfig(bytes.NewReader(thumb.Data))
	require.NoError(t, err)
	assert.Equal(t, 128, decoded.Width)
	assert.Equal(t, 64, decoded.Height)

	again, err := svc.Get(ctx, "big.png", 128, nil)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, thumb.Data, again.Data)

	// 不放大
	full, err := svc.Get(ctx, "big.png", 1024, nil)
	require.NoError(t, err)
	decoded, err = png.DecodeConfig(bytes.NewReader(full.Data))
	require.NoError(t, err)
	assert.Equal(t, 400, decoded.Width)
}

func TestThumbnailService_PrivateAndBroken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addImage(t, "private.png", uintPtr(1), models.AccessPrivate, encodePNG(t, 10, 10))
	env.addImage(t, "broken.png", uintPtr(1), models.AccessPublic, []byte("not an image"))

	svc := NewThumbnailService(env.svc, env.helper, ThumbnailConfig{})

	_, err := svc.Get(ctx, "private.png", 128, nil)
	assert.True(t, apperr.IsNotFound(err))
	_, err = svc.Get(ctx, "private.png", 128, uintPtr(1))
	assert.NoError(t, err)

	_, err = svc.Get(ctx, "broken.png", 128, nil)
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.Get(ctx, "missing.png", 128, nil)
	assert.True(t, apperr.IsNotFound(err))
}

func TestThumbnailService_MemoryCheck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addImage(t, "big.png", uintPtr(1), models.AccessPublic, encodePNG(t, 300, 300))

	svc := NewThumbnailService(env.svc, env.helper, ThumbnailConfig{
		MemoryCheck: func() error { return config.ErrMemoryLimitExceeded },
	})

	_, err := svc.Get(ctx, "big.png", 128, nil)
	assert.True(t, apperr.IsRemote(err))
	assert.ErrorIs(t, err, config.ErrMemoryLimitExceeded)
}
