package images

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/internal/app"
	"github.com/anoixa/image-shelf/internal/app/apptest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type envelope[T any] struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
	Data   T      `json:"data"`
}

type testEnv struct {
	c      *app.Container
	router *gin.Engine
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c := apptest.NewContainer(t)
	cfg := c.GetConfig()
	h := NewHandler(Options{
		Images:        c.Images,
		Metadata:      c.Metadata,
		Uploads:       c,
		Workspaces:    c,
		Hub:           c.GetHub(),
		BaseURL:       cfg.BaseURL(),
		MaxBatchBytes: cfg.UploadMaxBatchBytes(),
	})

	router := gin.New()
	group := router.Group("/api/v1/images", middleware.JWTAuth(c.Identity.JWT()))
	group.GET("", h.ListImages)
	group.POST("/upload", h.UploadImages)
	group.POST("/delete", h.DeleteImages)
	group.GET("/:id", h.GetImage)
	group.DELETE("/:id", h.DeleteImage)
	group.PATCH("/:id/access", h.UpdateAccess)

	return &testEnv{c: c, router: router}
}

// pngBytes 生成指定尺寸的 PNG
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type uploadFile struct {
	name string
	data []byte
}

func (e *testEnv) upload(t *testing.T, token string, fields map[string]string, files ...uploadFile) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// uploadOne 上传单个文件并返回记录
func (e *testEnv) uploadOne(t *testing.T, token, name string, data []byte) ImageResponse {
	t.Helper()
	w := e.upload(t, token, nil, uploadFile{name: name, data: data})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[uploadResponse](t, w)
	require.Len(t, resp.Data.Items, 1)
	require.NotNil(t, resp.Data.Items[0].Image, resp.Data.Items[0].Error)
	return *resp.Data.Items[0].Image
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func imagePath(id uint) string {
	return fmt.Sprintf("/api/v1/images/%d", id)
}
