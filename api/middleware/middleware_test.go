package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/anoixa/image-shelf/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWT(t *testing.T) *auth.JWTService {
	t.Helper()
	svc, err := auth.NewJWTServiceWithConfig(auth.TokenConfig{
		Secret:           []byte("test-secret-key-at-least-32-characters-long"),
		ExpiresIn:        30 * time.Minute,
		RefreshExpiresIn: 24 * time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestJWTAuth(t *testing.T) {
	jwtService := newJWT(t)
	token, _, err := jwtService.GenerateAccessToken("a@example.com", 7, "admin")
	require.NoError(t, err)

	router := setupRouter()
	router.GET("/me", JWTAuth(jwtService), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetUint(ContextUserIDKey),
			"email":   c.GetString(ContextEmailKey),
			"admin":   IsAdmin(c),
		})
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Bearer", http.StatusBadRequest},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer not-a-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"user_id":7,"email":"a@example.com","admin":true}`, w.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	jwtService := newJWT(t)
	token, _, err := jwtService.GenerateAccessToken("a@example.com", 3, "user")
	require.NoError(t, err)

	router := setupRouter()
	router.GET("/x", OptionalAuth(jwtService), func(c *gin.Context) {
		if id := CurrentUser(c); id != nil {
			c.String(http.StatusOK, "user")
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	cases := map[string]string{
		"":                 "anonymous",
		"Bearer garbage":   "anonymous",
		"Bearer " + token:  "user",
		"ApiKey something": "anonymous",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, want, w.Body.String(), header)
	}
}

func TestRequireRole(t *testing.T) {
	router := setupRouter()
	router.GET("/admin", func(c *gin.Context) {
		if role := c.GetHeader("X-Role"); role != "" {
			c.Set(ContextRoleKey, role)
		}
		c.Next()
	}, RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for role, want := range map[string]int{"admin": http.StatusNoContent, "user": http.StatusForbidden, "": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("X-Role", role)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(1, 2, time.Minute)
	defer limiter.StopCleanup()

	router := setupRouter()
	router.GET("/", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// 另一个 IP 不受影响
	assert.True(t, limiter.Allow("10.0.0.2"))

	limiter.evict(time.Now().Add(2 * time.Minute))
	_, ok := limiter.limiterMap.Load("10.0.0.1")
	assert.False(t, ok)

	limiter.StopCleanup()
}

func TestConcurrencyLimiter(t *testing.T) {
	limiter := NewConcurrencyLimiter(1)
	release := make(chan struct{})
	entered := make(chan struct{})

	router := setupRouter()
	router.GET("/slow", limiter.Middleware(), func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	router.GET("/fast", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}()
	<-entered

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	close(release)
	wg.Wait()

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConcurrencyLimiter_Block(t *testing.T) {
	limiter := NewConcurrencyLimiter(1)
	release := make(chan struct{})
	entered := make(chan struct{})

	router := setupRouter()
	handler := limiter.MiddlewareWithBlock(50 * time.Millisecond)
	router.GET("/slow", handler, func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	router.GET("/queued", handler, func(c *gin.Context) { c.Status(http.StatusOK) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))
	}()
	<-entered

	// 等待超时
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/queued", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// 排队期间释放则继续执行
	result := make(chan int, 1)
	go func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/queued", nil))
		result <- w.Code
	}()
	close(release)
	<-done
	assert.Equal(t, http.StatusOK, <-result)
}

func TestRequestIDAndMetrics(t *testing.T) {
	ResetMetrics()
	router := setupRouter()
	router.Use(RequestID(), Metrics())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))

	metrics := GetMetrics()
	assert.Equal(t, int64(2), metrics["request_count"])
	assert.Equal(t, int64(1), metrics["server_errors"])
	assert.Equal(t, int64(0), metrics["in_flight"])
}
