package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/postwall/config"
	"github.com/cppla/postwall/middleware"
	"github.com/cppla/postwall/models"
	"github.com/cppla/postwall/services"
	"github.com/cppla/postwall/storage"
	"github.com/cppla/postwall/utils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	uploadDir := t.TempDir()
	config.Set(config.AppConfig{
		JWTSecret:          "router-test-secret",
		DBDriver:           "sqlite",
		GinMode:            "test",
		RateLimitPerMinute: 1000,
		AllowedOrigins:     []string{"*"},
		UploadDir:          uploadDir,
		UploadPublicPath:   "/storage",
		MaxImageBytes:      1 << 20,
		CSRFTTLMinutes:     10,
		TokenTTLHr:         1,
	})
	utils.SetRedis(nil)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}, &models.Like{}))

	store, err := storage.NewLocalStore(uploadDir, "/storage")
	require.NoError(t, err)
	return SetupRouter(db, services.NewInteractionService(db, store), services.NewFeedService(db, store))
}

func serve(r http.Handler, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parse(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestHealthMetricsAndNoRoute(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/api/v1/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, parse(t, w).Code)

	w = serve(r, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "postwall_http_requests_total")
}

func TestMutationsRequireCSRFToken(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"username":"alice","password":"secret1"}`),
		map[string]string{"Content-Type": "application/json"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(parse(t, w).Data, &auth))
	bearer := map[string]string{"Authorization": "Bearer " + auth.Token}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("content", "hello"))
	require.NoError(t, mw.Close())
	form := buf.Bytes()
	headers := map[string]string{"Authorization": bearer["Authorization"], "Content-Type": mw.FormDataContentType()}

	w = serve(r, http.MethodPost, "/api/v1/post", bytes.NewReader(form), headers)
	assert.Equal(t, middleware.StatusPageExpired, w.Code)
	assert.Equal(t, 41901, parse(t, w).Code)

	w = serve(r, http.MethodPost, "/api/v1/post", bytes.NewReader(form), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/api/v1/refresh-csrf", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)
	var csrf struct {
		Token string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(parse(t, w).Data, &csrf))

	headers[middleware.CSRFHeader] = csrf.Token
	w = serve(r, http.MethodPost, "/api/v1/post", bytes.NewReader(form), headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(r, http.MethodGet, "/api/v1/feed", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed struct {
		Posts []models.PostView `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(parse(t, w).Data, &feed))
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, "alice", feed.Posts[0].Author)

	w = serve(r, http.MethodGet, "/api/v1/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"post_count":1`)
}

func TestStorageIsServed(t *testing.T) {
	r := newTestRouter(t)
	cfg := config.Get()
	store, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadPublicPath)
	require.NoError(t, err)
	ref, err := store.Put(context.Background(), storage.Namespace(1, "alice"), "a.txt", []byte("pixels"))
	require.NoError(t, err)

	w := serve(r, http.MethodGet, store.URL(ref), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pixels", w.Body.String())
}
