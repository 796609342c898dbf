package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/postwall/models"
	"github.com/cppla/postwall/storage"
)

// setupTestDB opens a private in-memory database. One connection keeps
// the database alive and serializes transactions the way row locks do on
// server engines.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}, &models.Like{}))
	return db
}

type fixture struct {
	db    *gorm.DB
	store *storage.LocalStore
	svc   *InteractionService
	feed  *FeedService
}

func newFixture(t *testing.T, opts ...InteractionOption) *fixture {
	t.Helper()
	db := setupTestDB(t)
	store, err := storage.NewLocalStore(t.TempDir(), "/storage")
	require.NoError(t, err)
	return &fixture{
		db:    db,
		store: store,
		svc:   NewInteractionService(db, store, opts...),
		feed:  NewFeedService(db, store),
	}
}

func (f *fixture) user(t *testing.T, name string) Actor {
	t.Helper()
	u := models.User{Username: name, PasswordHash: "x"}
	require.NoError(t, f.db.Create(&u).Error)
	return Actor{ID: u.ID, Name: u.Username}
}

func (f *fixture) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
