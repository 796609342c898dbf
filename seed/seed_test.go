package seed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/postwall/models"
	"github.com/cppla/postwall/storage"
	"github.com/cppla/postwall/utils"
)

func openDB(t *testing.T) *gorm.DB {
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

func TestRun_StarterDataIsIdempotent(t *testing.T) {
	db := openDB(t)

	res, err := Run(db, Options{})
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 1, Posts: 2}, res)

	res, err = Run(db, Options{})
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	var admin models.User
	require.NoError(t, db.Where("username = ?", AdminUsername).First(&admin).Error)
	assert.True(t, utils.CheckPassword(admin.PasswordHash, DefaultPassword))

	var posts []models.Post
	require.NoError(t, db.Order("created_at ASC").Find(&posts).Error)
	require.Len(t, posts, 2)
	for _, p := range posts {
		assert.Equal(t, admin.ID, p.UserID)
		assert.True(t, storage.IsExternal(p.ImageRef), p.ImageRef)
	}
	assert.True(t, posts[0].CreatedAt.Before(posts[1].CreatedAt))
}

func TestRun_GeneratedData(t *testing.T) {
	db := openDB(t)

	res, err := Run(db, Options{Users: 4, Posts: 6, Password: "pw-seed", Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Users)
	assert.Equal(t, 8, res.Posts)

	count := func(model interface{}) int {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return int(n)
	}
	assert.Equal(t, res.Users, count(&models.User{}))
	assert.Equal(t, res.Posts, count(&models.Post{}))
	assert.Equal(t, res.Comments, count(&models.Comment{}))
	assert.Equal(t, res.Likes, count(&models.Like{}))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	for _, u := range users {
		assert.NotContains(t, u.Username, " ")
		assert.True(t, utils.CheckPassword(u.PasswordHash, "pw-seed"))
	}

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	for _, p := range posts {
		assert.NotEmpty(t, strings.TrimSpace(p.Content))
		assert.LessOrEqual(t, len([]rune(p.Content)), 1000)
	}
}

func TestClip(t *testing.T) {
	long := strings.Repeat("é", 1200)
	assert.Len(t, []rune(clip(long)), 1000)
	assert.Equal(t, "short", clip("short"))
}
