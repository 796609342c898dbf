package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/postwall/models"
	"github.com/cppla/postwall/utils"
)

// StatsController provides site statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns row counts for users, posts, comments and likes.
func (s *StatsController) GetStats(ctx *gin.Context) {
	counts := gin.H{}
	for key, model := range map[string]interface{}{
		"user_count":    &models.User{},
		"post_count":    &models.Post{},
		"comment_count": &models.Comment{},
		"like_count":    &models.Like{},
	} {
		var n int64
		if err := s.db.Model(model).Count(&n).Error; err != nil {
			// Fallback to 0 instead of failing the whole endpoint
			utils.Sugar.Warnf("stats: count %s failed: %v", key, err)
			n = 0
		}
		counts[key] = n
	}
	utils.Success(ctx, counts)
}
