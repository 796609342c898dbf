package services

import (
	"database/sql"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/postwall/models"
	"github.com/cppla/postwall/storage"
	"github.com/cppla/postwall/utils"
)

type likeCount struct {
	PostID uint
	Total  int64
}

// assemble builds viewer independent views for posts, preserving order.
// All reads go through tx so one feed sees one snapshot.
func assemble(tx *gorm.DB, store storage.ObjectStore, posts []models.Post) ([]models.PostView, error) {
	views := make([]models.PostView, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	postIDs := make([]uint, len(posts))
	userIDs := make([]uint, 0, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
		userIDs = append(userIDs, p.UserID)
	}

	var comments []models.Comment
	if err := tx.Where("post_id IN ?", postIDs).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	for _, c := range comments {
		userIDs = append(userIDs, c.UserID)
	}

	var counts []likeCount
	if err := tx.Model(&models.Like{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	// last: a failed lookup must not poison the queries above
	names := resolveNames(tx, utils.Unique(userIDs))

	likes := make(map[uint]int64, len(counts))
	for _, c := range counts {
		likes[c.PostID] = c.Total
	}
	byPost := make(map[uint][]models.CommentView, len(posts))
	for _, c := range comments {
		byPost[c.PostID] = append(byPost[c.PostID], commentView(c, nameOr(names, c.UserID)))
	}

	for i, p := range posts {
		v := postView(store, p, nameOr(names, p.UserID))
		v.Likes = likes[p.ID]
		if cs, ok := byPost[p.ID]; ok {
			v.Comments = cs
		}
		views[i] = v
	}
	return views, nil
}

func resolveNames(tx *gorm.DB, ids []uint) map[uint]string {
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names
	}
	// postgres aborts the whole transaction on a failed statement
	hasSavepoint := tx.SavePoint("author_names").Error == nil
	var users []models.User
	if err := tx.Select("id", "username").Where("id IN ?", ids).Find(&users).Error; err != nil {
		utils.Logger.Warn("author lookup failed, rendering fallback names", zap.Error(err))
		if hasSavepoint {
			tx.RollbackTo("author_names")
		}
		return names
	}
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names
}

func nameOr(names map[uint]string, id uint) string {
	if n := names[id]; n != "" {
		return n
	}
	return models.UnknownAuthor
}

func postView(store storage.ObjectStore, p models.Post, author string) models.PostView {
	v := models.PostView{
		ID:        p.ID,
		UserID:    p.UserID,
		Author:    author,
		Content:   p.Content,
		Comments:  []models.CommentView{},
		CreatedAt: p.CreatedAt,
	}
	if p.ImageRef != "" {
		v.Image = store.URL(p.ImageRef)
	}
	return v
}

func commentView(c models.Comment, author string) models.CommentView {
	return models.CommentView{
		ID:        c.ID,
		PostID:    c.PostID,
		UserID:    c.UserID,
		Author:    author,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
}

// applyLiked overlays the viewer's like flags. It runs after assembly and
// after any cache read, so cached views are never viewer specific.
func applyLiked(db *gorm.DB, viewerID uint, views []models.PostView) error {
	for i := range views {
		views[i].Liked = false
	}
	if viewerID == 0 || len(views) == 0 {
		return nil
	}
	ids := make([]uint, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	var liked []uint
	if err := db.Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", viewerID, ids).
		Pluck("post_id", &liked).Error; err != nil {
		return err
	}
	set := make(map[uint]struct{}, len(liked))
	for _, id := range liked {
		set[id] = struct{}{}
	}
	for i := range views {
		_, views[i].Liked = set[views[i].ID]
	}
	return nil
}

// loadPostView assembles one post for a viewer inside a read transaction.
func loadPostView(db *gorm.DB, store storage.ObjectStore, snapshot *sql.TxOptions, viewerID, postID uint) (models.PostView, error) {
	var views []models.PostView
	err := db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("post", postID)
			}
			return err
		}
		var err error
		views, err = assemble(tx, store, []models.Post{post})
		return err
	}, txOptions(snapshot)...)
	if err != nil {
		return models.PostView{}, asAppError(err)
	}
	if err := applyLiked(db, viewerID, views); err != nil {
		return models.PostView{}, models.NewInternalError(err)
	}
	return views[0], nil
}

func txOptions(snapshot *sql.TxOptions) []*sql.TxOptions {
	if snapshot == nil {
		return nil
	}
	return []*sql.TxOptions{snapshot}
}
