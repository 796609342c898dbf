package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/postwall/models"
	"github.com/cppla/postwall/storage"
	"github.com/cppla/postwall/utils"
)

// DefaultMaxImageBytes is the upload bound for post images (2048 KB).
const DefaultMaxImageBytes int64 = 2 << 20

// FeedCache stores the viewer independent feed by generation. Mutations
// bump the generation instead of deleting entries.
type FeedCache interface {
	Version(ctx context.Context) (int64, error)
	Get(ctx context.Context, version int64) ([]byte, bool, error)
	Set(ctx context.Context, version int64, data []byte, ttl time.Duration) error
	Bump(ctx context.Context) error
}

// ImageUpload is an image attached to a new post. Filename is informational;
// the stored type is always sniffed from the bytes.
type ImageUpload struct {
	Filename string
	Reader   io.Reader
}

// CreatePostInput carries the fields of a new post.
type CreatePostInput struct {
	Content string
	Image   *ImageUpload
}

// InteractionService owns every state changing operation on posts,
// comments and likes.
type InteractionService struct {
	db            *gorm.DB
	store         storage.ObjectStore
	cache         FeedCache
	snapshot      *sql.TxOptions
	maxImageBytes int64
}

// InteractionOption configures an InteractionService.
type InteractionOption func(*InteractionService)

// WithFeedCache bumps the feed cache generation after every committed mutation.
func WithFeedCache(cache FeedCache) InteractionOption {
	return func(s *InteractionService) { s.cache = cache }
}

// WithViewSnapshot sets the read transaction options used when a mutation
// returns the refreshed post view. Pass the same options as the feed.
func WithViewSnapshot(opts *sql.TxOptions) InteractionOption {
	return func(s *InteractionService) { s.snapshot = opts }
}

// WithMaxImageBytes overrides the image size bound.
func WithMaxImageBytes(n int64) InteractionOption {
	return func(s *InteractionService) {
		if n > 0 {
			s.maxImageBytes = n
		}
	}
}

// NewInteractionService creates an InteractionService.
func NewInteractionService(db *gorm.DB, store storage.ObjectStore, opts ...InteractionOption) *InteractionService {
	s := &InteractionService{db: db, store: store, maxImageBytes: DefaultMaxImageBytes}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePost stores the optional image, then inserts the post owned by actor.
func (s *InteractionService) CreatePost(ctx context.Context, actor Actor, in CreatePostInput) (view models.PostView, err error) {
	ctx, span := startSpan(ctx, "interaction.CreatePost", actor.ID)
	defer func() { finish(span, "create_post", err) }()

	if err := requireActor(actor); err != nil {
		return models.PostView{}, err
	}
	content, err := cleanText("content", in.Content)
	if err != nil {
		return models.PostView{}, err
	}

	var data []byte
	var info storage.ImageInfo
	if in.Image != nil && in.Image.Reader != nil {
		data, info, err = s.readImage(in.Image)
		if err != nil {
			return models.PostView{}, err
		}
	}

	var ref string
	if data != nil {
		name := uuid.NewString() + info.Extension
		ref, err = s.store.Put(ctx, storage.Namespace(actor.ID, actor.Name), name, data)
		if err != nil {
			return models.PostView{}, models.NewInternalError(fmt.Errorf("store image: %w", err))
		}
	}

	post := models.Post{UserID: actor.ID, Content: content, ImageRef: ref}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		if ref != "" {
			if delErr := s.store.Delete(context.WithoutCancel(ctx), ref); delErr != nil {
				utils.Logger.Warn("orphaned image left behind", zap.String("ref", ref), zap.Error(delErr))
			}
		}
		return models.PostView{}, models.NewInternalError(err)
	}

	s.invalidateFeed(ctx)
	return postView(s.store, post, actor.Name), nil
}

func (s *InteractionService) readImage(img *ImageUpload) ([]byte, storage.ImageInfo, error) {
	data, err := io.ReadAll(io.LimitReader(img.Reader, s.maxImageBytes+1))
	if err != nil {
		return nil, storage.ImageInfo{}, models.NewInternalError(fmt.Errorf("read upload: %w", err))
	}
	if int64(len(data)) > s.maxImageBytes {
		return nil, storage.ImageInfo{}, models.NewValidationError(
			fmt.Sprintf("image may not be greater than %d kilobytes", s.maxImageBytes/1024))
	}
	info, err := storage.DetectImage(data)
	if err != nil {
		return nil, storage.ImageInfo{}, models.NewValidationError("image must be a file of type: jpeg, png, jpg, gif, webp")
	}
	return data, info, nil
}

// EditCaption replaces the content of a post owned by actor.
func (s *InteractionService) EditCaption(ctx context.Context, actor Actor, postID uint, content string) (view models.PostView, err error) {
	ctx, span := startSpan(ctx, "interaction.EditCaption", actor.ID)
	defer func() { finish(span, "edit_caption", err) }()

	if err := requireActor(actor); err != nil {
		return models.PostView{}, err
	}
	content, err = cleanText("content", content)
	if err != nil {
		return models.PostView{}, err
	}

	changed := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}
		if err := authorize(actor, post.UserID); err != nil {
			return err
		}
		// unchanged content is a successful no-op
		if post.Content == content {
			return nil
		}
		changed = true
		return tx.Model(post).Update("content", content).Error
	})
	if err != nil {
		return models.PostView{}, asAppError(err)
	}

	if changed {
		s.invalidateFeed(ctx)
	}
	return loadPostView(s.db.WithContext(ctx), s.store, s.snapshot, actor.ID, postID)
}

// DeletePost removes a post owned by actor together with its likes and
// comments, then releases its image.
func (s *InteractionService) DeletePost(ctx context.Context, actor Actor, postID uint) (err error) {
	ctx, span := startSpan(ctx, "interaction.DeletePost", actor.ID)
	defer func() { finish(span, "delete_post", err) }()

	if err := requireActor(actor); err != nil {
		return err
	}

	var imageRef string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}
		if err := authorize(actor, post.UserID); err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(post).Error; err != nil {
			return err
		}
		imageRef = post.ImageRef
		return nil
	})
	if err != nil {
		return asAppError(err)
	}

	if imageRef != "" {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), imageRef); delErr != nil {
			utils.Logger.Warn("failed to release post image",
				zap.Uint("post_id", postID), zap.String("ref", imageRef), zap.Error(delErr))
		}
	}
	s.invalidateFeed(ctx)
	return nil
}

// ToggleLike flips the actor's like on a post and reports the resulting state.
// The post row lock serializes toggles on one post, so read-then-write on
// the like row cannot race.
func (s *InteractionService) ToggleLike(ctx context.Context, actor Actor, postID uint) (state models.LikeState, err error) {
	ctx, span := startSpan(ctx, "interaction.ToggleLike", actor.ID)
	defer func() { finish(span, "toggle_like", err) }()

	if err := requireActor(actor); err != nil {
		return models.LikeState{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&models.Like{}).
			Where("post_id = ? AND user_id = ?", postID, actor.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			if err := tx.Where("post_id = ? AND user_id = ?", postID, actor.ID).Delete(&models.Like{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Create(&models.Like{PostID: postID, UserID: actor.ID}).Error; err != nil {
				return err
			}
		}

		// recount inside the same unit of work
		if err := tx.Model(&models.Like{}).Where("post_id = ?", postID).Count(&state.Likes).Error; err != nil {
			return err
		}
		var mineNow int64
		if err := tx.Model(&models.Like{}).
			Where("post_id = ? AND user_id = ?", postID, actor.ID).
			Count(&mineNow).Error; err != nil {
			return err
		}
		state.Liked = mineNow > 0
		return nil
	})
	if err != nil {
		return models.LikeState{}, asAppError(err)
	}

	action := "unlike"
	if state.Liked {
		action = "like"
	}
	utils.LikeTogglesTotal.WithLabelValues(action).Inc()
	s.invalidateFeed(ctx)
	return state, nil
}

// AddComment attaches a comment by actor to an existing post.
func (s *InteractionService) AddComment(ctx context.Context, actor Actor, postID uint, text string) (view models.CommentView, err error) {
	ctx, span := startSpan(ctx, "interaction.AddComment", actor.ID)
	defer func() { finish(span, "add_comment", err) }()

	if err := requireActor(actor); err != nil {
		return models.CommentView{}, err
	}
	text, err = cleanText("comment", text)
	if err != nil {
		return models.CommentView{}, err
	}

	comment := models.Comment{PostID: postID, UserID: actor.ID, Text: text}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the lock keeps a concurrent delete from leaving this comment orphaned
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return models.CommentView{}, asAppError(err)
	}

	s.invalidateFeed(ctx)
	return commentView(comment, actor.Name), nil
}

// DeleteComment removes a comment written by actor under postID.
func (s *InteractionService) DeleteComment(ctx context.Context, actor Actor, postID, commentID uint) (err error) {
	ctx, span := startSpan(ctx, "interaction.DeleteComment", actor.ID)
	defer func() { finish(span, "delete_comment", err) }()

	if err := requireActor(actor); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND post_id = ?", commentID, postID).
			First(&comment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("comment", commentID)
		}
		if err != nil {
			return err
		}
		if err := authorize(actor, comment.UserID); err != nil {
			return err
		}
		return tx.Delete(&comment).Error
	})
	if err != nil {
		return asAppError(err)
	}

	s.invalidateFeed(ctx)
	return nil
}

func lockPost(tx *gorm.DB, postID uint) (*models.Post, error) {
	var post models.Post
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("post", postID)
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *InteractionService) invalidateFeed(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(context.WithoutCancel(ctx)); err != nil {
		utils.Logger.Warn("feed cache bump failed", zap.Error(err))
	}
}
