package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/postwall/models"
	"github.com/cppla/postwall/storage"
	"github.com/cppla/postwall/utils"
)

// FeedService assembles the display feed.
type FeedService struct {
	db       *gorm.DB
	store    storage.ObjectStore
	cache    FeedCache
	ttl      time.Duration
	snapshot *sql.TxOptions
}

// FeedOption configures a FeedService.
type FeedOption func(*FeedService)

// WithCache serves the viewer independent feed from cache for up to ttl.
func WithCache(cache FeedCache, ttl time.Duration) FeedOption {
	return func(s *FeedService) {
		s.cache = cache
		s.ttl = ttl
	}
}

// WithSnapshot sets the options of the read transaction feeds are built in.
func WithSnapshot(opts *sql.TxOptions) FeedOption {
	return func(s *FeedService) { s.snapshot = opts }
}

// NewFeedService creates a FeedService.
func NewFeedService(db *gorm.DB, store storage.ObjectStore, opts ...FeedOption) *FeedService {
	s := &FeedService{db: db, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetFeed returns every post, newest first, with comments, like counts and
// the viewer's like flags. viewerID 0 is an anonymous reader.
func (s *FeedService) GetFeed(ctx context.Context, viewerID uint) (views []models.PostView, err error) {
	ctx, span := startSpan(ctx, "feed.GetFeed", viewerID)
	defer func() { finish(span, "get_feed", err) }()

	views, err = s.cachedFeed(ctx)
	if err != nil {
		return nil, err
	}
	if err := applyLiked(s.db.WithContext(ctx), viewerID, views); err != nil {
		return nil, models.NewInternalError(err)
	}
	return views, nil
}

// GetPost returns a single post view for the viewer.
func (s *FeedService) GetPost(ctx context.Context, viewerID, postID uint) (view models.PostView, err error) {
	ctx, span := startSpan(ctx, "feed.GetPost", viewerID)
	defer func() { finish(span, "get_post", err) }()

	return loadPostView(s.db.WithContext(ctx), s.store, s.snapshot, viewerID, postID)
}

func (s *FeedService) cachedFeed(ctx context.Context) ([]models.PostView, error) {
	if s.cache == nil {
		return s.loadFeed(ctx)
	}

	// read the generation before the data so a concurrent bump can only
	// leave a stale entry under a key nobody reads any more
	version, err := s.cache.Version(ctx)
	if err != nil {
		utils.Logger.Debug("feed cache unavailable", zap.Error(err))
		return s.loadFeed(ctx)
	}
	if b, ok, err := s.cache.Get(ctx, version); err == nil && ok {
		var views []models.PostView
		if err := json.Unmarshal(b, &views); err == nil {
			return views, nil
		}
	}

	views, err := s.loadFeed(ctx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(views); err == nil {
		if err := s.cache.Set(ctx, version, b, s.ttl); err != nil {
			utils.Logger.Debug("feed cache set failed", zap.Error(err))
		}
	}
	return views, nil
}

func (s *FeedService) loadFeed(ctx context.Context) ([]models.PostView, error) {
	var views []models.PostView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var posts []models.Post
		if err := tx.Order("created_at DESC").Order("id DESC").Find(&posts).Error; err != nil {
			return err
		}
		var err error
		views, err = assemble(tx, s.store, posts)
		return err
	}, txOptions(s.snapshot)...)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return views, nil
}
