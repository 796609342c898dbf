package main

import (
	"context"
	"time"

	"github.com/cppla/postwall/config"
	"github.com/cppla/postwall/models"
	"github.com/cppla/postwall/routes"
	"github.com/cppla/postwall/services"
	"github.com/cppla/postwall/storage"
	"github.com/cppla/postwall/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync() //nolint:errcheck

	shutdownTracing, err := utils.InitTracing("postwall", cfg.AppEnv, cfg.TracingEnabled)
	if err != nil {
		utils.Sugar.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	db := config.InitDatabase(&models.User{}, &models.Post{}, &models.Comment{}, &models.Like{})

	store, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadPublicPath)
	if err != nil {
		utils.Sugar.Fatalf("failed to open upload store: %v", err)
	}

	snapshot := config.SnapshotTxOptions(cfg.DBDriver)
	interactionOpts := []services.InteractionOption{
		services.WithMaxImageBytes(cfg.MaxImageBytes),
		services.WithViewSnapshot(snapshot),
	}
	feedOpts := []services.FeedOption{services.WithSnapshot(snapshot)}
	// Only wire the cache when redis answered; a nil *RedisFeedCache must not
	// end up inside the interface.
	if cache := utils.NewRedisFeedCache(utils.GetRedis()); cache != nil {
		interactionOpts = append(interactionOpts, services.WithFeedCache(cache))
		feedOpts = append(feedOpts, services.WithCache(cache, time.Duration(cfg.FeedCacheTTLSec)*time.Second))
	} else {
		utils.Sugar.Warn("redis unavailable, feed cache disabled")
	}
	interactions := services.NewInteractionService(db, store, interactionOpts...)
	feed := services.NewFeedService(db, store, feedOpts...)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	sweepEvery := time.Duration(cfg.OrphanSweepMinutes) * time.Minute
	services.StartOrphanSweeper(sweepCtx, db, store, sweepEvery, sweepEvery)

	r := routes.SetupRouter(db, interactions, feed)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.RunServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
