// Command seed fills the configured database with the admin account, the
// starter posts and optional generated demo data.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/cppla/postwall/config"
	"github.com/cppla/postwall/models"
	"github.com/cppla/postwall/seed"
	"github.com/cppla/postwall/utils"
)

func main() {
	numUsers := flag.Int("users", 0, "number of generated users")
	numPosts := flag.Int("posts", 0, "number of generated posts")
	password := flag.String("password", seed.DefaultPassword, "password of every seeded account")
	fakeSeed := flag.Int64("seed", 0, "random seed for generated data (0 = random)")
	flag.Parse()

	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync() //nolint:errcheck

	db := config.InitDatabase(&models.User{}, &models.Post{}, &models.Comment{}, &models.Like{})

	res, err := seed.Run(db, seed.Options{
		Users:    *numUsers,
		Posts:    *numPosts,
		Password: *password,
		Seed:     *fakeSeed,
	})
	if err != nil {
		utils.Sugar.Fatalf("seeding failed: %v", err)
	}

	// cached feeds predate the new rows
	if cache := utils.NewRedisFeedCache(utils.GetRedis()); cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := cache.Bump(ctx); err != nil {
			utils.Sugar.Warnf("feed cache bump failed: %v", err)
		}
		cancel()
	}

	utils.Sugar.Infof("seeded %d users, %d posts, %d comments, %d likes",
		res.Users, res.Posts, res.Comments, res.Likes)
}
