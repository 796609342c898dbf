// Package seed populates a database with an admin account, the starter posts
// and optional generated demo data. It is meant for development only.
package seed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"

	"github.com/cppla/postwall/models"
	"github.com/cppla/postwall/services"
	"github.com/cppla/postwall/utils"
)

// AdminUsername owns the starter posts.
const AdminUsername = "admin"

// DefaultPassword is given to every seeded account unless overridden.
const DefaultPassword = "password123"

var starterPosts = []models.Post{
	{Content: "Hello, this is the admin's first post!", ImageRef: "https://picsum.photos/600/400?random=1"},
	{Content: "This is the second post, nice and easy.", ImageRef: "https://picsum.photos/600/400?random=2"},
}

// Options controls how much generated data Run adds.
type Options struct {
	Users    int
	Posts    int
	Password string
	// Seed makes generated data reproducible; 0 picks a random seed.
	Seed int64
}

// Result counts the rows Run created.
type Result struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
}

// Run ensures the admin account exists, adds the starter posts when no post
// exists yet, then generates opts.Users users and opts.Posts posts with
// random comments and likes. Everything happens in one transaction.
func Run(db *gorm.DB, opts Options) (Result, error) {
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	hash, err := utils.HashPassword(opts.Password)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}
	faker := gofakeit.New(opts.Seed)

	var res Result
	err = db.Transaction(func(tx *gorm.DB) error {
		admin, created, err := ensureUser(tx, AdminUsername, hash)
		if err != nil {
			return err
		}
		if created {
			res.Users++
		}

		var postCount int64
		if err := tx.Model(&models.Post{}).Count(&postCount).Error; err != nil {
			return err
		}
		if postCount == 0 {
			base := time.Now().Add(-time.Hour)
			for i, p := range starterPosts {
				p.UserID = admin.ID
				p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
				if err := tx.Create(&p).Error; err != nil {
					return fmt.Errorf("create starter post: %w", err)
				}
				res.Posts++
			}
		}

		users := []models.User{admin}
		for i := 0; i < opts.Users; i++ {
			u := models.User{Username: fakeUsername(faker), PasswordHash: hash}
			if err := tx.Create(&u).Error; err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			users = append(users, u)
			res.Users++
		}

		for i := 0; i < opts.Posts; i++ {
			author := users[faker.Number(0, len(users)-1)]
			post := models.Post{
				UserID:    author.ID,
				Content:   clip(faker.Sentence(faker.Number(4, 16))),
				ImageRef:  fmt.Sprintf("https://picsum.photos/seed/%s/600/400", faker.UUID()),
				CreatedAt: time.Now().Add(-time.Duration(faker.Number(1, 60*24*30)) * time.Minute),
			}
			if err := tx.Create(&post).Error; err != nil {
				return fmt.Errorf("create post: %w", err)
			}
			res.Posts++

			for c := faker.Number(0, 3); c > 0; c-- {
				commenter := users[faker.Number(0, len(users)-1)]
				comment := models.Comment{
					PostID:    post.ID,
					UserID:    commenter.ID,
					Text:      clip(faker.Sentence(faker.Number(2, 10))),
					CreatedAt: post.CreatedAt.Add(time.Duration(faker.Number(1, 600)) * time.Minute),
				}
				if err := tx.Create(&comment).Error; err != nil {
					return fmt.Errorf("create comment: %w", err)
				}
				res.Comments++
			}

			// each user likes a post at most once
			for _, u := range users {
				if !faker.Bool() {
					continue
				}
				if err := tx.Create(&models.Like{PostID: post.ID, UserID: u.ID}).Error; err != nil {
					return fmt.Errorf("create like: %w", err)
				}
				res.Likes++
			}
		}
		return nil
	})
	return res, err
}

func ensureUser(tx *gorm.DB, username, hash string) (models.User, bool, error) {
	var u models.User
	err := tx.Where("username = ?", username).First(&u).Error
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return u, false, err
	}
	u = models.User{Username: username, PasswordHash: hash}
	if err := tx.Create(&u).Error; err != nil {
		return u, false, fmt.Errorf("create %s: %w", username, err)
	}
	return u, true, nil
}

// fakeUsername returns a login friendly name with a numeric suffix so runs
// rarely collide.
func fakeUsername(faker *gofakeit.Faker) string {
	var b strings.Builder
	for _, r := range faker.Username() {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if len(name) > 24 {
		name = name[:24]
	}
	return fmt.Sprintf("%s%d", name, faker.Number(1000, 999999))
}

func clip(s string) string {
	r := []rune(s)
	if len(r) > services.MaxTextLength {
		return string(r[:services.MaxTextLength])
	}
	return s
}
