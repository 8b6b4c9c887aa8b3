// Command seed fills the database with fake groups, users, posts, comments and follows.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Morgoth-Ryuk/hw05-final/config"
	"github.com/Morgoth-Ryuk/hw05-final/models"
	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

func main() {
	nUsers := flag.Int("users", 10, "users to create")
	nGroups := flag.Int("groups", 3, "groups to create")
	nPosts := flag.Int("posts", 50, "posts to create")
	nComments := flag.Int("comments", 100, "comments to create")
	password := flag.String("password", "yatube-pass", "password for every seeded user")
	seed := flag.Int64("seed", 0, "random seed, 0 for a random one")
	flag.Parse()

	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		log.Fatal(err)
	}
	gofakeit.Seed(*seed)

	db := config.InitDatabase(models.All()...)
	err := db.Transaction(func(tx *gorm.DB) error {
		return run(tx, *nUsers, *nGroups, *nPosts, *nComments, *password)
	})
	if err != nil {
		utils.Sugar.Fatalf("seeding failed: %v", err)
	}
	utils.Sugar.Infof("seeded %d users, %d groups, %d posts, %d comments", *nUsers, *nGroups, *nPosts, *nComments)
}

func run(tx *gorm.DB, nUsers, nGroups, nPosts, nComments int, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	users := make([]models.User, 0, nUsers)
	for i := 0; i < nUsers; i++ {
		users = append(users, models.User{
			Username:     fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), gofakeit.Number(10, 9999)),
			Email:        gofakeit.Email(),
			PasswordHash: hash,
		})
	}
	if len(users) > 0 {
		if err := tx.Create(&users).Error; err != nil {
			return fmt.Errorf("users: %w", err)
		}
	}

	groups := make([]models.Group, 0, nGroups)
	for i := 0; i < nGroups; i++ {
		title := gofakeit.HipsterWord() + " " + gofakeit.Noun()
		groups = append(groups, models.Group{
			Title:       title,
			Slug:        fmt.Sprintf("%s-%d", strings.ReplaceAll(strings.ToLower(title), " ", "-"), i+1),
			Description: gofakeit.Paragraph(1, 3, 12, " "),
		})
	}
	if len(groups) > 0 {
		if err := tx.Create(&groups).Error; err != nil {
			return fmt.Errorf("groups: %w", err)
		}
	}
	if len(users) == 0 {
		return nil
	}

	posts := make([]models.Post, 0, nPosts)
	for i := 0; i < nPosts; i++ {
		p := models.Post{
			Text:     gofakeit.Paragraph(1, 4, 15, "\n"),
			AuthorID: users[gofakeit.Number(0, len(users)-1)].ID,
			PubDate:  gofakeit.PastDate(),
		}
		if len(groups) > 0 && gofakeit.Bool() {
			gid := groups[gofakeit.Number(0, len(groups)-1)].ID
			p.GroupID = &gid
		}
		posts = append(posts, p)
	}
	if len(posts) > 0 {
		if err := tx.Create(&posts).Error; err != nil {
			return fmt.Errorf("posts: %w", err)
		}
	}

	if len(posts) > 0 {
		comments := make([]models.Comment, 0, nComments)
		for i := 0; i < nComments; i++ {
			text := gofakeit.Sentence(gofakeit.Number(3, 20))
			if r := []rune(text); len(r) > models.CommentMaxLength {
				text = string(r[:models.CommentMaxLength])
			}
			comments = append(comments, models.Comment{
				PostID:   posts[gofakeit.Number(0, len(posts)-1)].ID,
				AuthorID: users[gofakeit.Number(0, len(users)-1)].ID,
				Text:     text,
			})
		}
		if len(comments) > 0 {
			if err := tx.Create(&comments).Error; err != nil {
				return fmt.Errorf("comments: %w", err)
			}
		}
	}

	var follows []models.Follow
	for _, u := range users {
		for _, a := range users {
			if u.ID != a.ID && gofakeit.Number(1, 4) == 1 {
				follows = append(follows, models.Follow{UserID: u.ID, AuthorID: a.ID})
			}
		}
	}
	if len(follows) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&follows).Error; err != nil {
			return fmt.Errorf("follows: %w", err)
		}
	}
	return nil
}
