package controllers

import (
	"context"

	"gorm.io/gorm"

	"github.com/Morgoth-Ryuk/hw05-final/models"
	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

// Feed queries shared by the HTML views and the JSON API.

func allPosts(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Post{}).Order(models.FeedOrder)
}

func groupPosts(db *gorm.DB, groupID uint) *gorm.DB {
	return allPosts(db).Where("group_id = ?", groupID)
}

func authorPosts(db *gorm.DB, authorID uint) *gorm.DB {
	return allPosts(db).Where("author_id = ?", authorID)
}

func followedPosts(db *gorm.DB, userID uint) *gorm.DB {
	following := db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", userID)
	return allPosts(db).Where("author_id IN (?)", following)
}

func postPage(q *gorm.DB, rawPage string, perPage int) (*utils.Page[models.Post], error) {
	return utils.Paginate[models.Post](q, rawPage, perPage, "Author", "Group")
}

func findGroup(ctx context.Context, db *gorm.DB, slug string) (*models.Group, error) {
	var g models.Group
	if err := db.WithContext(ctx).Where("slug = ?", slug).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func findUser(ctx context.Context, db *gorm.DB, username string) (*models.User, error) {
	var u models.User
	if err := db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func findPost(ctx context.Context, db *gorm.DB, id uint) (*models.Post, error) {
	var p models.Post
	if err := db.WithContext(ctx).Preload("Author").Preload("Group").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func postComments(ctx context.Context, db *gorm.DB, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := db.WithContext(ctx).Preload("Author").
		Where("post_id = ?", postID).
		Order("created ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func isFollowing(ctx context.Context, db *gorm.DB, userID, authorID uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&n).Error
	return n > 0, err
}

func countAuthorPosts(ctx context.Context, db *gorm.DB, authorID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&models.Post{}).Where("author_id = ?", authorID).Count(&n).Error
	return n, err
}
