package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Morgoth-Ryuk/hw05-final/config"
	"github.com/Morgoth-Ryuk/hw05-final/middleware"
	"github.com/Morgoth-Ryuk/hw05-final/models"
	"github.com/Morgoth-Ryuk/hw05-final/storage"
	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

// APIController exposes the feeds as JSON.
type APIController struct {
	db     *gorm.DB
	images storage.ImageStore
}

func NewAPIController(db *gorm.DB, images storage.ImageStore) *APIController {
	return &APIController{db: db, images: images}
}

type postResponse struct {
	ID       uint              `json:"id"`
	Text     string            `json:"text"`
	PubDate  time.Time         `json:"pub_date"`
	Author   string            `json:"author"`
	Group    string            `json:"group,omitempty"`
	Image    string            `json:"image,omitempty"`
	Comments []commentResponse `json:"comments,omitempty"`
}

type commentResponse struct {
	ID      uint      `json:"id"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	Created time.Time `json:"created"`
}

type pageResponse struct {
	Items       []postResponse `json:"items"`
	Page        int            `json:"page"`
	NumPages    int            `json:"num_pages"`
	Count       int64          `json:"count"`
	HasNext     bool           `json:"has_next"`
	HasPrevious bool           `json:"has_previous"`
}

func userJSON(u *models.User) gin.H {
	return gin.H{"id": u.ID, "username": u.Username, "avatar_url": u.AvatarURL}
}

func (a *APIController) post(p models.Post) postResponse {
	out := postResponse{ID: p.ID, Text: p.Text, PubDate: p.PubDate, Author: p.Author.Username}
	if p.Group != nil {
		out.Group = p.Group.Slug
	}
	if p.Image != "" {
		out.Image = a.images.URL(p.Image)
	}
	return out
}

func (a *APIController) respondPage(ctx *gin.Context, q *gorm.DB, perPage int) {
	page, err := postPage(q, ctx.Query("page"), perPage)
	if err != nil {
		utils.Sugar.Errorf("api page load: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to load posts")
		return
	}
	items := make([]postResponse, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, a.post(p))
	}
	utils.Success(ctx, pageResponse{
		Items:       items,
		Page:        page.Number,
		NumPages:    page.NumPages,
		Count:       page.Count,
		HasNext:     page.HasNext(),
		HasPrevious: page.HasPrevious(),
	})
}

// ListPosts returns one page of the global feed.
func (a *APIController) ListPosts(ctx *gin.Context) {
	a.respondPage(ctx, allPosts(a.db.WithContext(ctx.Request.Context())), config.Get().IndexPageSize)
}

// GetPost returns a post with its comments.
func (a *APIController) GetPost(ctx *gin.Context) {
	id, ok := paramID(ctx, "post_id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}
	post, err := findPost(ctx.Request.Context(), a.db, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}
	if err != nil {
		utils.Sugar.Errorf("load post id=%d: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to load post")
		return
	}
	comments, err := postComments(ctx.Request.Context(), a.db, post.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to load comments")
		return
	}
	out := a.post(*post)
	out.Comments = make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		out.Comments = append(out.Comments, commentResponse{ID: c.ID, Author: c.Author.Username, Text: c.Text, Created: c.Created})
	}
	utils.Success(ctx, out)
}

// GroupPosts returns one page of a group's feed.
func (a *APIController) GroupPosts(ctx *gin.Context) {
	group, err := findGroup(ctx.Request.Context(), a.db, ctx.Param("slug"))
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "group not found")
		return
	}
	a.respondPage(ctx, groupPosts(a.db.WithContext(ctx.Request.Context()), group.ID), config.Get().GroupPageSize)
}

// ProfilePosts returns one page of an author's feed.
func (a *APIController) ProfilePosts(ctx *gin.Context) {
	author, err := findUser(ctx.Request.Context(), a.db, ctx.Param("username"))
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40403, "user not found")
		return
	}
	a.respondPage(ctx, authorPosts(a.db.WithContext(ctx.Request.Context()), author.ID), config.Get().ProfilePageSize)
}

// FollowFeed returns one page of the bearer's subscription feed.
func (a *APIController) FollowFeed(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)
	a.respondPage(ctx, followedPosts(a.db.WithContext(ctx.Request.Context()), userID), config.Get().FollowPageSize)
}
