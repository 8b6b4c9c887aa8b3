package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Morgoth-Ryuk/hw05-final/config"
	"github.com/Morgoth-Ryuk/hw05-final/events"
	"github.com/Morgoth-Ryuk/hw05-final/forms"
	"github.com/Morgoth-Ryuk/hw05-final/middleware"
	"github.com/Morgoth-Ryuk/hw05-final/models"
	"github.com/Morgoth-Ryuk/hw05-final/storage"
	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

// PostController serves the feeds, post pages and the post/comment forms.
type PostController struct {
	db     *gorm.DB
	images storage.ImageStore
	events events.Publisher
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB, images storage.ImageStore, pub events.Publisher) *PostController {
	return &PostController{db: db, images: images, events: pub}
}

// Index lists every post, newest first.
func (p *PostController) Index(ctx *gin.Context) {
	db := p.db.WithContext(ctx.Request.Context())
	page, err := postPage(allPosts(db), ctx.Query("page"), config.Get().IndexPageSize)
	if err != nil {
		serverError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "posts/index.html", gin.H{"Page": page})
}

// GroupPosts lists the posts of one group.
func (p *PostController) GroupPosts(ctx *gin.Context) {
	db := p.db.WithContext(ctx.Request.Context())
	group, err := findGroup(ctx.Request.Context(), p.db, ctx.Param("slug"))
	if err != nil {
		notFoundOr(ctx, err)
		return
	}
	page, err := postPage(groupPosts(db, group.ID), ctx.Query("page"), config.Get().GroupPageSize)
	if err != nil {
		serverError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "posts/group_list.html", gin.H{"Group": group, "Page": page})
}

// Profile lists an author's posts together with the viewer's follow status.
func (p *PostController) Profile(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	author, err := findUser(reqCtx, p.db, ctx.Param("username"))
	if err != nil {
		notFoundOr(ctx, err)
		return
	}
	page, err := postPage(authorPosts(p.db.WithContext(reqCtx), author.ID), ctx.Query("page"), config.Get().ProfilePageSize)
	if err != nil {
		serverError(ctx, err)
		return
	}

	following, isOwner := false, false
	if viewer := middleware.CurrentUser(ctx); viewer != nil {
		isOwner = viewer.ID == author.ID
		if following, err = isFollowing(reqCtx, p.db, viewer.ID, author.ID); err != nil {
			serverError(ctx, err)
			return
		}
	}

	render(ctx, http.StatusOK, "posts/profile.html", gin.H{
		"Author":    author,
		"Page":      page,
		"PostCount": page.Count,
		"Following": following,
		"IsOwner":   isOwner,
	})
}

// PostDetail shows one post, its comments and the comment form.
func (p *PostController) PostDetail(ctx *gin.Context) {
	id, ok := paramID(ctx, "post_id")
	if !ok {
		NotFound(ctx)
		return
	}
	reqCtx := ctx.Request.Context()
	post, err := findPost(reqCtx, p.db, id)
	if err != nil {
		notFoundOr(ctx, err)
		return
	}
	count, err := countAuthorPosts(reqCtx, p.db, post.AuthorID)
	if err != nil {
		serverError(ctx, err)
		return
	}
	comments, err := postComments(reqCtx, p.db, post.ID)
	if err != nil {
		serverError(ctx, err)
		return
	}

	viewer := middleware.CurrentUser(ctx)
	render(ctx, http.StatusOK, "posts/post_detail.html", gin.H{
		"Post":      post,
		"PostCount": count,
		"Comments":  comments,
		"CanEdit":   viewer != nil && viewer.ID == post.AuthorID,
		"Form":      forms.CommentInput{},
	})
}

// PostCreate renders and handles the new post form.
func (p *PostController) PostCreate(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	if ctx.Request.Method != http.MethodPost {
		p.renderPostForm(ctx, http.StatusOK, nil, forms.PostInput{}, nil)
		return
	}

	in := forms.PostInput{Text: ctx.PostForm("text"), Group: ctx.PostForm("group")}
	data, fe := forms.ValidatePost(in, p.groupExists(ctx))
	img := p.readImage(ctx, fe)
	if len(fe) > 0 {
		p.renderPostForm(ctx, http.StatusOK, nil, in, fe)
		return
	}

	post := models.Post{Text: data.Text, AuthorID: user.ID, GroupID: data.GroupID}
	if img != nil {
		key, err := storage.SaveImage(ctx.Request.Context(), p.images, img.Name, img.ContentType, img.Data)
		if err != nil {
			serverError(ctx, err)
			return
		}
		post.Image = key
	}
	if err := p.db.WithContext(ctx.Request.Context()).Create(&post).Error; err != nil {
		serverError(ctx, err)
		return
	}

	utils.Sugar.Infow("post created", "post_id", post.ID, "author", user.Username)
	publish(ctx.Request.Context(), p.events, events.Event{Type: events.PostCreated, ActorID: user.ID, PostID: post.ID, AuthorID: user.ID})
	ctx.Redirect(http.StatusFound, profileURL(user.Username))
}

// PostEdit lets the author change text, group and image. Anyone else is sent back to the post.
func (p *PostController) PostEdit(ctx *gin.Context) {
	id, ok := paramID(ctx, "post_id")
	if !ok {
		NotFound(ctx)
		return
	}
	reqCtx := ctx.Request.Context()
	post, err := findPost(reqCtx, p.db, id)
	if err != nil {
		notFoundOr(ctx, err)
		return
	}
	user := middleware.CurrentUser(ctx)
	if user.ID != post.AuthorID {
		ctx.Redirect(http.StatusFound, postURL(post.ID))
		return
	}

	if ctx.Request.Method != http.MethodPost {
		in := forms.PostInput{Text: post.Text}
		if post.GroupID != nil {
			in.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
		}
		p.renderPostForm(ctx, http.StatusOK, post, in, nil)
		return
	}

	in := forms.PostInput{Text: ctx.PostForm("text"), Group: ctx.PostForm("group")}
	data, fe := forms.ValidatePost(in, p.groupExists(ctx))
	img := p.readImage(ctx, fe)
	if len(fe) > 0 {
		p.renderPostForm(ctx, http.StatusOK, post, in, fe)
		return
	}

	oldImage := post.Image
	newImage := oldImage
	switch {
	case img != nil:
		key, err := storage.SaveImage(reqCtx, p.images, img.Name, img.ContentType, img.Data)
		if err != nil {
			serverError(ctx, err)
			return
		}
		newImage = key
	case ctx.PostForm("image_clear") != "":
		newImage = ""
	}

	var groupID interface{}
	if data.GroupID != nil {
		groupID = *data.GroupID
	}
	updates := map[string]interface{}{
		"text":     data.Text,
		"group_id": groupID,
		"image":    newImage,
	}
	if err := p.db.WithContext(reqCtx).Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
		serverError(ctx, err)
		return
	}
	if oldImage != "" && oldImage != newImage {
		if err := p.images.Delete(reqCtx, oldImage); err != nil {
			utils.Sugar.Warnf("remove replaced image %s: %v", oldImage, err)
		}
	}

	publish(reqCtx, p.events, events.Event{Type: events.PostUpdated, ActorID: user.ID, PostID: post.ID, AuthorID: user.ID})
	ctx.Redirect(http.StatusFound, postURL(post.ID))
}

// AddComment stores a comment when the form is valid and always returns to the post.
func (p *PostController) AddComment(ctx *gin.Context) {
	id, ok := paramID(ctx, "post_id")
	if !ok {
		NotFound(ctx)
		return
	}
	reqCtx := ctx.Request.Context()
	var post models.Post
	if err := p.db.WithContext(reqCtx).Select("id", "author_id").First(&post, id).Error; err != nil {
		notFoundOr(ctx, err)
		return
	}

	if ctx.Request.Method == http.MethodPost {
		user := middleware.CurrentUser(ctx)
		text, fe := forms.ValidateComment(forms.CommentInput{Text: ctx.PostForm("text")})
		if len(fe) == 0 {
			comment := models.Comment{PostID: post.ID, AuthorID: user.ID, Text: text}
			if err := p.db.WithContext(reqCtx).Create(&comment).Error; err != nil {
				serverError(ctx, err)
				return
			}
			publish(reqCtx, p.events, events.Event{Type: events.CommentCreated, ActorID: user.ID, PostID: post.ID, AuthorID: post.AuthorID})
		}
	}
	ctx.Redirect(http.StatusFound, postURL(post.ID))
}

func (p *PostController) renderPostForm(ctx *gin.Context, status int, post *models.Post, in forms.PostInput, fe forms.FieldErrors) {
	var groups []models.Group
	if err := p.db.WithContext(ctx.Request.Context()).Order("title").Find(&groups).Error; err != nil {
		serverError(ctx, err)
		return
	}
	if fe == nil {
		fe = forms.FieldErrors{}
	}
	render(ctx, status, "posts/create_post.html", gin.H{
		"Form":   in,
		"Errors": fe,
		"Groups": groups,
		"Post":   post,
		"IsEdit": post != nil,
	})
}

func (p *PostController) groupExists(ctx *gin.Context) func(uint) bool {
	return func(id uint) bool {
		var n int64
		if err := p.db.WithContext(ctx.Request.Context()).Model(&models.Group{}).Where("id = ?", id).Count(&n).Error; err != nil {
			utils.Sugar.Errorf("group lookup id=%d: %v", id, err)
			return false
		}
		return n > 0
	}
}

// readImage loads the optional image upload, recording problems in fe.
func (p *PostController) readImage(ctx *gin.Context, fe forms.FieldErrors) *forms.Image {
	fh, err := ctx.FormFile("image")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
			fe.Add("image", "The submitted file could not be read.")
		}
		return nil
	}
	img, err := forms.ReadImage(fh, int64(config.Get().MaxImageMB)<<20)
	if err != nil {
		if errors.Is(err, forms.ErrNotImage) {
			fe.Add("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		} else {
			fe.Add("image", err.Error())
		}
		return nil
	}
	return img
}
