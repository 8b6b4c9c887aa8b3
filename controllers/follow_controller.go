package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Morgoth-Ryuk/hw05-final/config"
	"github.com/Morgoth-Ryuk/hw05-final/events"
	"github.com/Morgoth-Ryuk/hw05-final/middleware"
	"github.com/Morgoth-Ryuk/hw05-final/models"
)

// FollowController manages subscriptions between users and the subscription feed.
type FollowController struct {
	db     *gorm.DB
	events events.Publisher
}

func NewFollowController(db *gorm.DB, pub events.Publisher) *FollowController {
	return &FollowController{db: db, events: pub}
}

// FollowIndex lists posts by authors the viewer follows.
func (f *FollowController) FollowIndex(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	q := followedPosts(f.db.WithContext(ctx.Request.Context()), user.ID)
	page, err := postPage(q, ctx.Query("page"), config.Get().FollowPageSize)
	if err != nil {
		serverError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "posts/follow.html", gin.H{"Page": page})
}

// ProfileFollow subscribes the viewer to an author. Following yourself or
// following twice changes nothing.
func (f *FollowController) ProfileFollow(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	author, err := findUser(reqCtx, f.db, ctx.Param("username"))
	if err != nil {
		notFoundOr(ctx, err)
		return
	}
	user := middleware.CurrentUser(ctx)

	if user.ID != author.ID {
		exists, err := isFollowing(reqCtx, f.db, user.ID, author.ID)
		if err != nil {
			serverError(ctx, err)
			return
		}
		if !exists {
			edge := models.Follow{UserID: user.ID, AuthorID: author.ID}
			res := f.db.WithContext(reqCtx).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
			if res.Error != nil {
				serverError(ctx, res.Error)
				return
			}
			if res.RowsAffected > 0 {
				publish(reqCtx, f.events, events.Event{Type: events.FollowCreated, ActorID: user.ID, AuthorID: author.ID})
			}
		}
	}
	ctx.Redirect(http.StatusFound, profileURL(author.Username))
}

// ProfileUnfollow removes the subscription if there is one.
func (f *FollowController) ProfileUnfollow(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	author, err := findUser(reqCtx, f.db, ctx.Param("username"))
	if err != nil {
		notFoundOr(ctx, err)
		return
	}
	user := middleware.CurrentUser(ctx)

	res := f.db.WithContext(reqCtx).
		Where("user_id = ? AND author_id = ?", user.ID, author.ID).
		Delete(&models.Follow{})
	if res.Error != nil {
		serverError(ctx, res.Error)
		return
	}
	if res.RowsAffected > 0 {
		publish(reqCtx, f.events, events.Event{Type: events.FollowDeleted, ActorID: user.ID, AuthorID: author.ID})
	}
	ctx.Redirect(http.StatusFound, profileURL(author.Username))
}
