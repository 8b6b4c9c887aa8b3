package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Morgoth-Ryuk/hw05-final/forms"
	"github.com/Morgoth-Ryuk/hw05-final/models"
	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

// GroupController lets administrators create groups.
type GroupController struct {
	db *gorm.DB
}

func NewGroupController(db *gorm.DB) *GroupController {
	return &GroupController{db: db}
}

// CreateGroup renders and handles the new group form.
func (g *GroupController) CreateGroup(ctx *gin.Context) {
	if ctx.Request.Method != http.MethodPost {
		render(ctx, http.StatusOK, "admin/group_form.html", gin.H{"Form": forms.GroupInput{}})
		return
	}

	in, fe := forms.ValidateGroup(forms.GroupInput{
		Title:       ctx.PostForm("title"),
		Slug:        ctx.PostForm("slug"),
		Description: ctx.PostForm("description"),
	}, g.slugTaken(ctx))
	if len(fe) > 0 {
		render(ctx, http.StatusOK, "admin/group_form.html", gin.H{"Form": in, "Errors": fe})
		return
	}

	group := models.Group{Title: in.Title, Slug: in.Slug, Description: in.Description}
	if err := g.db.WithContext(ctx.Request.Context()).Create(&group).Error; err != nil {
		serverError(ctx, err)
		return
	}
	utils.Sugar.Infow("group created", "slug", group.Slug)
	ctx.Redirect(http.StatusFound, "/group/"+group.Slug+"/")
}

func (g *GroupController) slugTaken(ctx *gin.Context) func(string) bool {
	return func(slug string) bool {
		var n int64
		if err := g.db.WithContext(ctx.Request.Context()).Model(&models.Group{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
			utils.Sugar.Errorf("slug lookup %q: %v", slug, err)
			return false
		}
		return n > 0
	}
}
