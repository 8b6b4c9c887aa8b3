package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Morgoth-Ryuk/hw05-final/events"
	"github.com/Morgoth-Ryuk/hw05-final/forms"
	"github.com/Morgoth-Ryuk/hw05-final/middleware"
	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

// render executes a page template with the viewer and request path added to data.
func render(ctx *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if u := middleware.CurrentUser(ctx); u != nil {
		data["User"] = u
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = forms.FieldErrors{}
	}
	data["Path"] = ctx.Request.URL.Path
	ctx.HTML(status, name, data)
}

// NotFound renders the custom 404 page.
func NotFound(ctx *gin.Context) {
	render(ctx, http.StatusNotFound, "core/404.html", nil)
}

func serverError(ctx *gin.Context, err error) {
	utils.Logger.Error("request failed", zap.String("path", ctx.Request.URL.Path), zap.Error(err))
	_ = ctx.Error(err)
	render(ctx, http.StatusInternalServerError, "core/500.html", nil)
}

// notFoundOr renders 404 for missing records and 500 for anything else.
func notFoundOr(ctx *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(ctx)
		return
	}
	serverError(ctx, err)
}

func paramID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func postURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}

// safeNext accepts only local absolute paths as post-login targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// publish sends ev without failing the request.
func publish(ctx context.Context, pub events.Publisher, ev events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		utils.Sugar.Warnf("publish %s failed: %v", ev.Type, err)
	}
}
