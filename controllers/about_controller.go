package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StaticPage renders a template that needs no data.
func StaticPage(name string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		render(ctx, http.StatusOK, name, nil)
	}
}

// Health reports liveness and database reachability.
func Health(ping func() error) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ping != nil {
			if err := ping(); err != nil {
				ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
