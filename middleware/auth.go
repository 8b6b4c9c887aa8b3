package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Morgoth-Ryuk/hw05-final/config"
	"github.com/Morgoth-Ryuk/hw05-final/models"
	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

// LoginURL is where anonymous users are sent for auth-required pages.
const LoginURL = "/auth/login/"

// LoginRedirectURL builds the login URL that returns to next afterwards. Slashes stay literal.
func LoginRedirectURL(next string) string {
	return LoginURL + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// LoginRequired redirects anonymous visitors to the login page.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if CurrentUser(ctx) == nil {
			ctx.Redirect(http.StatusFound, LoginRedirectURL(ctx.Request.URL.RequestURI()))
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// IsAdmin reports whether the user is listed in AdminUsernames.
func IsAdmin(user *models.User) bool {
	if user == nil {
		return false
	}
	for _, name := range config.Get().AdminUsernames {
		if strings.EqualFold(name, user.Username) {
			return true
		}
	}
	return false
}

// AdminRequired hides admin pages from everyone else behind notFound.
func AdminRequired(notFound gin.HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !IsAdmin(CurrentUser(ctx)) {
			notFound(ctx)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// BearerAuthRequired ensures an API request carries a valid bearer token.
func BearerAuthRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			return
		}

		var user models.User
		if err := db.WithContext(ctx.Request.Context()).First(&user, claims.UserID).Error; err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "user no longer exists")
			return
		}

		ctx.Set(ContextUserKey, &user)
		ctx.Set(ContextUserIDKey, user.ID)
		ctx.Set(ContextUsernameKey, user.Username)
		ctx.Next()
	}
}
