package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Morgoth-Ryuk/hw05-final/config"
	"github.com/Morgoth-Ryuk/hw05-final/models"
	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextUserKey stores the loaded *models.User.
	ContextUserKey = "user"
	// ContextTokenKey stores the raw session token so logout can revoke it.
	ContextTokenKey = "session_token"
)

// SessionAuth loads the user behind the session cookie, if any. It never rejects a request.
func SessionAuth(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		name := config.Get().SessionCookieName
		token, err := ctx.Cookie(name)
		if err != nil || token == "" {
			ctx.Next()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			ClearSessionCookie(ctx)
			ctx.Next()
			return
		}

		var user models.User
		if err := db.WithContext(ctx.Request.Context()).First(&user, claims.UserID).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				utils.Sugar.Errorf("session user lookup failed id=%d: %v", claims.UserID, err)
			}
			ClearSessionCookie(ctx)
			ctx.Next()
			return
		}

		ctx.Set(ContextUserKey, &user)
		ctx.Set(ContextUserIDKey, user.ID)
		ctx.Set(ContextUsernameKey, user.Username)
		ctx.Set(ContextTokenKey, token)
		ctx.Next()
	}
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(ctx *gin.Context) *models.User {
	v, ok := ctx.Get(ContextUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// CurrentUserID returns the authenticated user id, 0 for anonymous requests.
func CurrentUserID(ctx *gin.Context) uint {
	return ctx.GetUint(ContextUserIDKey)
}

// StartSession issues a session token for user and sets it as an HttpOnly cookie.
func StartSession(ctx *gin.Context, user *models.User) error {
	cfg := config.Get()
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	token, _, err := utils.GenerateToken(user.ID, user.Username, ttl)
	if err != nil {
		return err
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(cfg.SessionCookieName, token, int(ttl.Seconds()), "/", "", cfg.SecureCookies, true)
	ctx.Set(ContextUserKey, user)
	ctx.Set(ContextUserIDKey, user.ID)
	ctx.Set(ContextUsernameKey, user.Username)
	return nil
}

// EndSession revokes the current session token and drops the cookie.
func EndSession(ctx *gin.Context) {
	if token := ctx.GetString(ContextTokenKey); token != "" {
		if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
			utils.BlacklistToken(token, claims.ExpiresAt.Time)
		}
	}
	ClearSessionCookie(ctx)
	for _, k := range []string{ContextUserKey, ContextUserIDKey, ContextUsernameKey, ContextTokenKey} {
		delete(ctx.Keys, k)
	}
}

func ClearSessionCookie(ctx *gin.Context) {
	cfg := config.Get()
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(cfg.SessionCookieName, "", -1, "/", "", cfg.SecureCookies, true)
}
