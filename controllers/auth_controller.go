package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Morgoth-Ryuk/hw05-final/config"
	"github.com/Morgoth-Ryuk/hw05-final/forms"
	"github.com/Morgoth-Ryuk/hw05-final/middleware"
	"github.com/Morgoth-Ryuk/hw05-final/models"
	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

// AuthController handles sign up, log in, log out and third-party providers.
type AuthController struct {
	db *gorm.DB
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Signup renders and handles the registration form. New users are logged in right away.
func (a *AuthController) Signup(ctx *gin.Context) {
	if ctx.Request.Method != http.MethodPost {
		render(ctx, http.StatusOK, "users/signup.html", gin.H{"Form": forms.SignupInput{}})
		return
	}

	in := forms.SignupInput{
		Username:  ctx.PostForm("username"),
		Email:     ctx.PostForm("email"),
		Password:  ctx.PostForm("password1"),
		Password2: ctx.PostForm("password2"),
	}
	in, fe := forms.ValidateSignup(in, a.usernameTaken(ctx))
	if len(fe) > 0 {
		render(ctx, http.StatusOK, "users/signup.html", gin.H{"Form": in, "Errors": fe})
		return
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		serverError(ctx, err)
		return
	}
	user := models.User{Username: in.Username, Email: in.Email, PasswordHash: hash}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			fe.Add("username", "A user with that username already exists.")
			render(ctx, http.StatusOK, "users/signup.html", gin.H{"Form": in, "Errors": fe})
			return
		}
		serverError(ctx, err)
		return
	}
	if err := middleware.StartSession(ctx, &user); err != nil {
		serverError(ctx, err)
		return
	}
	utils.Sugar.Infow("user registered", "user_id", user.ID, "username", user.Username)
	ctx.Redirect(http.StatusFound, "/")
}

// Login renders and handles the login form, honouring a local next parameter.
func (a *AuthController) Login(ctx *gin.Context) {
	next := ctx.Query("next")
	if ctx.Request.Method != http.MethodPost {
		render(ctx, http.StatusOK, "users/login.html", gin.H{
			"Form":  forms.LoginInput{},
			"Next":  next,
			"OAuth": enabledProviders(),
		})
		return
	}

	next = fallback(ctx.PostForm("next"), next)
	in, fe := forms.ValidateLogin(forms.LoginInput{
		Username: ctx.PostForm("username"),
		Password: ctx.PostForm("password"),
	})
	var user *models.User
	if len(fe) == 0 {
		var err error
		user, err = a.authenticate(ctx, in.Username, in.Password)
		if err != nil {
			serverError(ctx, err)
			return
		}
		if user == nil {
			fe.Add(forms.NonFieldKey, "Please enter a correct username and password. Note that both fields may be case-sensitive.")
		}
	}
	if len(fe) > 0 {
		in.Password = ""
		render(ctx, http.StatusOK, "users/login.html", gin.H{
			"Form":   in,
			"Errors": fe,
			"Next":   next,
			"OAuth":  enabledProviders(),
		})
		return
	}

	if err := middleware.StartSession(ctx, user); err != nil {
		serverError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, safeNext(next))
}

// Logout revokes the session and shows the logged out page.
func (a *AuthController) Logout(ctx *gin.Context) {
	middleware.EndSession(ctx)
	render(ctx, http.StatusOK, "users/logged_out.html", nil)
}

// IssueToken exchanges credentials for an API bearer token.
func (a *AuthController) IssueToken(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	user, err := a.authenticate(ctx, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to load user")
		return
	}
	if user == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "invalid credentials")
		return
	}

	ttl := time.Duration(config.Get().SessionTTLHours) * time.Hour
	token, expires, err := utils.GenerateToken(user.ID, user.Username, ttl)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "expires_at": expires, "user": userJSON(user)})
}

// authenticate returns the user for valid credentials and nil otherwise.
func (a *AuthController) authenticate(ctx *gin.Context, username, password string) (*models.User, error) {
	var user models.User
	err := a.db.WithContext(ctx.Request.Context()).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, nil
	}
	return &user, nil
}

func (a *AuthController) usernameTaken(ctx *gin.Context) func(string) bool {
	return func(username string) bool {
		var n int64
		if err := a.db.WithContext(ctx.Request.Context()).Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
			utils.Sugar.Errorf("username lookup %q: %v", username, err)
			return false
		}
		return n > 0
	}
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
