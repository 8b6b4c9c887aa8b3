package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Morgoth-Ryuk/hw05-final/config"
	"github.com/Morgoth-Ryuk/hw05-final/controllers"
	"github.com/Morgoth-Ryuk/hw05-final/events"
	"github.com/Morgoth-Ryuk/hw05-final/middleware"
	"github.com/Morgoth-Ryuk/hw05-final/storage"
	"github.com/Morgoth-Ryuk/hw05-final/templates"
	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	DB     *gorm.DB
	Cache  utils.PageCache
	Images storage.ImageStore
	Events events.Publisher
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) (*gin.Engine, error) {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Cache == nil {
		deps.Cache = utils.NewMemoryPageCache(nil)
	}
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}

	r := gin.New()
	// Access log goes to its own rolling file; the app logger is the fallback.
	if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(gl, true))
	} else {
		utils.Sugar.Warnf("access log disabled: %v", err)
		r.Use(ginzap.RecoveryWithZap(utils.Logger, true))
	}
	r.Use(middleware.Metrics())

	renderer, err := templates.New(deps.Images.URL)
	if err != nil {
		return nil, err
	}
	r.HTMLRender = renderer

	if local, ok := deps.Images.(*storage.Local); ok {
		r.Static(strings.TrimRight(cfg.MediaURL, "/"), local.Root())
	}
	r.GET("/metrics", middleware.MetricsHandler())
	r.GET("/health", controllers.Health(func() error {
		sqlDB, err := deps.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	}))

	posts := controllers.NewPostController(deps.DB, deps.Images, deps.Events)
	follows := controllers.NewFollowController(deps.DB, deps.Events)
	auth := controllers.NewAuthController(deps.DB)
	groups := controllers.NewGroupController(deps.DB)
	api := controllers.NewAPIController(deps.DB, deps.Images)

	site := r.Group("/")
	site.Use(middleware.SessionAuth(deps.DB))

	indexTTL := time.Duration(cfg.IndexCacheSeconds) * time.Second
	site.GET("/", middleware.CachePage(deps.Cache, "index", indexTTL), posts.Index)
	site.GET("/group/:slug/", posts.GroupPosts)
	site.GET("/profile/:username/", posts.Profile)
	site.GET("/posts/:post_id/", posts.PostDetail)

	login := middleware.LoginRequired()
	site.GET("/create/", login, posts.PostCreate)
	site.POST("/create/", login, posts.PostCreate)
	site.GET("/posts/:post_id/edit/", login, posts.PostEdit)
	site.POST("/posts/:post_id/edit/", login, posts.PostEdit)
	site.GET("/posts/:post_id/comment/", login, posts.AddComment)
	site.POST("/posts/:post_id/comment/", login, posts.AddComment)
	site.GET("/follow/", login, follows.FollowIndex)
	site.GET("/profile/:username/follow/", login, follows.ProfileFollow)
	site.POST("/profile/:username/follow/", login, follows.ProfileFollow)
	site.GET("/profile/:username/unfollow/", login, follows.ProfileUnfollow)
	site.POST("/profile/:username/unfollow/", login, follows.ProfileUnfollow)

	site.GET("/about/author/", controllers.StaticPage("about/author.html"))
	site.GET("/about/tech/", controllers.StaticPage("about/tech.html"))

	admin := site.Group("/admin", login, middleware.AdminRequired(controllers.NotFound))
	admin.GET("/groups/new/", groups.CreateGroup)
	admin.POST("/groups/new/", groups.CreateGroup)

	authGroup := site.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.GET("/signup/", auth.Signup)
	authGroup.POST("/signup/", auth.Signup)
	authGroup.GET("/login/", auth.Login)
	authGroup.POST("/login/", auth.Login)
	authGroup.GET("/logout/", auth.Logout)
	authGroup.POST("/logout/", auth.Logout)
	authGroup.GET("/oauth/:provider/login", auth.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", auth.OAuthCallback)

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	v1 := r.Group("/api/v1")
	v1.Use(cors.New(corsCfg), middleware.RateLimit(cfg.RateLimitPerMinute))
	v1.POST("/auth/token", auth.IssueToken)
	v1.GET("/posts", api.ListPosts)
	v1.GET("/posts/:post_id", api.GetPost)
	v1.GET("/groups/:slug/posts", api.GroupPosts)
	v1.GET("/profiles/:username/posts", api.ProfilePosts)
	v1.GET("/follow", middleware.BearerAuthRequired(deps.DB), api.FollowFeed)

	r.NoRoute(middleware.SessionAuth(deps.DB), func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		controllers.NotFound(ctx)
	})

	return r, nil
}
