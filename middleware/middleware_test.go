package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Morgoth-Ryuk/hw05-final/config"
	"github.com/Morgoth-Ryuk/hw05-final/models"
	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func asUser(id uint, username string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(ContextUserKey, &models.User{ID: id, Username: username})
		ctx.Set(ContextUserIDKey, id)
		ctx.Next()
	}
}

func TestLoginRedirectURL(t *testing.T) {
	cases := map[string]string{
		"/create/":             "/auth/login/?next=/create/",
		"/posts/1/edit/":       "/auth/login/?next=/posts/1/edit/",
		"/follow/?page=2":      "/auth/login/?next=/follow/%3Fpage%3D2",
		"/profile/leo/follow/": "/auth/login/?next=/profile/leo/follow/",
	}
	for next, want := range cases {
		if got := LoginRedirectURL(next); got != want {
			t.Errorf("LoginRedirectURL(%q) = %q, want %q", next, got, want)
		}
	}
}

func TestLoginRequired(t *testing.T) {
	r := gin.New()
	r.GET("/create/", LoginRequired(), func(ctx *gin.Context) { ctx.String(http.StatusOK, "form") })
	authed := gin.New()
	authed.GET("/create/", asUser(1, "leo"), LoginRequired(), func(ctx *gin.Context) { ctx.String(http.StatusOK, "form") })

	w := serve(r, http.MethodGet, "/create/")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/auth/login/?next=/create/" {
		t.Fatalf("anonymous: got %d %q", w.Code, w.Header().Get("Location"))
	}
	w = serve(authed, http.MethodGet, "/create/")
	if w.Code != http.StatusOK || w.Body.String() != "form" {
		t.Fatalf("authenticated: got %d %q", w.Code, w.Body.String())
	}
}

func TestAdminRequired(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "x", AdminUsernames: []string{"Root"}})
	notFound := func(ctx *gin.Context) { ctx.String(http.StatusNotFound, "nope") }
	ok := func(ctx *gin.Context) { ctx.String(http.StatusOK, "admin") }

	for _, tc := range []struct {
		name string
		user gin.HandlerFunc
		want int
	}{
		{"admin", asUser(1, "root"), http.StatusOK},
		{"regular", asUser(2, "leo"), http.StatusNotFound},
		{"anonymous", func(ctx *gin.Context) { ctx.Next() }, http.StatusNotFound},
	} {
		r := gin.New()
		r.GET("/admin/", tc.user, AdminRequired(notFound), ok)
		if w := serve(r, http.MethodGet, "/admin/"); w.Code != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}

func TestCachePageServesStaleCopy(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := utils.NewMemoryPageCache(func() time.Time { return now })
	calls := 0
	handler := func(ctx *gin.Context) {
		calls++
		ctx.String(http.StatusOK, "render %d", calls)
	}

	r := gin.New()
	r.GET("/", CachePage(cache, "index", 20*time.Second), handler)

	first := serve(r, http.MethodGet, "/")
	second := serve(r, http.MethodGet, "/")
	if first.Body.String() != "render 1" || second.Body.String() != "render 1" || calls != 1 {
		t.Fatalf("expected cached copy, got %q and %q after %d renders", first.Body.String(), second.Body.String(), calls)
	}

	if w := serve(r, http.MethodGet, "/?page=2"); w.Body.String() != "render 2" {
		t.Errorf("different query must not share a cache entry, got %q", w.Body.String())
	}

	now = now.Add(20 * time.Second)
	if w := serve(r, http.MethodGet, "/"); w.Body.String() != "render 3" {
		t.Errorf("expired entry served, got %q", w.Body.String())
	}
}

func TestCachePageSeparatesViewers(t *testing.T) {
	cache := utils.NewMemoryPageCache(nil)
	var viewer uint
	r := gin.New()
	r.GET("/",
		func(ctx *gin.Context) {
			if viewer != 0 {
				ctx.Set(ContextUserIDKey, viewer)
			}
			ctx.Next()
		},
		CachePage(cache, "index", time.Minute),
		func(ctx *gin.Context) { ctx.String(http.StatusOK, "viewer %d", CurrentUserID(ctx)) },
	)

	serve(r, http.MethodGet, "/")
	viewer = 7
	if w := serve(r, http.MethodGet, "/"); w.Body.String() != "viewer 7" {
		t.Errorf("logged in viewer got anonymous page: %q", w.Body.String())
	}
}

func TestCachePageSkipsErrors(t *testing.T) {
	cache := utils.NewMemoryPageCache(nil)
	calls := 0
	r := gin.New()
	r.GET("/", CachePage(cache, "index", time.Minute), func(ctx *gin.Context) {
		calls++
		ctx.String(http.StatusInternalServerError, "boom")
	})

	serve(r, http.MethodGet, "/")
	serve(r, http.MethodGet, "/")
	if calls != 2 {
		t.Errorf("error responses must not be cached, handler ran %d times", calls)
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/api", RateLimit(2), func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })

	if w := serve(r, http.MethodGet, "/api"); w.Code != http.StatusNoContent {
		t.Fatalf("first request limited: %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/api"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("burst not enforced: %d", w.Code)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	l := newIPLimiter(2)
	if !l.allow("10.0.0.1") || l.allow("10.0.0.1") {
		t.Fatalf("unexpected allowance for first ip")
	}
	if !l.allow("10.0.0.2") {
		t.Errorf("second ip shares the first one's bucket")
	}
}

func TestBearerAuthRequiredRejects(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "bearer-secret"})
	utils.UseRedis(nil)
	r := gin.New()
	r.GET("/me", BearerAuthRequired(nil), func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	for header, code := range map[string]int{
		"":              40101,
		"Token abc":     40102,
		"Bearer ":       40103,
		"Bearer broken": 40105,
	} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%q: got status %d", header, w.Code)
		}
		if want := strconv.Itoa(code); !strings.Contains(w.Body.String(), want) {
			t.Errorf("%q: body %s lacks code %s", header, w.Body.String(), want)
		}
	}
}

