package routes

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Morgoth-Ryuk/hw05-final/config"
	"github.com/Morgoth-Ryuk/hw05-final/events"
	"github.com/Morgoth-Ryuk/hw05-final/models"
	"github.com/Morgoth-Ryuk/hw05-final/storage"
	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

// smallGIF is a 2x1 pixel GIF.
var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testApp struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	cache  *utils.MemoryPageCache
	clock  *fakeClock
	events *events.Recorder
	images *storage.Local
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()
	config.Set(config.AppConfig{
		JWTSecret:          "test-secret",
		GinMode:            "test",
		GinPath:            filepath.Join(dir, "gin.log"),
		DBDriver:           "sqlite",
		UploadDir:          filepath.Join(dir, "media"),
		CacheBackend:       "memory",
		RateLimitPerMinute: 10000,
		AdminUsernames:     []string{"admin"},
	})
	utils.UseRedis(nil)

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.sqlite3")+"?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	images, err := storage.NewLocal(config.Get().UploadDir, config.Get().MediaURL)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	clock := &fakeClock{now: time.Now()}
	cache := utils.NewMemoryPageCache(clock.Now)
	rec := &events.Recorder{}

	r, err := SetupRouter(Deps{DB: db, Cache: cache, Images: images, Events: rec})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return &testApp{t: t, router: r, db: db, cache: cache, clock: clock, events: rec, images: images}
}

func (a *testApp) createUser(username string) *models.User {
	a.t.Helper()
	hash, err := utils.HashPassword("secret-pass-1")
	if err != nil {
		a.t.Fatalf("hash: %v", err)
	}
	u := &models.User{Username: username, PasswordHash: hash}
	if err := a.db.Create(u).Error; err != nil {
		a.t.Fatalf("create user: %v", err)
	}
	return u
}

func (a *testApp) createGroup(title, slug string) *models.Group {
	a.t.Helper()
	g := &models.Group{Title: title, Slug: slug, Description: "Description of " + title}
	if err := a.db.Create(g).Error; err != nil {
		a.t.Fatalf("create group: %v", err)
	}
	return g
}

func (a *testApp) createPost(author *models.User, group *models.Group, text string) *models.Post {
	a.t.Helper()
	p := &models.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	if err := a.db.Create(p).Error; err != nil {
		a.t.Fatalf("create post: %v", err)
	}
	return p
}

func (a *testApp) do(req *http.Request, as *models.User) *httptest.ResponseRecorder {
	a.t.Helper()
	if as != nil {
		token, _, err := utils.GenerateToken(as.ID, as.Username, time.Hour)
		if err != nil {
			a.t.Fatalf("token: %v", err)
		}
		req.AddCookie(&http.Cookie{Name: config.Get().SessionCookieName, Value: token})
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(path string, as *models.User) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), as)
}

func (a *testApp) postForm(path string, form url.Values, as *models.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, as)
}

func (a *testApp) postMultipart(path string, fields map[string]string, fileName string, file []byte, as *models.User) *httptest.ResponseRecorder {
	a.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			a.t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("image", fileName)
		if err != nil {
			a.t.Fatalf("create file: %v", err)
		}
		if _, err := fw.Write(file); err != nil {
			a.t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		a.t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req, as)
}

func countPosts(body string) int {
	return strings.Count(body, `<article class="post">`)
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}
