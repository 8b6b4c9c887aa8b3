package routes

import (
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Morgoth-Ryuk/hw05-final/config"
)

func readAccessLog(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(config.Get().GinPath)
	if err != nil {
		t.Fatalf("read access log: %v", err)
	}
	return string(b)
}

func TestAccessLogRecordsRequests(t *testing.T) {
	app := newTestApp(t)

	if w := app.get("/about/author/?ref=nav", nil); w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}

	log := readAccessLog(t)
	for _, want := range []string{`"path":"/about/author/"`, `"query":"ref=nav"`, `"status":200`, `"method":"GET"`} {
		if !strings.Contains(log, want) {
			t.Errorf("access log lacks %s:\n%s", want, log)
		}
	}
}

func TestPanicIsRecoveredAndLogged(t *testing.T) {
	app := newTestApp(t)
	app.router.GET("/explode/", func(*gin.Context) { panic("handler exploded") })

	w := app.get("/explode/", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("panic should answer 500, got %d", w.Code)
	}

	log := readAccessLog(t)
	if !strings.Contains(log, "handler exploded") {
		t.Errorf("panic value missing from log:\n%s", log)
	}
	if !strings.Contains(log, `"status":500`) {
		t.Errorf("failed request missing from access log:\n%s", log)
	}
}
