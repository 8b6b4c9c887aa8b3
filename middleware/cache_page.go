package middleware

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CachePage serves successful GET responses from cache for ttl.
// Entries are keyed by viewer and full request URI and are never invalidated by writes.
func CachePage(cache utils.PageCache, prefix string, ttl time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet || ttl <= 0 {
			ctx.Next()
			return
		}

		key := prefix + ":" + strconv.FormatUint(uint64(CurrentUserID(ctx)), 10) + ":" + ctx.Request.URL.RequestURI()
		if body, ok := cache.Get(ctx.Request.Context(), key); ok {
			PageCacheLookups.WithLabelValues("hit").Inc()
			ctx.Data(http.StatusOK, "text/html; charset=utf-8", body)
			ctx.Abort()
			return
		}
		PageCacheLookups.WithLabelValues("miss").Inc()

		w := &capturingWriter{ResponseWriter: ctx.Writer}
		ctx.Writer = w
		ctx.Next()

		if w.Status() == http.StatusOK && len(ctx.Errors) == 0 {
			cache.Set(ctx.Request.Context(), key, w.body.Bytes(), ttl)
		}
	}
}
