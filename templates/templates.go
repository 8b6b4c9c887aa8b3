// Package templates holds the server rendered pages and the gin renderer for them.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"

	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

//go:embed html
var files embed.FS

// Renderer renders a page template inside the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// Instance implements render.HTMLRender.
func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		panic(fmt.Sprintf("template %q is not registered", name))
	}
	return render.HTML{Template: t, Name: "base", Data: data}
}

// Has reports whether a page is registered.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// New parses the layout, includes and every page. mediaURL resolves stored image keys.
func New(mediaURL func(key string) string) (*Renderer, error) {
	funcs := Funcs(mediaURL)
	shared, err := template.New("base").Funcs(funcs).ParseFS(files, "html/layout/*.html", "html/includes/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &Renderer{pages: map[string]*template.Template{}}
	err = fs.WalkDir(files, "html", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".html") {
			return err
		}
		name := strings.TrimPrefix(p, "html/")
		if dir := path.Dir(name); dir == "layout" || dir == "includes" {
			return nil
		}
		t, err := shared.Clone()
		if err != nil {
			return err
		}
		if _, err := t.ParseFS(files, p); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Funcs are the helpers available to every template.
func Funcs(mediaURL func(string) string) template.FuncMap {
	if mediaURL == nil {
		mediaURL = func(key string) string { return key }
	}
	return template.FuncMap{
		"media": mediaURL,
		"linebreaksbr": func(s string) template.HTML {
			escaped := template.HTMLEscapeString(s)
			escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
			return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
		},
		"truncatewords": truncateWords,
		"date": func(t time.Time) string {
			return t.Format("02 Jan 2006")
		},
		"datetime": func(t time.Time) string {
			return t.Format("02 Jan 2006 15:04")
		},
		"sanitize": utils.Sanitize,
		"plain":    utils.StripTags,
		"pageURL": func(n int) string {
			return fmt.Sprintf("?page=%d", n)
		},
		"hasGroup": func(id *uint, gid uint) bool {
			return id != nil && *id == gid
		},
	}
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + " …"
}
