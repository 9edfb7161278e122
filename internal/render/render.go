package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

const layoutFile = "layout.html"

// Renderer turns a named view and its model into a response body.
type Renderer interface {
	Render(name string, model any) ([]byte, error)
}

// TemplateRenderer renders html/template views that share one layout.
type TemplateRenderer struct {
	views map[string]*template.Template
}

// NewTemplateRenderer parses the embedded templates.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	return NewTemplateRendererFS(templatesFS, "templates")
}

// NewTemplateRendererFS parses every *.html in dir of fsys except the layout
// into its own view named after the file without extension.
func NewTemplateRendererFS(fsys fs.FS, dir string) (*TemplateRenderer, error) {
	layout, err := template.New(layoutFile).Funcs(funcs).ParseFS(fsys, path.Join(dir, layoutFile))
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(fsys, path.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}

	views := make(map[string]*template.Template, len(files))
	for _, file := range files {
		base := path.Base(file)
		if base == layoutFile {
			continue
		}
		clone, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		view, err := clone.ParseFS(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		views[strings.TrimSuffix(base, ".html")] = view
	}
	return &TemplateRenderer{views: views}, nil
}

func (r *TemplateRenderer) Render(name string, model any) ([]byte, error) {
	view, ok := r.views[name]
	if !ok {
		return nil, fmt.Errorf("unknown view %q", name)
	}
	var buf bytes.Buffer
	if err := view.ExecuteTemplate(&buf, layoutFile, model); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2 Jan 2006 15:04")
	},
}
