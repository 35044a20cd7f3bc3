// Package templates handles HTML template rendering for pages and Datastar SSE fragments.
package templates

import (
	"bytes"
	"encoding/json"
	"html/template"
	"io/fs"
	"sync"
)

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	// json renders v as a JSON attribute value (e.g. for data-signals)
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// Renderer manages HTML templates parsed from a filesystem.
type Renderer struct {
	fsys      fs.FS
	patterns  []string
	templates *template.Template
	mu        sync.RWMutex
}

// New parses every template matching patterns in fsys,
// e.g. New(web.FS, "templates/*.html", "templates/fragments/*.html").
func New(fsys fs.FS, patterns ...string) (*Renderer, error) {
	tmpl, err := parse(fsys, patterns)
	if err != nil {
		return nil, err
	}
	return &Renderer{fsys: fsys, patterns: patterns, templates: tmpl}, nil
}

func parse(fsys fs.FS, patterns []string) (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(fsys, patterns...)
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

// Reload re-parses templates from the filesystem (useful for dev hot-reload with os.DirFS).
func (r *Renderer) Reload() error {
	tmpl, err := parse(r.fsys, r.patterns)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
