package gotemplate

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-formset/pkg/render/template"
)

const defaultExtension = ".tmpl"

// Option configures the pongo2 engine before construction.
type Option func(*config)

type config struct {
	templates fs.FS
	extension string
}

// WithFS loads templates from files.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithExtension overrides the template extension appended to names
// (".tmpl" by default).
func WithExtension(ext string) Option {
	return func(cfg *config) {
		trimmed := strings.TrimSpace(ext)
		if trimmed == "" {
			return
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		cfg.extension = trimmed
	}
}

// Engine renders templates of one pongo2 set. Parsed templates are cached
// by the set, so an Engine is safe for concurrent use.
type Engine struct {
	set       *pongo2.TemplateSet
	extension string
}

var _ template.TemplateRenderer = (*Engine)(nil)

// New constructs an Engine. A template source is required.
func New(options ...Option) (*Engine, error) {
	cfg := config{extension: defaultExtension}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.templates == nil {
		return nil, errors.New("gotemplate: template fs is required")
	}
	return &Engine{
		set:       pongo2.NewSet("formset", pongo2.NewFSLoader(cfg.templates)),
		extension: cfg.extension,
	}, nil
}

// RenderTemplate executes name with data as its context. Output is
// autoescaped; values meant as markup go through the safe filter.
func (e *Engine) RenderTemplate(name string, data map[string]any) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("gotemplate: engine is nil")
	}
	path := name
	if !strings.HasSuffix(path, e.extension) {
		path += e.extension
	}
	tmpl, err := e.set.FromCache(path)
	if err != nil {
		return "", fmt.Errorf("gotemplate: load template %q: %w", path, err)
	}
	out, err := tmpl.Execute(pongo2.Context(data))
	if err != nil {
		return "", fmt.Errorf("gotemplate: execute template %q: %w", path, err)
	}
	return out, nil
}
