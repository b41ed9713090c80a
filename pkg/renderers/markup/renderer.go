package markup

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formset/pkg/formset"
	"github.com/goliatone/go-formset/pkg/model"
	"github.com/goliatone/go-formset/pkg/naming"
	"github.com/goliatone/go-formset/pkg/render"
	rendertemplate "github.com/goliatone/go-formset/pkg/render/template"
	gotemplate "github.com/goliatone/go-formset/pkg/render/template/gotemplate"
)

const (
	PageName  = "page"
	EntryName = "entry"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	contract         formset.Contract
	helpPolicy       *bluemonday.Policy
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS. The bundle
// must provide page.tmpl and entry.tmpl.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithContract sets the class names, ids and title format the markup uses.
// Pages rendered with a contract are accepted by a formset.Controller built
// with the same contract.
func WithContract(contract formset.Contract) Option {
	return func(cfg *config) {
		cfg.contract = contract
	}
}

// WithHelpPolicy replaces the sanitiser applied to field help text.
func WithHelpPolicy(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.helpPolicy = policy
		}
	}
}

// Renderer renders formsets through the embedded pongo2 templates. A page
// renderer emits the whole form; an entry renderer emits one blank entry at
// index 0, the markup formset.TemplateFromHTML expects.
type Renderer struct {
	name       string
	templates  rendertemplate.TemplateRenderer
	contract   formset.Contract
	helpPolicy *bluemonday.Policy
}

var _ render.Renderer = (*Renderer)(nil)

// NewPage constructs the page renderer.
func NewPage(options ...Option) (*Renderer, error) {
	return newRenderer(PageName, options)
}

// NewEntry constructs the entry renderer.
func NewEntry(options ...Option) (*Renderer, error) {
	return newRenderer(EntryName, options)
}

func newRenderer(name string, options []Option) (*Renderer, error) {
	cfg := config{
		templateFS: TemplatesFS(),
		contract:   formset.DefaultContract(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if err := cfg.contract.Validate(); err != nil {
		return nil, fmt.Errorf("%s renderer: %w", name, err)
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.helpPolicy == nil {
		cfg.helpPolicy = helpSanitizer()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("%s renderer: configure template renderer: %w", name, err)
		}
		renderer = engine
	}

	return &Renderer{
		name:       name,
		templates:  renderer,
		contract:   cfg.contract,
		helpPolicy: cfg.helpPolicy,
	}, nil
}

func (r *Renderer) Name() string {
	return r.name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render produces the markup for form. The contract prefix applies when the
// formset does not name one.
func (r *Renderer) Render(ctx context.Context, form model.Formset, options render.Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.templates == nil {
		return nil, fmt.Errorf("%s renderer: template renderer is nil", r.name)
	}
	if strings.TrimSpace(form.Prefix) == "" {
		form.Prefix = r.contract.Prefix
	}

	if r.name == EntryName {
		form.Values = nil
		form.Errors = nil
		form = form.Normalize()
		out, err := r.renderEntry(form, 0, nil, themeView(options.Theme))
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}

	form = form.Normalize()
	errs := render.NormalizeErrorPayload(form, form.Errors)

	themed := themeView(options.Theme)
	entries := make([]string, len(form.Values))
	for i := range form.Values {
		out, err := r.renderEntry(form, i, errs, themed)
		if err != nil {
			return nil, err
		}
		entries[i] = out
	}

	hidden := render.ManagementFields(form)
	if strings.TrimSpace(r.contract.TotalFormsID) != "" {
		total := naming.Management(form.Prefix, naming.TotalForms)
		for i := range hidden {
			if hidden[i].Name == total {
				hidden[i].ID = r.contract.CounterID()
			}
		}
	}
	hidden = append(hidden, render.SortedHiddenFields(options.Hidden)...)
	method := strings.ToLower(strings.TrimSpace(options.Method))
	if method == "" {
		method = "post"
	}

	result, err := r.templates.RenderTemplate(PageName, map[string]any{
		"title":       form.Title,
		"fragment":    options.Fragment,
		"method":      method,
		"action":      options.Action,
		"hidden":      hiddenView(hidden),
		"form_errors": errs[render.FormLevelKey],
		"entries":     entries,
		"add_label":   form.AddLabel,
		"contract":    r.contractView(),
		"theme":       themed,
	})
	if err != nil {
		return nil, fmt.Errorf("%s renderer: render template: %w", r.name, err)
	}
	return []byte(result), nil
}

func (r *Renderer) renderEntry(form model.Formset, index int, errs map[string][]string, themed map[string]any) (string, error) {
	control, _ := themed["control_class"].(string)
	out, err := r.templates.RenderTemplate(EntryName, map[string]any{
		"entry":    r.entryView(form, index, errs, control),
		"contract": r.contractView(),
		"theme":    themed,
	})
	if err != nil {
		return "", fmt.Errorf("%s renderer: render entry %d: %w", r.name, index, err)
	}
	return strings.TrimSpace(out), nil
}
