package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"slices"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formset/pkg/formset"
	"github.com/goliatone/go-formset/pkg/model"
	"github.com/goliatone/go-formset/pkg/render"
	"github.com/goliatone/go-formset/pkg/renderers/markup"
	"github.com/goliatone/go-formset/pkg/schema"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithLoader injects the loader used for OpenAPI sources.
func WithLoader(loader *schema.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = loader
	}
}

// WithRegistry injects a renderer registry. The markup renderers are only
// registered when no registry is supplied.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithContract sets the markup contract of the default renderers and the
// prefix given to OpenAPI definitions.
func WithContract(contract formset.Contract) Option {
	return func(o *Orchestrator) {
		o.contract = contract
	}
}

// WithTransformers registers transformers run in order after loading.
func WithTransformers(transformers ...Transformer) Option {
	return func(o *Orchestrator) {
		o.transformers = append(o.transformers, transformers...)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator coordinates the path from a field definition to rendered
// markup.
type Orchestrator struct {
	loader          *schema.Loader
	registry        *render.Registry
	defaultRenderer string
	contract        formset.Contract
	transformers    []Transformer
	themes          theme.ThemeSelector
	themeName       string
	themeVariant    string
	logger          *slog.Logger
}

// New constructs an Orchestrator. Without a registry the page and entry
// markup renderers are registered using the configured contract.
func New(options ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		defaultRenderer: markup.PageName,
		contract:        formset.DefaultContract(),
		logger:          slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(o)
		}
	}
	if o.loader == nil {
		o.loader = schema.NewLoader()
	}
	if o.registry == nil {
		page, err := markup.NewPage(markup.WithContract(o.contract))
		if err != nil {
			return nil, fmt.Errorf("orchestrator: page renderer: %w", err)
		}
		entry, err := markup.NewEntry(markup.WithContract(o.contract))
		if err != nil {
			return nil, fmt.Errorf("orchestrator: entry renderer: %w", err)
		}
		if o.registry, err = render.NewRegistry(page, entry); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Request describes where the fields come from and how to render them.
// Exactly one of Formset, Definition or OpenAPI is used, in that order.
type Request struct {
	// Formset bypasses loading.
	Formset *model.Formset

	// Definition is a YAML or JSON formset definition read from Files.
	Files      fs.FS
	Definition string

	// OpenAPI names a document holding Component.
	OpenAPI   *schema.Source
	Component string

	// MinEntries pads Values with blank entries.
	MinEntries int

	Renderer      string
	RenderOptions render.Options

	// ThemeName and ThemeVariant override the WithTheme defaults. They are
	// ignored without a theme selector or when RenderOptions.Theme is set.
	ThemeName    string
	ThemeVariant string
}

// Generate loads the formset, runs the transformers and renders it.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	form, err := o.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	name := req.Renderer
	if name == "" {
		name = o.defaultRenderer
	}
	options := req.RenderOptions
	if options.Theme == nil && o.themes != nil {
		if options.Theme, err = o.resolveTheme(req); err != nil {
			return nil, err
		}
	}
	out, err := o.registry.Render(ctx, name, form, options)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	o.logger.Debug("formset rendered", "renderer", name, "fields", len(form.Fields), "entries", len(form.Values))
	return out, nil
}

// Resolve returns the transformed formset a request describes.
func (o *Orchestrator) Resolve(ctx context.Context, req Request) (model.Formset, error) {
	form, err := o.load(ctx, req)
	if err != nil {
		return model.Formset{}, err
	}
	for _, t := range o.transformers {
		if t == nil {
			continue
		}
		if err := t.Transform(ctx, &form); err != nil {
			return model.Formset{}, fmt.Errorf("orchestrator: transform formset: %w", err)
		}
	}
	for len(form.Values) < req.MinEntries {
		form.Values = append(form.Values, map[string]string{})
	}
	return form, nil
}

func (o *Orchestrator) load(ctx context.Context, req Request) (model.Formset, error) {
	switch {
	case req.Formset != nil:
		form := *req.Formset
		form.Fields = slices.Clone(req.Formset.Fields)
		form.Values = make([]map[string]string, len(req.Formset.Values))
		for i, values := range req.Formset.Values {
			form.Values[i] = maps.Clone(values)
		}
		return form, nil
	case strings.TrimSpace(req.Definition) != "":
		if req.Files == nil {
			return model.Formset{}, errors.New("orchestrator: definition requires a filesystem")
		}
		return schema.LoadFormset(req.Files, req.Definition)
	case req.OpenAPI != nil:
		fields, err := schema.LoadOpenAPI(ctx, o.loader, *req.OpenAPI, req.Component)
		if err != nil {
			return model.Formset{}, err
		}
		return model.Formset{Prefix: o.contract.Prefix, Fields: fields}, nil
	default:
		return model.Formset{}, errors.New("orchestrator: formset, definition or openapi source is required")
	}
}
