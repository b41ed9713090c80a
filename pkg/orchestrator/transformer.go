package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formset/pkg/model"
)

// Transformer mutates a formset after it is loaded and before it is
// rendered.
type Transformer interface {
	Transform(ctx context.Context, form *model.Formset) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, form *model.Formset) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, form *model.Formset) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, form)
}

// PresetTransformer applies declarative overrides from a YAML or JSON
// document:
//
//	title: Lower body
//	addLabel: Add set
//	fields:
//	  name: {label: Movement, placeholder: "e.g. Squat"}
//	  notes: {widget: hidden}
type PresetTransformer struct {
	document presetDocument
}

type presetDocument struct {
	Title    string                `yaml:"title"`
	AddLabel string                `yaml:"addLabel"`
	Fields   map[string]fieldPatch `yaml:"fields"`
}

type fieldPatch struct {
	Label       string            `yaml:"label"`
	Help        string            `yaml:"help"`
	Placeholder string            `yaml:"placeholder"`
	Default     *string           `yaml:"default"`
	Widget      model.Widget      `yaml:"widget"`
	Required    *bool             `yaml:"required"`
	Attrs       map[string]string `yaml:"attrs"`
	Rename      string            `yaml:"rename"`
}

// NewPresetTransformer parses a preset document. JSON is accepted since it
// is valid YAML.
func NewPresetTransformer(data []byte) (*PresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("preset transformer: document is empty")
	}
	var document presetDocument
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("preset transformer: parse document: %w", err)
	}
	return &PresetTransformer{document: document}, nil
}

// NewPresetTransformerFromFS loads a preset document from fsys.
func NewPresetTransformerFromFS(fsys fs.FS, path string) (*PresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("preset transformer: read %s: %w", path, err)
	}
	return NewPresetTransformer(data)
}

// Transform applies the patches. A patch naming an unknown field is an
// error.
func (t *PresetTransformer) Transform(ctx context.Context, form *model.Formset) error {
	if form == nil {
		return errors.New("preset transformer: formset is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.document.Title != "" {
		form.Title = t.document.Title
	}
	if t.document.AddLabel != "" {
		form.AddLabel = t.document.AddLabel
	}
	names := make([]string, 0, len(t.document.Fields))
	for name := range t.document.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		patch := t.document.Fields[name]
		field := findField(form.Fields, name)
		if field == nil {
			return fmt.Errorf("preset transformer: field %q not found", name)
		}
		if err := applyFieldPatch(form, field, patch); err != nil {
			return err
		}
	}
	return nil
}

func applyFieldPatch(form *model.Formset, field *model.Field, patch fieldPatch) error {
	if patch.Label != "" {
		field.Label = patch.Label
	}
	if patch.Help != "" {
		field.Help = patch.Help
	}
	if patch.Placeholder != "" {
		field.Placeholder = patch.Placeholder
	}
	if patch.Default != nil {
		field.Default = *patch.Default
	}
	if patch.Widget != "" {
		field.Widget = patch.Widget
	}
	if patch.Required != nil {
		field.Required = *patch.Required
	}
	if len(patch.Attrs) > 0 {
		attrs := make(map[string]string, len(field.Attrs)+len(patch.Attrs))
		maps.Copy(attrs, field.Attrs)
		maps.Copy(attrs, patch.Attrs)
		field.Attrs = attrs
	}
	rename := strings.TrimSpace(patch.Rename)
	if rename == "" || rename == field.Name {
		return nil
	}
	if findField(form.Fields, rename) != nil {
		return fmt.Errorf("preset transformer: rename %q: field exists", rename)
	}
	old := field.Name
	field.Name = rename
	for _, values := range form.Values {
		if v, ok := values[old]; ok {
			values[rename] = v
			delete(values, old)
		}
	}
	return nil
}

func findField(fields []model.Field, name string) *model.Field {
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i]
		}
	}
	return nil
}
