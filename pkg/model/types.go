package model

import (
	"strings"

	"github.com/goliatone/go-formset/pkg/naming"
)

// Widget is the control used to render a field.
type Widget string

const (
	WidgetText     Widget = "text"
	WidgetNumber   Widget = "number"
	WidgetSelect   Widget = "select"
	WidgetCheckbox Widget = "checkbox"
	WidgetHidden   Widget = "hidden"
)

// Option is one choice of a select field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Field describes one control repeated in every entry.
type Field struct {
	Name        string            `json:"name" yaml:"name"`
	Label       string            `json:"label,omitempty" yaml:"label,omitempty"`
	Widget      Widget            `json:"widget,omitempty" yaml:"widget,omitempty"`
	Placeholder string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Help        string            `json:"help,omitempty" yaml:"help,omitempty"`
	Default     string            `json:"default,omitempty" yaml:"default,omitempty"`
	Required    bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Options     []Option          `json:"options,omitempty" yaml:"options,omitempty"`
	Attrs       map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// Limits mirrors the management form sent next to TOTAL_FORMS.
type Limits struct {
	Initial int `json:"initial" yaml:"initial"`
	Min     int `json:"min" yaml:"min"`
	Max     int `json:"max" yaml:"max"`
}

// DefaultMaxForms matches the ceiling server-side formsets apply by default.
const DefaultMaxForms = 1000

// Formset is the input of the HTML renderers.
type Formset struct {
	Prefix   string  `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Title    string  `json:"title,omitempty" yaml:"title,omitempty"`
	AddLabel string  `json:"addLabel,omitempty" yaml:"addLabel,omitempty"`
	Fields   []Field `json:"fields" yaml:"fields"`
	// Values holds one map per entry, keyed by bare field name.
	Values []map[string]string `json:"values,omitempty" yaml:"values,omitempty"`
	// Errors is keyed by submitted name ("form-1-name", "form-1", "__all__").
	Errors map[string][]string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Limits Limits              `json:"limits" yaml:"limits"`
}

// Normalize fills defaults: prefix, widgets, labels, one blank entry when
// none is given, and the MAX_NUM_FORMS ceiling.
func (f Formset) Normalize() Formset {
	out := f
	if strings.TrimSpace(out.Prefix) == "" {
		out.Prefix = naming.DefaultPrefix
	}
	if out.AddLabel == "" {
		out.AddLabel = "Add exercise"
	}
	out.Fields = make([]Field, len(f.Fields))
	for i, field := range f.Fields {
		if field.Widget == "" {
			field.Widget = WidgetText
			if len(field.Options) > 0 {
				field.Widget = WidgetSelect
			}
		}
		if field.Label == "" {
			field.Label = DefaultLabeler(field.Name)
		}
		if len(field.Options) > 0 {
			opts := make([]Option, len(field.Options))
			for j, option := range field.Options {
				if option.Label == "" {
					option.Label = option.Value
				}
				opts[j] = option
			}
			field.Options = opts
		}
		out.Fields[i] = field
	}
	if len(out.Values) == 0 {
		out.Values = []map[string]string{{}}
	}
	if out.Limits.Max <= 0 {
		out.Limits.Max = DefaultMaxForms
	}
	return out
}

// Value returns the initial value of field for entry index, falling back
// to the field default.
func (f Formset) Value(index int, field Field) string {
	if index >= 0 && index < len(f.Values) {
		if value, ok := f.Values[index][field.Name]; ok {
			return value
		}
	}
	return field.Default
}
