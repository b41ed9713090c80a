package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formset/pkg/model"
)

// LoadFormset reads a YAML or JSON formset definition. The document is
// either a full model.Formset mapping or a bare list of fields.
func LoadFormset(fsys fs.FS, path string) (model.Formset, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return model.Formset{}, fmt.Errorf("schema: read %s: %w", path, err)
	}
	form, err := ParseFormset(data)
	if err != nil {
		return model.Formset{}, fmt.Errorf("schema: %s: %w", path, err)
	}
	return form, nil
}

// LoadFields reads the field list of a YAML or JSON definition.
func LoadFields(fsys fs.FS, path string) ([]model.Field, error) {
	form, err := LoadFormset(fsys, path)
	if err != nil {
		return nil, err
	}
	return form.Fields, nil
}

// ParseFormset decodes a formset definition. JSON parses as YAML.
func ParseFormset(data []byte) (model.Formset, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return model.Formset{}, errors.New("definition is empty")
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return model.Formset{}, fmt.Errorf("decode definition: %w", err)
	}
	doc := &root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}

	var form model.Formset
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&form.Fields); err != nil {
			return model.Formset{}, fmt.Errorf("decode fields: %w", err)
		}
	case yaml.MappingNode:
		if err := doc.Decode(&form); err != nil {
			return model.Formset{}, fmt.Errorf("decode formset: %w", err)
		}
	default:
		return model.Formset{}, errors.New("definition must be a mapping or a list of fields")
	}

	if err := validateFields(form.Fields); err != nil {
		return model.Formset{}, err
	}
	return form, nil
}

var knownWidgets = map[model.Widget]struct{}{
	"":                   {},
	model.WidgetText:     {},
	model.WidgetNumber:   {},
	model.WidgetSelect:   {},
	model.WidgetCheckbox: {},
	model.WidgetHidden:   {},
}

func validateFields(fields []model.Field) error {
	if len(fields) == 0 {
		return errors.New("definition has no fields")
	}
	var errs []error
	seen := make(map[string]bool, len(fields))
	for i, field := range fields {
		name := strings.TrimSpace(field.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("field %d: name is required", i))
		case strings.ContainsAny(name, " \t\n"):
			errs = append(errs, fmt.Errorf("field %q: name must not contain spaces", name))
		case seen[name]:
			errs = append(errs, fmt.Errorf("field %q: duplicate name", name))
		}
		seen[name] = true
		if _, ok := knownWidgets[field.Widget]; !ok {
			errs = append(errs, fmt.Errorf("field %q: unknown widget %q", name, field.Widget))
		}
		if field.Widget == model.WidgetSelect && len(field.Options) == 0 {
			errs = append(errs, fmt.Errorf("field %q: select needs options", name))
		}
	}
	return errors.Join(errs...)
}
