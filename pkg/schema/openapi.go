package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formset/pkg/model"
)

const (
	// OrderExtension lists property names in display order.
	OrderExtension = "x-formset-order"
	// WidgetExtension overrides the widget of a property ("hidden").
	WidgetExtension = "x-formset-widget"
	// PlaceholderExtension sets the placeholder of a property.
	PlaceholderExtension = "x-formset-placeholder"
)

var (
	ErrComponentNotFound = errors.New("schema: component not found")
	ErrNoProperties      = errors.New("schema: component has no usable properties")
)

// FieldsFromOpenAPI loads an OpenAPI 3 document and derives one field per
// property of the named component schema. An empty component is accepted
// when the document declares exactly one schema.
//
// Strings become text inputs, integers and numbers number inputs, enums
// selects and booleans checkboxes. readOnly, object and array properties are
// skipped.
func FieldsFromOpenAPI(ctx context.Context, data []byte, component string) ([]model.Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("schema: openapi document is empty")
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("schema: load openapi document: %w", err)
	}

	target, err := lookupComponent(doc, component)
	if err != nil {
		return nil, err
	}

	required := make(map[string]bool, len(target.Required))
	for _, name := range target.Required {
		required[name] = true
	}

	var fields []model.Field
	for _, name := range propertyOrder(target, required) {
		ref := target.Properties[name]
		if ref == nil || ref.Value == nil || ref.Value.ReadOnly {
			continue
		}
		field, ok := fieldFromSchema(name, ref.Value)
		if !ok {
			continue
		}
		field.Required = required[name]
		fields = append(fields, field)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoProperties, component)
	}
	return fields, nil
}

// LoadOpenAPI reads src with loader and derives the fields of component.
func LoadOpenAPI(ctx context.Context, loader *Loader, src Source, component string) ([]model.Field, error) {
	data, err := loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", src.Location, err)
	}
	return FieldsFromOpenAPI(ctx, data, component)
}

func lookupComponent(doc *openapi3.T, component string) (*openapi3.Schema, error) {
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil, fmt.Errorf("%w: document declares no schemas", ErrComponentNotFound)
	}
	schemas := doc.Components.Schemas

	if strings.TrimSpace(component) == "" {
		if len(schemas) != 1 {
			return nil, fmt.Errorf("%w: name one of %s", ErrComponentNotFound, strings.Join(sortedKeys(schemas), ", "))
		}
		for _, ref := range schemas {
			if ref != nil && ref.Value != nil {
				return ref.Value, nil
			}
		}
	}

	ref, ok := schemas[component]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("%w: %q", ErrComponentNotFound, component)
	}
	return ref.Value, nil
}

// propertyOrder returns the names listed in x-formset-order first, then the
// remaining required properties and finally the optional ones, each group
// alphabetical.
func propertyOrder(target *openapi3.Schema, required map[string]bool) []string {
	seen := make(map[string]bool, len(target.Properties))
	var ordered []string

	if raw, ok := target.Extensions[OrderExtension].([]any); ok {
		for _, item := range raw {
			name, ok := item.(string)
			if !ok || seen[name] {
				continue
			}
			if _, exists := target.Properties[name]; !exists {
				continue
			}
			seen[name] = true
			ordered = append(ordered, name)
		}
	}

	rest := make([]string, 0, len(target.Properties))
	for name := range target.Properties {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		if required[rest[i]] != required[rest[j]] {
			return required[rest[i]]
		}
		return rest[i] < rest[j]
	})
	return append(ordered, rest...)
}

func fieldFromSchema(name string, src *openapi3.Schema) (model.Field, bool) {
	field := model.Field{
		Name:  name,
		Label: strings.TrimSpace(src.Title),
		Help:  strings.TrimSpace(src.Description),
	}
	if src.Default != nil {
		field.Default = formatValue(src.Default)
	}
	if placeholder, ok := src.Extensions[PlaceholderExtension].(string); ok {
		field.Placeholder = placeholder
	}

	typ := schemaType(src.Type)
	switch {
	case len(src.Enum) > 0:
		field.Widget = model.WidgetSelect
		for _, value := range src.Enum {
			field.Options = append(field.Options, model.Option{Value: formatValue(value)})
		}
	case typ == openapi3.TypeString:
		field.Widget = model.WidgetText
		if src.MaxLength != nil {
			setAttr(&field, "maxlength", strconv.FormatUint(*src.MaxLength, 10))
		}
		if src.MinLength > 0 {
			setAttr(&field, "minlength", strconv.FormatUint(src.MinLength, 10))
		}
		if src.Pattern != "" {
			setAttr(&field, "pattern", src.Pattern)
		}
	case typ == openapi3.TypeInteger || typ == openapi3.TypeNumber:
		field.Widget = model.WidgetNumber
		if src.Min != nil {
			setAttr(&field, "min", formatValue(*src.Min))
		}
		if src.Max != nil {
			setAttr(&field, "max", formatValue(*src.Max))
		}
		switch {
		case src.MultipleOf != nil:
			setAttr(&field, "step", formatValue(*src.MultipleOf))
		case typ == openapi3.TypeInteger:
			setAttr(&field, "step", "1")
		}
	case typ == openapi3.TypeBoolean:
		field.Widget = model.WidgetCheckbox
		if field.Default == "false" {
			field.Default = ""
		}
	default:
		return model.Field{}, false
	}

	if widget, ok := src.Extensions[WidgetExtension].(string); ok && model.Widget(widget) == model.WidgetHidden {
		field.Widget = model.WidgetHidden
	}
	return field, true
}

// schemaType returns the first non-null type of a schema.
func schemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	for _, value := range types.Slice() {
		if value != openapi3.TypeNull {
			return value
		}
	}
	return ""
}

func formatValue(value any) string {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func setAttr(field *model.Field, key, value string) {
	if field.Attrs == nil {
		field.Attrs = make(map[string]string)
	}
	field.Attrs[key] = value
}

func sortedKeys(schemas openapi3.Schemas) []string {
	keys := make([]string, 0, len(schemas))
	for name := range schemas {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}
