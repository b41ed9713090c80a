package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formset/pkg/model"
	"github.com/goliatone/go-formset/pkg/naming"
)

// HiddenField is a hidden input emitted next to the entries.
type HiddenField struct {
	Name  string
	ID    string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// CSRFToken constructs a hidden field carrying the provided token. Callers
// supply the input name their backend expects ("csrfmiddlewaretoken",
// "_csrf").
func CSRFToken(name, token string) HiddenField {
	return Hidden(name, token)
}

// ManagementFields returns the four management inputs of form, in the order
// server-side formsets render them. TOTAL_FORMS always equals the number of
// entries rendered.
func ManagementFields(form model.Formset) []HiddenField {
	form = form.Normalize()
	values := []struct {
		field string
		value int
	}{
		{naming.TotalForms, len(form.Values)},
		{naming.InitialForms, form.Limits.Initial},
		{naming.MinNumForms, form.Limits.Min},
		{naming.MaxNumForms, form.Limits.Max},
	}
	out := make([]HiddenField, 0, len(values))
	for _, v := range values {
		out = append(out, HiddenField{
			Name:  naming.Management(form.Prefix, v.field),
			ID:    naming.ManagementID(form.Prefix, v.field),
			Value: strconv.Itoa(v.value),
		})
	}
	return out
}

// SortedHiddenFields drops unnamed fields, lets later fields win on name
// collisions and sorts the result by name for deterministic output.
func SortedHiddenFields(fields []HiddenField) []HiddenField {
	if len(fields) == 0 {
		return nil
	}
	byName := make(map[string]HiddenField, len(fields))
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		field.Name = name
		byName[name] = field
	}
	if len(byName) == 0 {
		return nil
	}
	out := make([]HiddenField, 0, len(byName))
	for _, field := range byName {
		out = append(out, field)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
