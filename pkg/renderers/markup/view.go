package markup

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formset/pkg/model"
	"github.com/goliatone/go-formset/pkg/naming"
	"github.com/goliatone/go-formset/pkg/render"
)

// View maps are handed to the templates as the execution context. Indexes
// are formatted here so templates only print strings.

var (
	tagPattern      = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*$`)
	attrNamePattern = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:.\-]*$`)

	helpPolicyOnce sync.Once
	helpPolicy     *bluemonday.Policy
)

// reservedAttrs are written by the templates themselves. A class attribute
// is merged with the theme control class instead.
var reservedAttrs = map[string]struct{}{
	"name": {}, "id": {}, "type": {}, "value": {}, "class": {},
	"checked": {}, "selected": {}, "required": {}, "placeholder": {},
}

func (r *Renderer) contractView() map[string]any {
	tag, class := titleElement(r.contract.TitleSelector)
	return map[string]any{
		"formset_id":   r.contract.FormsetID,
		"entry_class":  r.contract.EntryClass,
		"header_class": r.contract.HeaderClass,
		"remove_class": r.contract.RemoveClass,
		"add_class":    r.contract.AddClass,
		"error_class":  r.contract.ErrorClass,
		"index_attr":   r.contract.IndexAttr,
		"remove_label": r.contract.RemoveLabel,
		"title_tag":    tag,
		"title_class":  class,
	}
}

// titleElement turns the title selector into the element to emit: a bare tag
// name is used as is, ".name" becomes a span with that class.
func titleElement(selector string) (string, string) {
	selector = strings.TrimSpace(selector)
	if tagPattern.MatchString(selector) {
		return strings.ToLower(selector), ""
	}
	if class := strings.TrimPrefix(selector, "."); class != selector && tagPattern.MatchString(strings.ReplaceAll(class, "-", "")) {
		return "span", class
	}
	return "h4", ""
}

func (r *Renderer) entryView(form model.Formset, index int, errs map[string][]string, controlClass string) map[string]any {
	fields := make([]map[string]any, 0, len(form.Fields))
	for _, field := range form.Fields {
		key := naming.Key{Prefix: form.Prefix, Index: index, Field: field.Name}
		value := form.Value(index, field)
		fields = append(fields, map[string]any{
			"widget":      string(field.Widget),
			"name":        key.Name(),
			"id":          key.ID(),
			"label":       field.Label,
			"value":       value,
			"placeholder": field.Placeholder,
			"help":        r.sanitizeHelp(field.Help),
			"required":    field.Required,
			"checked":     isChecked(value),
			"options":     optionsView(field.Options, value),
			"attrs":       attrsView(field.Attrs),
			"class":       joinClasses(controlClass, userClass(field.Attrs)),
			"errors":      errs[key.Name()],
		})
	}
	entryKey := naming.Key{Prefix: form.Prefix, Index: index}
	return map[string]any{
		"index":  strconv.Itoa(index),
		"title":  r.contract.Title(index),
		"fields": fields,
		"errors": errs[entryKey.Name()],
	}
}

func optionsView(options []model.Option, value string) []map[string]any {
	out := make([]map[string]any, 0, len(options))
	for _, option := range options {
		out = append(out, map[string]any{
			"value":    option.Value,
			"label":    option.Label,
			"selected": value != "" && option.Value == value,
		})
	}
	return out
}

func attrsView(attrs map[string]string) []map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		lower := strings.ToLower(strings.TrimSpace(key))
		if _, reserved := reservedAttrs[lower]; reserved || strings.HasPrefix(lower, "on") {
			continue
		}
		if !attrNamePattern.MatchString(lower) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		out = append(out, map[string]any{
			"key":   strings.ToLower(strings.TrimSpace(key)),
			"value": attrs[key],
		})
	}
	return out
}

func userClass(attrs map[string]string) string {
	var classes []string
	for key, value := range attrs {
		if strings.EqualFold(strings.TrimSpace(key), "class") {
			classes = append(classes, value)
		}
	}
	sort.Strings(classes)
	return strings.Join(classes, " ")
}

func hiddenView(fields []render.HiddenField) []map[string]any {
	out := make([]map[string]any, 0, len(fields))
	for _, field := range fields {
		out = append(out, map[string]any{
			"name":  field.Name,
			"id":    field.ID,
			"value": field.Value,
		})
	}
	return out
}

func isChecked(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1", "yes", "checked":
		return true
	}
	return false
}

func (r *Renderer) sanitizeHelp(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(r.helpPolicy.Sanitize(trimmed))
}

// helpSanitizer keeps inline formatting and links in help text.
func helpSanitizer() *bluemonday.Policy {
	helpPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("em", "strong", "b", "i", "code", "br")
		policy.AllowAttrs("href").OnElements("a")
		policy.AllowStandardURLs()
		policy.RequireNoFollowOnLinks(true)
		helpPolicy = policy
	})
	return helpPolicy
}
