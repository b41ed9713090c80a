package render

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formset/pkg/model"
	"github.com/goliatone/go-formset/pkg/naming"
)

// FormLevelKey collects errors that do not belong to a single entry.
const FormLevelKey = "__all__"

// NormalizeErrorPayload rewrites server error payloads into the submitted
// name keys formset.Controller.ApplyErrors understands. It accepts the
// form-array names themselves ("form-1-name") as well as JSON pointer and
// dotted paths ("/body/exercises/1/name", "exercises[1].name"). Paths that
// point at no entry are collected under FormLevelKey so messages are not
// lost.
func NormalizeErrorPayload(form model.Formset, payload map[string][]string) map[string][]string {
	if len(payload) == 0 {
		return nil
	}
	form = form.Normalize()

	known := make(map[string]struct{}, len(form.Fields))
	for _, field := range form.Fields {
		known[field.Name] = struct{}{}
	}

	out := make(map[string][]string)
	for raw, messages := range payload {
		messages = normalizeMessages(messages)
		if len(messages) == 0 {
			continue
		}
		key := mapErrorPath(form.Prefix, strings.TrimSpace(raw), known)
		out[key] = append(out[key], messages...)
	}
	for key, messages := range out {
		out[key] = normalizeMessages(messages)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// dropping duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// ErrorKeys returns the keys of a normalised payload in a stable order.
func ErrorKeys(payload map[string][]string) []string {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func mapErrorPath(prefix, raw string, known map[string]struct{}) string {
	if isFormLevelKey(raw) {
		return FormLevelKey
	}
	if key, ok := naming.ParseKey(prefix, raw); ok {
		return key.Name()
	}

	segments := dropWrapperSegments(parsePathSegments(raw))
	for i, segment := range segments {
		index, err := strconv.Atoi(segment)
		if err != nil || index < 0 {
			continue
		}
		key := naming.Key{Prefix: prefix, Index: index}
		if i+1 < len(segments) {
			if _, exists := known[segments[i+1]]; exists {
				key.Field = segments[i+1]
			}
		}
		return key.Name()
	}
	return FormLevelKey
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = strings.TrimPrefix(clean, "#")
		clean = strings.TrimPrefix(clean, "/")
		clean = strings.TrimPrefix(clean, ".")
		clean = strings.TrimPrefix(clean, "$")
	}

	replacer := strings.NewReplacer("[", ".", "]", "", "//", "/")
	clean = strings.Trim(replacer.Replace(clean), "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	wrappers := map[string]struct{}{
		"body":       {},
		"request":    {},
		"payload":    {},
		"data":       {},
		"attributes": {},
	}
	out := segments
	for len(out) > 0 {
		if _, ok := wrappers[strings.ToLower(out[0])]; !ok {
			break
		}
		out = out[1:]
	}
	return out
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
