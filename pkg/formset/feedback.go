package formset

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/goliatone/go-formset/pkg/naming"
)

// ApplyErrors renders server-side validation feedback into the formset.
// Payload keys follow the submitted names: "form-1-name" lands after the
// matching field of entry 1, "form-1" at the top of entry 1. Form-level keys
// ("__all__", "non_field_errors", "") and keys that match nothing land at the
// top of the formset so no message is lost. It returns the number of error
// blocks inserted.
func (c *Controller) ApplyErrors(payload map[string][]string) (int, error) {
	formset := c.formset()
	if formset.Length() == 0 {
		return 0, ErrFormsetNotFound
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := c.Entries()
	var formLevel []string
	placed := 0

	for _, key := range keys {
		messages := normalizeMessages(payload[key])
		if len(messages) == 0 {
			continue
		}
		trimmed := strings.TrimSpace(key)
		parsed, ok := naming.ParseKey(c.contract.Prefix, trimmed)
		if isFormLevelKey(trimmed) || !ok {
			formLevel = append(formLevel, messages...)
			continue
		}
		entry := entries.Eq(parsed.Index)
		if entry.Length() == 0 {
			formLevel = append(formLevel, messages...)
			continue
		}

		block := c.errorBlock(messages)
		if parsed.Field != "" {
			if field := fieldByName(entry, parsed.Name()); field.Length() > 0 {
				field.AfterNodes(block)
				placed++
				continue
			}
		}
		prependAfterHeader(entry, c.contract, block)
		placed++
	}

	if formLevel = normalizeMessages(formLevel); len(formLevel) > 0 {
		formset.PrependNodes(c.errorBlock(formLevel))
		placed++
	}
	return placed, nil
}

// ClearErrors removes every error block from the formset and returns how
// many were removed.
func (c *Controller) ClearErrors() int {
	blocks := c.formset().Find(c.contract.errorSelector())
	removed := blocks.Length()
	blocks.Remove()
	return removed
}

// ErrorsFromList flattens per-entry errors, as produced by a server-side
// formset (one map per entry, keyed by bare field name), into the payload
// shape ApplyErrors expects. The "__all__" key of an entry maps to the entry
// itself.
func ErrorsFromList(prefix string, list []map[string][]string) map[string][]string {
	out := make(map[string][]string)
	for index, entryErrors := range list {
		for field, messages := range entryErrors {
			key := naming.Key{Prefix: prefix, Index: index}
			if field != "__all__" && strings.TrimSpace(field) != "" {
				key.Field = strings.TrimSpace(field)
			}
			out[key.Name()] = append(out[key.Name()], messages...)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (c *Controller) errorBlock(messages []string) *html.Node {
	block := newElement(atom.Div, "", html.Attribute{Key: "class", Val: c.contract.ErrorClass})
	for _, message := range messages {
		block.AppendChild(newElement(atom.P, message))
	}
	return block
}

func prependAfterHeader(entry *goquery.Selection, contract Contract, block *html.Node) {
	if header := entry.ChildrenFiltered(contract.headerSelector()).First(); header.Length() > 0 {
		header.AfterNodes(block)
		return
	}
	entry.PrependNodes(block)
}

func fieldByName(entry *goquery.Selection, name string) *goquery.Selection {
	return entry.Find(fieldSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		value, _ := s.Attr("name")
		return value == name
	}).First()
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
	case "", "__all__", "non_field_errors", "non-field-errors", "form":
		return true
	default:
		return false
	}
}
