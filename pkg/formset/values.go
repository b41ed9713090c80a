package formset

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/goliatone/go-formset/pkg/naming"
)

// FieldValue is the current value of one field of an entry.
type FieldValue struct {
	Field string
	Name  string
	Type  string
	Value string
	// Options lists the option values of a select.
	Options []string
}

// Values returns the fields of the entry at index in document order. Fields
// whose names do not follow the form-array convention are reported with an
// empty Field.
func (c *Controller) Values(index int) ([]FieldValue, error) {
	entry, err := c.entryAt(index)
	if err != nil {
		return nil, err
	}

	var out []FieldValue
	entry.Find(fieldSelector).Each(func(_ int, field *goquery.Selection) {
		node := field.Nodes[0]
		name, _ := getAttr(node, "name")
		value := FieldValue{Name: name, Type: fieldType(node), Value: currentValue(node)}
		if node.DataAtom == atom.Select {
			for _, option := range options(node) {
				value.Options = append(value.Options, optionValue(option))
			}
		}
		if key, ok := naming.ParseKey(c.contract.Prefix, name); ok {
			value.Field = key.Field
		}
		out = append(out, value)
	})
	return out, nil
}

// SetValue sets the value of field on the entry at index. Select fields pick
// the option whose value matches; an unknown option is an error.
func (c *Controller) SetValue(index int, field, value string) error {
	entry, err := c.entryAt(index)
	if err != nil {
		return err
	}
	name := naming.Key{Prefix: c.contract.Prefix, Index: index, Field: field}.Name()
	target := fieldByName(entry, name)
	if target.Length() == 0 {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, name)
	}

	node := target.Nodes[0]
	switch fieldType(node) {
	case "select-one", "select-multiple":
		if !selectOption(node, func(_ int, option *html.Node) bool { return optionValue(option) == value }) {
			return fmt.Errorf("formset: %s has no option %q", name, value)
		}
	case "checkbox", "radio":
		if value == "" || value == "false" || value == "off" {
			removeAttr(node, "checked")
		} else {
			setAttr(node, "checked", "")
		}
	default:
		setAttr(node, "value", value)
	}
	c.logger.Debug("field value set", "name", name)
	return nil
}

func currentValue(n *html.Node) string {
	switch fieldType(n) {
	case "select-one", "select-multiple":
		opts := options(n)
		for _, option := range opts {
			if _, selected := getAttr(option, "selected"); selected {
				return optionValue(option)
			}
		}
		if len(opts) > 0 && fieldType(n) == "select-one" {
			return optionValue(opts[0])
		}
		return ""
	case "checkbox", "radio":
		if _, checked := getAttr(n, "checked"); checked {
			if value, ok := getAttr(n, "value"); ok {
				return value
			}
			return "on"
		}
		return ""
	default:
		value, _ := getAttr(n, "value")
		return value
	}
}
