package formset

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/goliatone/go-formset/pkg/naming"
)

const fieldSelector = "input, select"

// validInputTypes lists the input types browsers recognise; anything else,
// including a missing attribute, behaves as "text".
var validInputTypes = map[string]struct{}{
	"text": {}, "search": {}, "tel": {}, "url": {}, "email": {}, "password": {},
	"datetime-local": {}, "date": {}, "month": {}, "week": {}, "time": {},
	"number": {}, "range": {}, "color": {}, "checkbox": {}, "radio": {},
	"file": {}, "submit": {}, "image": {}, "reset": {}, "button": {}, "hidden": {},
}

func getAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			continue
		}
		out = append(out, attr)
	}
	n.Attr = out
}

func hasClass(n *html.Node, class string) bool {
	value, ok := getAttr(n, "class")
	if !ok {
		return false
	}
	for _, candidate := range strings.Fields(value) {
		if candidate == class {
			return true
		}
	}
	return false
}

// findByID looks an element up by exact id. Attribute comparison avoids
// escaping ids that are not valid CSS identifiers.
func findByID(root *goquery.Selection, id string) *goquery.Selection {
	return root.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		value, _ := s.Attr("id")
		return value == id
	}).First()
}

// fieldType mirrors the DOM "type" property: inputs report their effective
// type, selects report "select-one" or "select-multiple".
func fieldType(n *html.Node) string {
	switch n.DataAtom {
	case atom.Select:
		if _, multiple := getAttr(n, "multiple"); multiple {
			return "select-multiple"
		}
		return "select-one"
	case atom.Input:
		value, _ := getAttr(n, "type")
		value = strings.ToLower(strings.TrimSpace(value))
		if _, ok := validInputTypes[value]; ok {
			return value
		}
		return "text"
	default:
		return ""
	}
}

// resetField clears text and number inputs and moves single selects back to
// their first option. Other field types are left as they are.
func resetField(n *html.Node) {
	switch fieldType(n) {
	case "text", "number":
		setAttr(n, "value", "")
	case "select-one":
		selectOption(n, func(i int, _ *html.Node) bool { return i == 0 })
	}
}

// selectOption marks the first option accepted by match as selected and
// clears the flag on every other option. It reports whether one matched.
func selectOption(sel *html.Node, match func(i int, option *html.Node) bool) bool {
	opts := options(sel)
	chosen := -1
	for i, option := range opts {
		if match(i, option) {
			chosen = i
			break
		}
	}
	if chosen < 0 {
		return false
	}
	for i, option := range opts {
		removeAttr(option, "selected")
		if i == chosen {
			setAttr(option, "selected", "")
		}
	}
	return true
}

func options(sel *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != html.ElementNode {
				continue
			}
			if child.DataAtom == atom.Option {
				out = append(out, child)
				continue
			}
			walk(child)
		}
	}
	walk(sel)
	return out
}

func optionValue(option *html.Node) string {
	if value, ok := getAttr(option, "value"); ok {
		return value
	}
	return strings.TrimSpace(textContent(option))
}

// rewriteIndex points the entry references inside the entry subtree at
// index: name and id on fields, for on labels.
func rewriteIndex(entry *goquery.Selection, prefix string, index int) {
	entry.Find(fieldSelector).Each(func(_ int, field *goquery.Selection) {
		for _, node := range field.Nodes {
			rewriteAttr(node, "name", prefix, index)
			rewriteAttr(node, "id", prefix, index)
		}
	})
	entry.Find("label").Each(func(_ int, label *goquery.Selection) {
		for _, node := range label.Nodes {
			rewriteAttr(node, "for", prefix, index)
		}
	})
}

func rewriteAttr(n *html.Node, key, prefix string, index int) {
	value, ok := getAttr(n, key)
	if !ok || value == "" {
		return
	}
	if next := naming.Reindex(prefix, value, index); next != value {
		setAttr(n, key, next)
	}
}

func setText(n *html.Node, text string) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		n.RemoveChild(child)
		child = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func newElement(tag atom.Atom, text string, attrs ...html.Attribute) *html.Node {
	node := &html.Node{
		Type:     html.ElementNode,
		DataAtom: tag,
		Data:     tag.String(),
		Attr:     attrs,
	}
	if text != "" {
		node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return node
}

func cloneTree(n *html.Node) *html.Node {
	out := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		out.AppendChild(cloneTree(child))
	}
	return out
}
