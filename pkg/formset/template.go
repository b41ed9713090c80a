package formset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Template is a detached, canonical entry: field values cleared, selects on
// their first option, no error messages, a remove trigger in the header and
// every entry reference pointing at index 0. Templates are never mutated
// after construction, so one Template can build any number of entries.
type Template struct {
	root     *html.Node
	contract Contract
}

// TemplateFromEntry builds a Template from an entry already present in a
// document. The entry itself is left untouched.
func TemplateFromEntry(entry *goquery.Selection, contract Contract) (*Template, error) {
	if entry == nil || entry.Length() == 0 {
		return nil, ErrNoTemplate
	}
	return newTemplate(cloneTree(entry.Nodes[0]), contract), nil
}

// TemplateFromHTML builds a Template from entry markup, typically produced
// by the "entry" renderer. The first element carrying the entry class is
// used; the markup may wrap it.
func TemplateFromHTML(markup string, contract Contract) (*Template, error) {
	context := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("formset: parse template markup: %w", err)
	}
	for _, node := range nodes {
		if node.Type != html.ElementNode {
			continue
		}
		if hasClass(node, contract.EntryClass) {
			return newTemplate(node, contract), nil
		}
		found := goquery.NewDocumentFromNode(node).Find(contract.entrySelector()).First()
		if found.Length() > 0 {
			return newTemplate(cloneTree(found.Nodes[0]), contract), nil
		}
	}
	return nil, fmt.Errorf("%w: markup has no %q element", ErrNoTemplate, contract.entrySelector())
}

func newTemplate(root *html.Node, contract Contract) *Template {
	root.Parent, root.PrevSibling, root.NextSibling = nil, nil, nil

	entry := goquery.NewDocumentFromNode(root).Selection
	entry.Find(fieldSelector).Each(func(_ int, field *goquery.Selection) {
		for _, node := range field.Nodes {
			resetField(node)
		}
	})
	entry.Find(contract.errorSelector()).Remove()
	ensureRemoveTrigger(entry, contract)
	bindTriggers(entry, contract)

	setAttr(root, contract.IndexAttr, "0")
	rewriteIndex(entry, contract.Prefix, 0)

	return &Template{root: root, contract: contract}
}

// HTML renders the template markup.
func (t *Template) HTML() (string, error) {
	var b strings.Builder
	if err := html.Render(&b, t.root); err != nil {
		return "", fmt.Errorf("formset: render template: %w", err)
	}
	return b.String(), nil
}

// CreateExerciseForm returns a fresh, detached entry for position index.
// Field names, ids, label targets, the index attribute and the title are all
// derived from index; the template is not modified.
func CreateExerciseForm(index int, tpl *Template) *html.Node {
	root := cloneTree(tpl.root)
	setAttr(root, tpl.contract.IndexAttr, strconv.Itoa(index))

	entry := goquery.NewDocumentFromNode(root).Selection
	rewriteIndex(entry, tpl.contract.Prefix, index)
	if title := entry.Find(tpl.contract.TitleSelector).First(); title.Length() > 0 {
		setText(title.Nodes[0], tpl.contract.Title(index))
	}
	return root
}

// ensureRemoveTrigger adds a remove control to the entry header when the
// header has none. Entries without a header receive it directly.
func ensureRemoveTrigger(entry *goquery.Selection, contract Contract) {
	host := entry.Find(contract.headerSelector()).First()
	if host.Length() == 0 {
		host = entry
	}
	if host.Find(contract.removeSelector()).Length() > 0 {
		return
	}
	button := newElement(atom.Button, contract.RemoveLabel,
		html.Attribute{Key: "type", Val: "button"},
		html.Attribute{Key: "class", Val: contract.RemoveClass},
		html.Attribute{Key: actionAttr, Val: string(ActionRemove)},
	)
	host.Nodes[0].AppendChild(button)
}
