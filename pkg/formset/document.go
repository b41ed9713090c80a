package formset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page holding a formset. Controllers mutate it in
// place; Render writes the current state back out.
type Document struct {
	doc *goquery.Document
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	if r == nil {
		return nil, errors.New("formset: reader is nil")
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("formset: parse document: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseString parses markup held in memory.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// MustParseString panics when markup cannot be parsed. Intended for tests
// and static fixtures.
func MustParseString(markup string) *Document {
	doc, err := ParseString(markup)
	if err != nil {
		panic(err)
	}
	return doc
}

// Selection exposes the root selection for callers that need raw queries.
func (d *Document) Selection() *goquery.Selection {
	return d.doc.Selection
}

// Find runs a CSS selector against the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	for _, node := range d.doc.Nodes {
		if err := html.Render(w, node); err != nil {
			return fmt.Errorf("formset: render document: %w", err)
		}
	}
	return nil
}

// String renders the document, returning an empty string on failure.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}
