package formset

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/goliatone/go-formset/pkg/naming"
)

// Check verifies the formset invariants and returns every violation joined
// into one error, or nil when the document is consistent:
//   - the counter equals the number of entries and at least one entry exists
//   - entry i carries index i in its index attribute and in every field
//     name, id and label target that references an entry
//   - the title of entry i reads Title(i)
func (c *Controller) Check() error {
	formset := c.formset()
	if formset.Length() == 0 {
		return ErrFormsetNotFound
	}

	var errs []error
	entries := c.Entries()
	if entries.Length() == 0 {
		errs = append(errs, errors.New("formset: no entries"))
	}

	total, err := c.TotalForms()
	switch {
	case err != nil:
		errs = append(errs, err)
	case total != entries.Length():
		errs = append(errs, fmt.Errorf("formset: counter is %d but %d entries exist", total, entries.Length()))
	}

	entries.Each(func(i int, entry *goquery.Selection) {
		if raw, _ := entry.Attr(c.contract.IndexAttr); raw != strconv.Itoa(i) {
			errs = append(errs, fmt.Errorf("formset: entry %d has %s=%q", i, c.contract.IndexAttr, raw))
		}
		check := func(node *html.Node, key string) {
			value, ok := getAttr(node, key)
			if !ok {
				return
			}
			if ref, ok := naming.Parse(c.contract.Prefix, value); ok && ref.Key.Index != i {
				errs = append(errs, fmt.Errorf("formset: entry %d has %s=%q", i, key, value))
			}
		}
		entry.Find(fieldSelector).Each(func(_ int, field *goquery.Selection) {
			check(field.Nodes[0], "name")
			check(field.Nodes[0], "id")
		})
		entry.Find("label").Each(func(_ int, label *goquery.Selection) {
			check(label.Nodes[0], "for")
		})
		if title := entry.Find(c.contract.TitleSelector).First(); title.Length() > 0 {
			if got, want := title.Text(), c.contract.Title(i); got != want {
				errs = append(errs, fmt.Errorf("formset: entry %d title is %q, want %q", i, got, want))
			}
		}
	})

	return errors.Join(errs...)
}
