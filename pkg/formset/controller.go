// Package formset manages a repeatable group of entries inside an HTML form
// following the server-side form-array convention: a TOTAL_FORMS counter and
// fields named "<prefix>-<index>-<field>".
//
// A Controller owns one parsed Document. Every operation runs to completion
// synchronously and either leaves the document consistent or, when a
// precondition fails, untouched. Diagnostics go to the configured slog
// logger; precondition failures are also returned as errors.
package formset

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Option configures a Controller.
type Option func(*config)

type config struct {
	contract Contract
	logger   *slog.Logger
	template *Template
}

// WithContract overrides the element ids and class names.
func WithContract(contract Contract) Option {
	return func(cfg *config) {
		cfg.contract = contract
	}
}

// WithLogger sets the diagnostic logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithTemplate makes AddExercise build entries from tpl instead of the first
// entry of the formset.
func WithTemplate(tpl *Template) Option {
	return func(cfg *config) {
		cfg.template = tpl
	}
}

// Controller adds, removes, renumbers and re-indexes the entries of a
// formset. It is not safe for concurrent use; callers serialise events the
// way a browser serialises user gestures.
type Controller struct {
	doc      *Document
	contract Contract
	logger   *slog.Logger
	template *Template
	handlers map[Action][]Handler
}

// New binds a controller to doc.
func New(doc *Document, options ...Option) (*Controller, error) {
	if doc == nil {
		return nil, errors.New("formset: document is nil")
	}
	cfg := config{contract: DefaultContract()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if err := cfg.contract.Validate(); err != nil {
		return nil, err
	}

	return &Controller{
		doc:      doc,
		contract: cfg.contract,
		logger:   cfg.logger,
		template: cfg.template,
		handlers: make(map[Action][]Handler),
	}, nil
}

// Document returns the document the controller mutates.
func (c *Controller) Document() *Document {
	return c.doc
}

// Contract returns the contract in use.
func (c *Controller) Contract() Contract {
	return c.contract
}

// Init performs the page-load pass: entry titles are renumbered.
func (c *Controller) Init() {
	c.UpdateExerciseNumbers()
	c.logger.Debug("formset initialised", "entries", c.Count())
}

// Entries returns every entry of the formset in document order.
func (c *Controller) Entries() *goquery.Selection {
	return c.formset().Find(c.contract.entrySelector())
}

// Count returns the number of entries in the formset.
func (c *Controller) Count() int {
	return c.Entries().Length()
}

// TotalForms returns the value of the TOTAL_FORMS counter.
func (c *Controller) TotalForms() (int, error) {
	counter := c.counter()
	if counter.Length() == 0 {
		return 0, ErrTotalFormsNotFound
	}
	raw, _ := counter.Attr("value")
	total, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("formset: total forms value %q: %w", raw, err)
	}
	return total, nil
}

// AddExercise appends a new, empty entry at index Count() and bumps the
// counter. Existing entries keep their indices. It returns the new entry.
func (c *Controller) AddExercise() (*goquery.Selection, error) {
	formset := c.formset()
	counter := c.counter()
	if formset.Length() == 0 || counter.Length() == 0 {
		c.logger.Error("required elements not found",
			"formset_id", c.contract.FormsetID, "formset_found", formset.Length() > 0,
			"total_forms_id", c.contract.CounterID(), "total_forms_found", counter.Length() > 0,
		)
		if formset.Length() == 0 {
			return nil, ErrFormsetNotFound
		}
		return nil, ErrTotalFormsNotFound
	}

	tpl := c.template
	if tpl == nil {
		first := formset.Find(c.contract.entrySelector()).First()
		if first.Length() == 0 {
			c.logger.Error("no exercise form found to clone", "entry_class", c.contract.EntryClass)
			return nil, ErrNoTemplate
		}
		var err error
		if tpl, err = TemplateFromEntry(first, c.contract); err != nil {
			return nil, err
		}
	}

	count := c.syncedCount(formset, counter)
	if c.contract.EnforceLimits {
		if limit, ok := c.managementValue(managementMax); ok && count >= limit {
			c.logger.Info("cannot add exercise form, maximum reached", "max", limit)
			return nil, ErrMaxForms
		}
	}

	formset.AppendNodes(CreateExerciseForm(count, tpl))
	counter.SetAttr("value", strconv.Itoa(count+1))
	c.UpdateExerciseNumbers()

	c.logger.Info("exercise form added", "index", count, "total_forms", count+1)
	return formset.Children().Last(), nil
}

// RemoveExercise removes the entry enclosing trigger, then renumbers and
// re-indexes the remaining entries. Removing the only remaining entry is
// refused and reported as (false, nil).
func (c *Controller) RemoveExercise(trigger *goquery.Selection) (bool, error) {
	formset := c.formset()
	if formset.Length() == 0 {
		c.logger.Error("required elements not found", "formset_id", c.contract.FormsetID)
		return false, ErrFormsetNotFound
	}
	counter := c.counter()
	if counter.Length() == 0 {
		c.logger.Error("required elements not found", "total_forms_id", c.contract.CounterID())
		return false, ErrTotalFormsNotFound
	}

	entries := formset.Find(c.contract.entrySelector())
	position := -1
	var entry *goquery.Selection
	if trigger != nil && trigger.Length() > 0 {
		entry = trigger.First().Closest(c.contract.entrySelector())
		if entry.Length() > 0 {
			position = entries.IndexOfNode(entry.Nodes[0])
		}
	}
	if position < 0 {
		c.logger.Error("remove trigger is not inside an exercise form", "entry_class", c.contract.EntryClass)
		return false, ErrTriggerOutsideEntry
	}

	floor := 1
	if c.contract.EnforceLimits {
		if limit, ok := c.managementValue(managementMin); ok && limit > floor {
			floor = limit
		}
	}
	if entries.Length() <= floor {
		c.logger.Info("cannot remove last exercise form", "entries", entries.Length(), "minimum", floor)
		return false, nil
	}

	count := c.syncedCount(formset, counter)
	entry.Remove()
	counter.SetAttr("value", strconv.Itoa(count-1))

	c.UpdateExerciseNumbers()
	c.ReindexForms()

	c.logger.Info("exercise form removed", "index", position, "total_forms", count-1)
	return true, nil
}

// UpdateExerciseNumbers sets the title of every entry to its 1-based
// position.
func (c *Controller) UpdateExerciseNumbers() {
	c.Entries().Each(func(i int, entry *goquery.Selection) {
		title := entry.Find(c.contract.TitleSelector).First()
		if title.Length() == 0 {
			return
		}
		setText(title.Nodes[0], c.contract.Title(i))
	})
}

// ReindexForms points the index attribute, field names and ids, and label
// targets of every entry at the entry's position. Titles and the counter
// are left alone.
func (c *Controller) ReindexForms() {
	c.Entries().Each(func(i int, entry *goquery.Selection) {
		entry.SetAttr(c.contract.IndexAttr, strconv.Itoa(i))
		rewriteIndex(entry, c.contract.Prefix, i)
	})
}

// entryAt returns the entry at a zero-based position. Negative positions
// are rejected rather than counted from the end.
func (c *Controller) entryAt(index int) (*goquery.Selection, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: index %d", ErrEntryNotFound, index)
	}
	entry := c.Entries().Eq(index)
	if entry.Length() == 0 {
		return nil, fmt.Errorf("%w: index %d", ErrEntryNotFound, index)
	}
	return entry, nil
}

func (c *Controller) formset() *goquery.Selection {
	return findByID(c.doc.Selection(), c.contract.FormsetID)
}

func (c *Controller) counter() *goquery.Selection {
	return findByID(c.doc.Selection(), c.contract.CounterID())
}

// syncedCount returns the counter value when it agrees with the number of
// entries. A missing, malformed or drifted counter is reported and the
// entry count wins, keeping indices dense.
func (c *Controller) syncedCount(formset, counter *goquery.Selection) int {
	entries := formset.Find(c.contract.entrySelector()).Length()
	raw, _ := counter.Attr("value")
	total, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case err != nil:
		c.logger.Warn("total forms counter is not a number, using entry count", "value", raw, "entries", entries)
		return entries
	case total != entries:
		c.logger.Warn("total forms counter out of sync, using entry count", "value", total, "entries", entries)
		return entries
	default:
		return total
	}
}
