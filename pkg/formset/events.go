package formset

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Action names a user gesture the controller reacts to.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// ActionField is the submitted field carrying the action of a no-script
// form submission ("add" or "remove-<index>").
const ActionField = "formset-action"

const actionAttr = "data-formset-action"

// Event is one user gesture. Trigger is the control that was activated; it
// is required for ActionRemove.
type Event struct {
	Action  Action
	Trigger *goquery.Selection
}

// Handler reacts to an event. Handlers registered with On run after the
// controller's own handling succeeded.
type Handler func(ctx context.Context, ctrl *Controller, ev Event) error

// On registers an additional handler for action.
func (c *Controller) On(action Action, handler Handler) {
	if handler == nil {
		return
	}
	c.handlers[action] = append(c.handlers[action], handler)
}

// Dispatch routes an event to the built-in operation for its action and then
// to every handler registered with On.
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch ev.Action {
	case ActionAdd:
		if _, err := c.AddExercise(); err != nil {
			return err
		}
	case ActionRemove:
		removed, err := c.RemoveExercise(ev.Trigger)
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, ev.Action)
	}

	for _, handler := range c.handlers[ev.Action] {
		if err := handler(ctx, c, ev); err != nil {
			return fmt.Errorf("formset: %s handler: %w", ev.Action, err)
		}
	}
	return nil
}

// Bind replaces inline script bindings on the add and remove controls with
// data-formset-action markers, so the document carries no behaviour of its
// own. It returns the number of controls bound.
func (c *Controller) Bind() int {
	return bindTriggers(c.doc.Selection(), c.contract)
}

func bindTriggers(root *goquery.Selection, contract Contract) int {
	bound := 0
	mark := func(selector string, action Action) {
		if selector == "." {
			return
		}
		root.Find(selector).Each(func(_ int, control *goquery.Selection) {
			for _, node := range control.Nodes {
				removeAttr(node, "onclick")
				setAttr(node, actionAttr, string(action))
				bound++
			}
		})
	}
	mark(contract.removeSelector(), ActionRemove)
	mark("."+contract.AddClass, ActionAdd)
	return bound
}

// RemoveTrigger returns the remove control of the entry at index.
func (c *Controller) RemoveTrigger(index int) (*goquery.Selection, error) {
	entry, err := c.entryAt(index)
	if err != nil {
		return nil, err
	}
	trigger := entry.Find(c.contract.removeSelector()).First()
	if trigger.Length() == 0 {
		return nil, fmt.Errorf("formset: entry %d has no remove control", index)
	}
	return trigger, nil
}

// EventFromValues decodes the action of a submitted form. ok is false when
// the submission carries no action, which is an ordinary save.
func (c *Controller) EventFromValues(values url.Values) (Event, bool, error) {
	raw := strings.TrimSpace(values.Get(ActionField))
	if raw == "" {
		return Event{}, false, nil
	}
	if raw == string(ActionAdd) {
		return Event{Action: ActionAdd}, true, nil
	}
	if rest, ok := strings.CutPrefix(raw, string(ActionRemove)+"-"); ok {
		index, err := strconv.Atoi(rest)
		if err != nil {
			return Event{}, false, fmt.Errorf("formset: invalid remove index %q", rest)
		}
		trigger, err := c.RemoveTrigger(index)
		if err != nil {
			return Event{}, false, err
		}
		return Event{Action: ActionRemove, Trigger: trigger}, true, nil
	}
	return Event{}, false, fmt.Errorf("%w: %q", ErrUnknownAction, raw)
}
