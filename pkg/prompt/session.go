// Package prompt edits a formset document interactively. A Session drives
// the formset.Controller from a menu; the terminal is reached through a
// Driver so sessions can be scripted in tests.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goliatone/go-formset/pkg/formset"
	"github.com/goliatone/go-formset/pkg/model"
)

const (
	menuAdd    = "Add exercise"
	menuRemove = "Remove exercise"
	menuEdit   = "Edit exercise"
	menuDone   = "Done"
)

var menu = []string{menuAdd, menuRemove, menuEdit, menuDone}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for session diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session is one interactive editing run over a controller.
type Session struct {
	ctrl   *formset.Controller
	driver Driver
	logger *slog.Logger
}

// NewSession binds a controller to a driver.
func NewSession(ctrl *formset.Controller, driver Driver, options ...Option) (*Session, error) {
	if ctrl == nil {
		return nil, errors.New("prompt: controller is required")
	}
	if driver == nil {
		return nil, errors.New("prompt: driver is required")
	}
	s := &Session{ctrl: ctrl, driver: driver, logger: slog.Default()}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Run shows the menu until the user picks Done. Refused gestures (removing
// the last entry, exceeding MAX_NUM_FORMS) are reported and the loop goes
// on; interrupts end the session with ErrInterrupted.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		choice, err := s.driver.Select(ctx, SelectConfig{
			Message: fmt.Sprintf("%d exercise(s). What next?", s.ctrl.Count()),
			Options: menu,
		})
		if err != nil {
			return err
		}
		if choice < 0 || choice >= len(menu) {
			return fmt.Errorf("prompt: menu choice %d out of range", choice)
		}

		switch menu[choice] {
		case menuAdd:
			err = s.add(ctx)
		case menuRemove:
			err = s.remove(ctx)
		case menuEdit:
			err = s.edit(ctx)
		case menuDone:
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) add(ctx context.Context) error {
	err := s.ctrl.Dispatch(ctx, formset.Event{Action: formset.ActionAdd})
	if errors.Is(err, formset.ErrMaxForms) {
		return s.driver.Info(ctx, "The maximum number of exercises is reached.")
	}
	if err != nil {
		return err
	}
	return s.driver.Info(ctx, fmt.Sprintf("Added %s.", s.ctrl.Contract().Title(s.ctrl.Count()-1)))
}

func (s *Session) remove(ctx context.Context) error {
	index, err := s.chooseEntry(ctx, "Remove which exercise?")
	if err != nil {
		return err
	}
	title := s.ctrl.Contract().Title(index)
	ok, err := s.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Remove %s?", title)})
	if err != nil || !ok {
		return err
	}

	trigger, err := s.ctrl.RemoveTrigger(index)
	if err != nil {
		return err
	}
	before := s.ctrl.Count()
	if err := s.ctrl.Dispatch(ctx, formset.Event{Action: formset.ActionRemove, Trigger: trigger}); err != nil {
		return err
	}
	if s.ctrl.Count() == before {
		return s.driver.Info(ctx, "At least one exercise is required.")
	}
	return s.driver.Info(ctx, fmt.Sprintf("Removed %s.", title))
}

func (s *Session) edit(ctx context.Context) error {
	index, err := s.chooseEntry(ctx, "Edit which exercise?")
	if err != nil {
		return err
	}
	values, err := s.ctrl.Values(index)
	if err != nil {
		return err
	}

	for _, value := range values {
		if value.Field == "" || value.Type == "hidden" {
			continue
		}
		next, err := s.ask(ctx, value)
		if err != nil {
			return err
		}
		if next == value.Value {
			continue
		}
		if err := s.ctrl.SetValue(index, value.Field, next); err != nil {
			return err
		}
		s.logger.Debug("exercise field edited", "index", index, "field", value.Field)
	}
	return nil
}

func (s *Session) ask(ctx context.Context, value formset.FieldValue) (string, error) {
	label := model.DefaultLabeler(value.Field)
	switch value.Type {
	case "select-one", "select-multiple":
		if len(value.Options) == 0 {
			return value.Value, nil
		}
		current := 0
		for i, option := range value.Options {
			if option == value.Value {
				current = i
			}
		}
		choice, err := s.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      value.Options,
			DefaultIndex: current,
		})
		if err != nil {
			return "", err
		}
		if choice < 0 || choice >= len(value.Options) {
			return "", fmt.Errorf("prompt: option %d out of range", choice)
		}
		return value.Options[choice], nil
	case "checkbox", "radio":
		checked, err := s.driver.Confirm(ctx, ConfirmConfig{Message: label + "?", Default: value.Value != ""})
		if err != nil {
			return "", err
		}
		if !checked {
			return "", nil
		}
		if value.Value != "" {
			return value.Value, nil
		}
		return "on", nil
	case "number":
		return s.driver.Input(ctx, InputConfig{Message: label, Default: value.Value, Validator: validateNumber})
	default:
		return s.driver.Input(ctx, InputConfig{Message: label, Default: value.Value})
	}
}

func (s *Session) chooseEntry(ctx context.Context, message string) (int, error) {
	count := s.ctrl.Count()
	options := make([]string, count)
	for i := range options {
		options[i] = s.summary(i)
	}
	index, err := s.driver.Select(ctx, SelectConfig{Message: message, Options: options})
	if err != nil {
		return -1, err
	}
	if index < 0 || index >= count {
		return -1, fmt.Errorf("%w: index %d", formset.ErrEntryNotFound, index)
	}
	return index, nil
}

// summary is the entry title followed by its first non-empty text value.
func (s *Session) summary(index int) string {
	title := s.ctrl.Contract().Title(index)
	values, err := s.ctrl.Values(index)
	if err != nil {
		return title
	}
	for _, value := range values {
		if value.Type == "text" && strings.TrimSpace(value.Value) != "" {
			return title + ": " + value.Value
		}
	}
	return title
}

func validateNumber(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return fmt.Errorf("%q is not a number", raw)
	}
	return nil
}
