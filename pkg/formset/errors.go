package formset

import "errors"

var (
	// ErrFormsetNotFound is returned when the formset container is missing.
	ErrFormsetNotFound = errors.New("formset: formset container not found")
	// ErrTotalFormsNotFound is returned when the TOTAL_FORMS counter is missing.
	ErrTotalFormsNotFound = errors.New("formset: total forms counter not found")
	// ErrNoTemplate is returned when no entry exists to build a new one from.
	ErrNoTemplate = errors.New("formset: no entry available as template")
	// ErrTriggerOutsideEntry is returned when a remove trigger is not nested
	// inside an entry of the formset.
	ErrTriggerOutsideEntry = errors.New("formset: trigger is not inside an entry")
	// ErrMaxForms is returned when adding would exceed MAX_NUM_FORMS.
	ErrMaxForms = errors.New("formset: maximum number of entries reached")
	// ErrEntryNotFound is returned by index based lookups.
	ErrEntryNotFound = errors.New("formset: entry not found")
	// ErrFieldNotFound is returned when an entry has no field with the name.
	ErrFieldNotFound = errors.New("formset: field not found")
	// ErrUnknownAction is returned by Dispatch for unregistered actions.
	ErrUnknownAction = errors.New("formset: unknown action")
)
