package formset_test

import (
	"bytes"
	"errors"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formset/pkg/formset"
)

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/exercises.html")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func newController(t *testing.T, markup string, options ...formset.Option) (*formset.Controller, *bytes.Buffer) {
	t.Helper()
	doc, err := formset.ParseString(markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	options = append([]formset.Option{formset.WithLogger(logger)}, options...)
	ctrl, err := formset.New(doc, options...)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return ctrl, &logs
}

func mustAdd(t *testing.T, ctrl *formset.Controller) *goquery.Selection {
	t.Helper()
	entry, err := ctrl.AddExercise()
	if err != nil {
		t.Fatalf("AddExercise: %v", err)
	}
	return entry
}

func mustCheck(t *testing.T, ctrl *formset.Controller) {
	t.Helper()
	if err := ctrl.Check(); err != nil {
		t.Fatalf("invariants violated:\n%v", err)
	}
}

func attrs(sel *goquery.Selection, name string) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		value, _ := s.Attr(name)
		out = append(out, value)
	})
	return out
}

func titles(ctrl *formset.Controller) []string {
	var out []string
	ctrl.Entries().Each(func(_ int, entry *goquery.Selection) {
		out = append(out, entry.Find("h4").Text())
	})
	return out
}

func TestAddExerciseAppendsEmptyEntry(t *testing.T) {
	ctrl, _ := newController(t, loadFixture(t))

	entry := mustAdd(t, ctrl)

	if total, err := ctrl.TotalForms(); err != nil || total != 2 {
		t.Fatalf("TotalForms() = %d, %v; want 2", total, err)
	}
	if diff := cmp.Diff([]string{"0", "1"}, attrs(ctrl.Entries(), "data-form-index")); diff != "" {
		t.Fatalf("indices mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Exercise 1", "Exercise 2"}, titles(ctrl)); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}

	wantNames := []string{"form-1-name", "form-1-sets", "form-1-reps", "form-1-weight", "form-1-weight_unit", "form-1-DELETE", "comment"}
	if diff := cmp.Diff(wantNames, attrs(entry.Find("input, select"), "name")); diff != "" {
		t.Fatalf("new entry names mismatch (-want +got):\n%s", diff)
	}
	wantFor := []string{"id_form-1-name", "id_form-1-sets", "id_form-1-reps", "id_form-1-weight", "id_form-1-weight_unit"}
	if diff := cmp.Diff(wantFor, attrs(entry.Find("label"), "for")); diff != "" {
		t.Fatalf("new entry label targets mismatch (-want +got):\n%s", diff)
	}

	values, err := ctrl.Values(1)
	if err != nil {
		t.Fatalf("Values(1): %v", err)
	}
	got := map[string]string{}
	for _, value := range values {
		got[value.Name] = value.Value
	}
	want := map[string]string{
		"form-1-name":        "",
		"form-1-sets":        "",
		"form-1-reps":        "",
		"form-1-weight":      "",
		"form-1-weight_unit": "Lbs",
		"form-1-DELETE":      "",
		"comment":            "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("new entry values mismatch (-want +got):\n%s", diff)
	}

	original, err := ctrl.Values(0)
	if err != nil {
		t.Fatalf("Values(0): %v", err)
	}
	if original[0].Value != "Bench press" || original[4].Value != "Kg" {
		t.Fatalf("existing entry modified: %+v", original)
	}
	mustCheck(t, ctrl)
}

func TestAddExerciseDropsStaleErrors(t *testing.T) {
	ctrl, _ := newController(t, loadFixture(t))

	entry := mustAdd(t, ctrl)

	if n := entry.Find(".error-messages").Length(); n != 0 {
		t.Fatalf("new entry has %d error blocks, want 0", n)
	}
	if n := ctrl.Entries().First().Find(".error-messages").Length(); n != 1 {
		t.Fatalf("template entry has %d error blocks, want 1", n)
	}
	if n := entry.Find(".exercise-header .btn-remove-exercise").Length(); n != 1 {
		t.Fatalf("new entry has %d remove controls, want 1", n)
	}
}

func TestAddExerciseCreatesMissingRemoveControl(t *testing.T) {
	markup := strings.Replace(loadFixture(t),
		`<button type="button" class="btn-remove-exercise" onclick="removeExercise(this)">Remove</button>`, "", 1)
	ctrl, _ := newController(t, markup)

	entry := mustAdd(t, ctrl)

	button := entry.Find(".exercise-header .btn-remove-exercise")
	if button.Length() != 1 {
		t.Fatalf("remove controls = %d, want 1", button.Length())
	}
	if got := button.Text(); got != "Remove" {
		t.Fatalf("remove label = %q, want Remove", got)
	}
	if action, _ := button.Attr("data-formset-action"); action != "remove" {
		t.Fatalf("remove control action = %q, want remove", action)
	}

	removed, err := ctrl.RemoveExercise(button)
	if err != nil || !removed {
		t.Fatalf("RemoveExercise() = %v, %v; want true, nil", removed, err)
	}
	mustCheck(t, ctrl)
}

func TestRemoveExerciseReindexesRemaining(t *testing.T) {
	ctrl, _ := newController(t, loadFixture(t))
	mustAdd(t, ctrl)
	mustAdd(t, ctrl)
	for i, name := range []string{"Squat", "Deadlift", "Row"} {
		if err := ctrl.SetValue(i, "name", name); err != nil {
			t.Fatalf("SetValue(%d): %v", i, err)
		}
	}

	trigger, err := ctrl.RemoveTrigger(1)
	if err != nil {
		t.Fatalf("RemoveTrigger: %v", err)
	}
	removed, err := ctrl.RemoveExercise(trigger)
	if err != nil || !removed {
		t.Fatalf("RemoveExercise() = %v, %v; want true, nil", removed, err)
	}

	if total, _ := ctrl.TotalForms(); total != 2 {
		t.Fatalf("TotalForms() = %d, want 2", total)
	}
	if diff := cmp.Diff([]string{"0", "1"}, attrs(ctrl.Entries(), "data-form-index")); diff != "" {
		t.Fatalf("indices mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Exercise 1", "Exercise 2"}, titles(ctrl)); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
	names := ctrl.Document().Find(`input[name$="-name"]`)
	if diff := cmp.Diff([]string{"form-0-name", "form-1-name"}, attrs(names, "name")); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"id_form-0-name", "id_form-1-name"}, attrs(names, "id")); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Squat", "Row"}, attrs(names, "value")); diff != "" {
		t.Fatalf("relative order mismatch (-want +got):\n%s", diff)
	}
	mustCheck(t, ctrl)
}

func TestRemoveExerciseRefusesLastEntry(t *testing.T) {
	ctrl, logs := newController(t, loadFixture(t))
	before := ctrl.Document().String()

	trigger, err := ctrl.RemoveTrigger(0)
	if err != nil {
		t.Fatalf("RemoveTrigger: %v", err)
	}
	removed, err := ctrl.RemoveExercise(trigger)
	if err != nil || removed {
		t.Fatalf("RemoveExercise() = %v, %v; want false, nil", removed, err)
	}
	if after := ctrl.Document().String(); after != before {
		t.Fatalf("document mutated:\n%s", cmp.Diff(before, after))
	}
	if !strings.Contains(logs.String(), "cannot remove last exercise form") {
		t.Fatalf("expected diagnostic, got logs:\n%s", logs.String())
	}
}

func TestRemoveExerciseTriggerOutsideEntry(t *testing.T) {
	ctrl, _ := newController(t, loadFixture(t))
	mustAdd(t, ctrl)
	before := ctrl.Document().String()

	outside := ctrl.Document().Find(".btn-add-exercise")
	if _, err := ctrl.RemoveExercise(outside); !errors.Is(err, formset.ErrTriggerOutsideEntry) {
		t.Fatalf("RemoveExercise(outside) error = %v, want ErrTriggerOutsideEntry", err)
	}
	if _, err := ctrl.RemoveExercise(nil); !errors.Is(err, formset.ErrTriggerOutsideEntry) {
		t.Fatalf("RemoveExercise(nil) error = %v, want ErrTriggerOutsideEntry", err)
	}
	if after := ctrl.Document().String(); after != before {
		t.Fatalf("document mutated:\n%s", cmp.Diff(before, after))
	}
}

func TestReindexLeavesForeignNamesAlone(t *testing.T) {
	ctrl, _ := newController(t, loadFixture(t))
	mustAdd(t, ctrl)
	mustAdd(t, ctrl)
	trigger, _ := ctrl.RemoveTrigger(0)
	if _, err := ctrl.RemoveExercise(trigger); err != nil {
		t.Fatalf("RemoveExercise: %v", err)
	}
	ctrl.ReindexForms()

	comments := ctrl.Document().Find(`#exercise-formset input[id="comment"]`)
	if diff := cmp.Diff([]string{"comment", "comment"}, attrs(comments, "name")); diff != "" {
		t.Fatalf("foreign names rewritten (-want +got):\n%s", diff)
	}
}

func TestReindexRewritesOversizedIndex(t *testing.T) {
	markup := strings.Replace(loadFixture(t), `name="form-0-reps"`, `name="form-99999999999999999999-reps"`, 1)
	ctrl, _ := newController(t, markup)

	err := ctrl.Check()
	if err == nil || !strings.Contains(err.Error(), "form-99999999999999999999-reps") {
		t.Fatalf("Check() = %v, want the oversized index reported", err)
	}

	ctrl.ReindexForms()
	mustCheck(t, ctrl)
	if got := ctrl.Entries().Eq(0).Find(`input[id="id_form-0-reps"]`).AttrOr("name", ""); got != "form-0-reps" {
		t.Fatalf("reps name = %q, want form-0-reps", got)
	}
}

func TestPreconditionFailuresLeaveDocumentUntouched(t *testing.T) {
	fixture := loadFixture(t)
	tests := []struct {
		name    string
		markup  string
		wantErr error
	}{
		{
			name:    "missing formset",
			markup:  strings.Replace(fixture, `id="exercise-formset"`, `id="other"`, 1),
			wantErr: formset.ErrFormsetNotFound,
		},
		{
			name:    "missing counter",
			markup:  strings.Replace(fixture, `id="id_form-TOTAL_FORMS"`, `id="total"`, 1),
			wantErr: formset.ErrTotalFormsNotFound,
		},
		{
			name:    "missing template",
			markup:  strings.Replace(fixture, `class="exercise-form"`, `class="exercise"`, 1),
			wantErr: formset.ErrNoTemplate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, logs := newController(t, tt.markup)
			before := ctrl.Document().String()

			entry, err := ctrl.AddExercise()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AddExercise() error = %v, want %v", err, tt.wantErr)
			}
			if entry != nil {
				t.Fatalf("AddExercise() returned an entry on failure")
			}
			if after := ctrl.Document().String(); after != before {
				t.Fatalf("document mutated:\n%s", cmp.Diff(before, after))
			}
			if !strings.Contains(logs.String(), "level=ERROR") {
				t.Fatalf("expected error diagnostic, got:\n%s", logs.String())
			}
		})
	}
}

func TestOperationsAreIdempotent(t *testing.T) {
	ctrl, _ := newController(t, loadFixture(t))
	mustAdd(t, ctrl)
	mustAdd(t, ctrl)

	ctrl.UpdateExerciseNumbers()
	first := ctrl.Document().String()
	ctrl.UpdateExerciseNumbers()
	if second := ctrl.Document().String(); second != first {
		t.Fatalf("UpdateExerciseNumbers not idempotent:\n%s", cmp.Diff(first, second))
	}

	ctrl.ReindexForms()
	first = ctrl.Document().String()
	ctrl.ReindexForms()
	if second := ctrl.Document().String(); second != first {
		t.Fatalf("ReindexForms not idempotent:\n%s", cmp.Diff(first, second))
	}
}

func TestInitRenumbersTitles(t *testing.T) {
	markup := strings.Replace(loadFixture(t), "<h4>Exercise 1</h4>", "<h4>Exercise 9</h4>", 1)
	ctrl, _ := newController(t, markup)

	ctrl.Init()

	if diff := cmp.Diff([]string{"Exercise 1"}, titles(ctrl)); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
}

func TestInvariantsHoldAcrossRandomGestures(t *testing.T) {
	ctrl, _ := newController(t, loadFixture(t))
	rng := rand.New(rand.NewSource(7))

	for step := 0; step < 200; step++ {
		if rng.Intn(3) > 0 {
			mustAdd(t, ctrl)
		} else {
			trigger, err := ctrl.RemoveTrigger(rng.Intn(ctrl.Count()))
			if err != nil {
				t.Fatalf("step %d: RemoveTrigger: %v", step, err)
			}
			if _, err := ctrl.RemoveExercise(trigger); err != nil {
				t.Fatalf("step %d: RemoveExercise: %v", step, err)
			}
		}
		if err := ctrl.Check(); err != nil {
			t.Fatalf("step %d: invariants violated:\n%v", step, err)
		}
		if ctrl.Count() < 1 {
			t.Fatalf("step %d: formset is empty", step)
		}
	}
}

func TestCounterDriftUsesEntryCount(t *testing.T) {
	markup := strings.Replace(loadFixture(t),
		`name="form-TOTAL_FORMS" value="1"`, `name="form-TOTAL_FORMS" value="7"`, 1)
	ctrl, logs := newController(t, markup)

	entry := mustAdd(t, ctrl)

	if index, _ := entry.Attr("data-form-index"); index != "1" {
		t.Fatalf("new entry index = %q, want 1", index)
	}
	mustCheck(t, ctrl)
	if !strings.Contains(logs.String(), "out of sync") {
		t.Fatalf("expected drift warning, got:\n%s", logs.String())
	}
}

func TestEnforceLimits(t *testing.T) {
	markup := loadFixture(t)
	markup = strings.Replace(markup, `value="1000" id="id_form-MAX_NUM_FORMS"`, `value="2" id="id_form-MAX_NUM_FORMS"`, 1)
	markup = strings.Replace(markup, `value="0" id="id_form-MIN_NUM_FORMS"`, `value="2" id="id_form-MIN_NUM_FORMS"`, 1)

	contract := formset.DefaultContract()
	contract.EnforceLimits = true
	ctrl, _ := newController(t, markup, formset.WithContract(contract))

	mustAdd(t, ctrl)
	if _, err := ctrl.AddExercise(); !errors.Is(err, formset.ErrMaxForms) {
		t.Fatalf("AddExercise() beyond max error = %v, want ErrMaxForms", err)
	}

	trigger, _ := ctrl.RemoveTrigger(1)
	removed, err := ctrl.RemoveExercise(trigger)
	if err != nil || removed {
		t.Fatalf("RemoveExercise() at min = %v, %v; want false, nil", removed, err)
	}

	want := formset.Management{Total: 2, Initial: 0, Min: 2, Max: 2}
	if diff := cmp.Diff(want, ctrl.Management()); diff != "" {
		t.Fatalf("management mismatch (-want +got):\n%s", diff)
	}
}

func TestSetValue(t *testing.T) {
	ctrl, _ := newController(t, loadFixture(t))

	if err := ctrl.SetValue(0, "weight_unit", "Lbs"); err != nil {
		t.Fatalf("SetValue select: %v", err)
	}
	if err := ctrl.SetValue(0, "DELETE", "on"); err != nil {
		t.Fatalf("SetValue checkbox: %v", err)
	}
	if err := ctrl.SetValue(0, "weight_unit", "Stone"); err == nil {
		t.Fatalf("SetValue with unknown option succeeded")
	}
	if err := ctrl.SetValue(0, "tempo", "3-1-1"); !errors.Is(err, formset.ErrFieldNotFound) {
		t.Fatalf("SetValue unknown field error = %v, want ErrFieldNotFound", err)
	}
	if err := ctrl.SetValue(4, "name", "x"); !errors.Is(err, formset.ErrEntryNotFound) {
		t.Fatalf("SetValue unknown entry error = %v, want ErrEntryNotFound", err)
	}
	if err := ctrl.SetValue(-1, "name", "x"); !errors.Is(err, formset.ErrEntryNotFound) {
		t.Fatalf("SetValue(-1) error = %v, want ErrEntryNotFound", err)
	}
	if _, err := ctrl.Values(-1); !errors.Is(err, formset.ErrEntryNotFound) {
		t.Fatalf("Values(-1) error = %v, want ErrEntryNotFound", err)
	}
	if _, err := ctrl.RemoveTrigger(-1); !errors.Is(err, formset.ErrEntryNotFound) {
		t.Fatalf("RemoveTrigger(-1) error = %v, want ErrEntryNotFound", err)
	}

	values, _ := ctrl.Values(0)
	got := map[string]string{}
	for _, value := range values {
		if value.Field != "" {
			got[value.Field] = value.Value
		}
	}
	if got["weight_unit"] != "Lbs" || got["DELETE"] != "on" {
		t.Fatalf("values = %v", got)
	}
}
