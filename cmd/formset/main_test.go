package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-formset/pkg/formset"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, logs, err := run(t, stdin, args...)
	if err != nil {
		t.Fatalf("formset %s: %v\n%s", strings.Join(args, " "), err, logs)
	}
	return out
}

func TestRenderThenGestures(t *testing.T) {
	page := mustRun(t, "", "render", "--fields", "testdata/exercise.yaml", "--entries", "2")
	if got := mustRun(t, page, "check"); got != "ok: 2 exercise(s)\n" {
		t.Fatalf("check = %q", got)
	}

	added := mustRun(t, page, "add")
	if got := mustRun(t, added, "check"); got != "ok: 3 exercise(s)\n" {
		t.Fatalf("check after add = %q", got)
	}
	if !strings.Contains(added, `name="form-2-weight_unit"`) {
		t.Fatalf("added entry missing:\n%s", added)
	}

	removed := mustRun(t, added, "remove", "--index", "0")
	if got := mustRun(t, removed, "check"); got != "ok: 2 exercise(s)\n" {
		t.Fatalf("check after remove = %q", got)
	}
	if strings.Contains(removed, "form-2-") {
		t.Fatalf("stale index left after remove:\n%s", removed)
	}
}

func TestRemoveKeepsLastExercise(t *testing.T) {
	page := mustRun(t, "", "render", "--fields", "testdata/exercise.yaml")
	out := mustRun(t, page, "remove", "--index", "0")
	if got := mustRun(t, out, "check"); got != "ok: 1 exercise(s)\n" {
		t.Fatalf("check = %q", got)
	}

	if _, _, err := run(t, page, "remove", "--index", "4"); err == nil {
		t.Fatalf("remove of a missing entry succeeded")
	}
	if _, _, err := run(t, page, "remove"); err == nil {
		t.Fatalf("remove without --index succeeded")
	}

	two := mustRun(t, page, "add")
	if _, _, err := run(t, two, "remove", "--index", "-1"); err == nil {
		t.Fatalf("remove --index -1 succeeded")
	}
}

func TestCheckReportsViolations(t *testing.T) {
	broken := `<input type="hidden" id="id_form-TOTAL_FORMS" name="form-TOTAL_FORMS" value="2">
<div id="exercise-formset"><div class="exercise-form" data-form-index="3"><h4>Exercise 9</h4></div></div>`

	_, _, err := run(t, broken, "check")
	if err == nil {
		t.Fatalf("check accepted an inconsistent document")
	}
	for _, want := range []string{"counter is 2", "data-form-index", "Exercise 9"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("check error missing %q:\n%v", want, err)
		}
	}

	fixed := mustRun(t, broken, "reindex")
	doc := formset.MustParseString(fixed)
	if got := doc.Find("h4").Text(); got != "Exercise 1" {
		t.Fatalf("reindexed title = %q", got)
	}
}

func TestReindexBind(t *testing.T) {
	page := `<input type="hidden" id="id_form-TOTAL_FORMS" name="form-TOTAL_FORMS" value="1">
<div id="exercise-formset"><div class="exercise-form" data-form-index="0">
<div class="exercise-header"><h4>Exercise 1</h4><button class="btn-remove-exercise" onclick="removeExercise(this)">Remove</button></div>
<input name="form-0-name" id="id_form-0-name"></div></div>
<button class="btn-add-exercise" onclick="addExercise()">Add</button>`

	out := mustRun(t, page, "reindex", "--bind")
	if strings.Contains(out, "onclick") {
		t.Fatalf("inline handlers left:\n%s", out)
	}
	if !strings.Contains(out, `data-formset-action="add"`) {
		t.Fatalf("add control not bound:\n%s", out)
	}
}

func TestErrorsCommand(t *testing.T) {
	page := mustRun(t, "", "render", "--fields", "testdata/exercise.yaml", "--entries", "2")
	out := mustRun(t, page, "errors", "--payload", "testdata/errors.json")

	doc := formset.MustParseString(out)
	if got := doc.Find(`input[name="form-0-name"]`).Next().Text(); got != "This field is required." {
		t.Fatalf("field error = %q", got)
	}
	if !strings.Contains(out, "Duplicate exercise.") {
		t.Fatalf("entry error missing:\n%s", out)
	}

	cleared := mustRun(t, out, "errors", "--clear", "--payload", "testdata/errors.json")
	if n := strings.Count(cleared, "This field is required."); n != 1 {
		t.Fatalf("field error rendered %d times after --clear", n)
	}
}

func TestRenderEntryAndOpenAPI(t *testing.T) {
	entry := mustRun(t, "", "render", "--fields", "testdata/exercise.yaml", "--entry")
	if strings.Contains(entry, "<form") || !strings.Contains(entry, `data-form-index="0"`) {
		t.Fatalf("entry markup = %s", entry)
	}
	if _, err := formset.TemplateFromHTML(entry, formset.DefaultContract()); err != nil {
		t.Fatalf("TemplateFromHTML: %v", err)
	}

	page := mustRun(t, "", "render", "--openapi", "testdata/openapi.yaml", "--schema", "Set", "--fragment")
	if !strings.Contains(page, `name="form-0-reps"`) || !strings.Contains(page, `min="1"`) {
		t.Fatalf("openapi page = %s", page)
	}
	if got := mustRun(t, page, "check"); got != "ok: 1 exercise(s)\n" {
		t.Fatalf("check = %q", got)
	}
}

func TestRenderPreset(t *testing.T) {
	page := mustRun(t, "", "render", "--fields", "testdata/exercise.yaml", "--preset", "testdata/preset.yaml")
	for _, want := range []string{"Pull day", ">Movement</label>", `<option value="lb" selected>`} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q:\n%s", want, page)
		}
	}

	if _, _, err := run(t, "", "render", "--fields", "testdata/exercise.yaml", "--preset", "testdata/missing.yaml"); err == nil {
		t.Fatal("expected missing preset error")
	}
}

func TestRenderTheme(t *testing.T) {
	page := mustRun(t, "", "render", "--fields", "testdata/exercise.yaml", "--theme", "testdata/theme.yaml", "--theme-variant", "dark")
	for _, want := range []string{
		`<link rel="stylesheet" href="/static/acme/formset.css">`,
		`--brand: #161616;`,
		`<div class="field">`,
		`class="input"`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q:\n%s", want, page)
		}
	}
	if got := mustRun(t, mustRun(t, page, "add"), "check"); got != "ok: 2 exercise(s)\n" {
		t.Fatalf("check = %q", got)
	}

	for name, args := range map[string][]string{
		"unknown variant": {"--theme", "testdata/theme.yaml", "--theme-variant", "light"},
		"variant only":    {"--theme-variant", "dark"},
		"missing file":    {"--theme", "testdata/missing.yaml"},
	} {
		if _, _, err := run(t, "", append([]string{"render", "--fields", "testdata/exercise.yaml"}, args...)...); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCustomContract(t *testing.T) {
	page := mustRun(t, "", "--contract", "testdata/contract.yaml", "render", "--fields", "testdata/exercise.yaml")
	if !strings.Contains(page, `id="set-list"`) || !strings.Contains(page, `name="sets-0-name"`) {
		t.Fatalf("contract not applied:\n%s", page)
	}
	added := mustRun(t, page, "--contract", "testdata/contract.yaml", "add")
	if got := mustRun(t, added, "--contract", "testdata/contract.yaml", "check"); got != "ok: 2 exercise(s)\n" {
		t.Fatalf("check = %q", got)
	}
	if !strings.Contains(added, "Set 2") {
		t.Fatalf("title format not applied:\n%s", added)
	}
}

func TestFlagValidation(t *testing.T) {
	tests := map[string][]string{
		"no definition":  {"render"},
		"both sources":   {"render", "--fields", "testdata/exercise.yaml", "--openapi", "testdata/openapi.yaml"},
		"bad log level":  {"--log-level", "loud", "check"},
		"write no input": {"--write", "add"},
		"edit no input":  {"edit"},
		"no payload":     {"errors"},
		"missing schema": {"render", "--openapi", "testdata/openapi.yaml", "--schema", "Workout"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, _, err := run(t, "", args...); err == nil {
				t.Fatalf("formset %s succeeded", strings.Join(args, " "))
			}
		})
	}
}
