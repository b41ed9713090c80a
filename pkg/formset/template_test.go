package formset_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formset/pkg/formset"
)

func TestCreateExerciseFormDoesNotMutateTemplate(t *testing.T) {
	ctrl, _ := newController(t, loadFixture(t))
	tpl, err := formset.TemplateFromEntry(ctrl.Entries().First(), ctrl.Contract())
	if err != nil {
		t.Fatalf("TemplateFromEntry: %v", err)
	}
	before, err := tpl.HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}

	third := goquery.NewDocumentFromNode(formset.CreateExerciseForm(3, tpl))
	fifth := goquery.NewDocumentFromNode(formset.CreateExerciseForm(5, tpl))

	after, _ := tpl.HTML()
	if after != before {
		t.Fatalf("template mutated:\n%s", cmp.Diff(before, after))
	}

	if index, _ := third.Selection.Attr("data-form-index"); index != "3" {
		t.Fatalf("index = %q, want 3", index)
	}
	if got := third.Find("h4").Text(); got != "Exercise 4" {
		t.Fatalf("title = %q, want Exercise 4", got)
	}
	if name, _ := fifth.Find("select").Attr("name"); name != "form-5-weight_unit" {
		t.Fatalf("select name = %q, want form-5-weight_unit", name)
	}
	if id, _ := third.Find("input").First().Attr("id"); id != "id_form-3-name" {
		t.Fatalf("input id = %q, want id_form-3-name", id)
	}
	if onclick, ok := third.Find(".btn-remove-exercise").Attr("onclick"); ok {
		t.Fatalf("remove control kept inline handler %q", onclick)
	}

	if source, _ := ctrl.Entries().First().Find("input").First().Attr("value"); source != "Bench press" {
		t.Fatalf("source entry modified, value = %q", source)
	}
}

func TestTemplateFromHTML(t *testing.T) {
	markup := `<section>
  <div class="exercise-form" data-form-index="4">
    <div class="exercise-header"><h4>Exercise 5</h4></div>
    <label for="id_form-4-name">Name</label>
    <input name="form-4-name" id="id_form-4-name" value="stale">
    <div class="error-messages"><p>stale</p></div>
  </div>
</section>`

	tpl, err := formset.TemplateFromHTML(markup, formset.DefaultContract())
	if err != nil {
		t.Fatalf("TemplateFromHTML: %v", err)
	}
	out, err := tpl.HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}

	for _, want := range []string{
		`data-form-index="0"`,
		`name="form-0-name"`,
		`for="id_form-0-name"`,
		`value=""`,
		`class="btn-remove-exercise"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("template markup missing %s:\n%s", want, out)
		}
	}
	if strings.Contains(out, "error-messages") {
		t.Errorf("template kept error messages:\n%s", out)
	}
}

func TestTemplateFromHTMLWithoutEntry(t *testing.T) {
	if _, err := formset.TemplateFromHTML(`<div class="other"></div>`, formset.DefaultContract()); err == nil {
		t.Fatalf("expected error for markup without an entry")
	}
}

func TestAddExerciseWithExplicitTemplate(t *testing.T) {
	tpl, err := formset.TemplateFromHTML(`<div class="exercise-form">
  <div class="exercise-header"><h4></h4></div>
  <input type="text" name="form-0-name" id="id_form-0-name">
  <input type="number" name="form-0-sets" id="id_form-0-sets">
</div>`, formset.DefaultContract())
	if err != nil {
		t.Fatalf("TemplateFromHTML: %v", err)
	}
	ctrl, _ := newController(t, loadFixture(t), formset.WithTemplate(tpl))

	entry := mustAdd(t, ctrl)

	if diff := cmp.Diff([]string{"form-1-name", "form-1-sets"}, attrs(entry.Find("input"), "name")); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	mustCheck(t, ctrl)
}
