package formset_test

import (
	"os"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formset/pkg/formset"
)

func TestLoadContractYAML(t *testing.T) {
	contract, err := formset.LoadContract(os.DirFS("testdata"), "contract.yaml")
	if err != nil {
		t.Fatalf("LoadContract: %v", err)
	}

	want := formset.DefaultContract()
	want.Prefix = "sets"
	want.FormsetID = "set-formset"
	want.EntryClass = "set-row"
	want.TitleFormat = "Set %d"
	want.EnforceLimits = true
	if diff := cmp.Diff(want, contract); diff != "" {
		t.Fatalf("contract mismatch (-want +got):\n%s", diff)
	}
	if got := contract.CounterID(); got != "id_sets-TOTAL_FORMS" {
		t.Fatalf("CounterID() = %q, want id_sets-TOTAL_FORMS", got)
	}
	if got := contract.Title(2); got != "Set 3" {
		t.Fatalf("Title(2) = %q, want Set 3", got)
	}
}

func TestLoadContractJSONAndFailures(t *testing.T) {
	fsys := fstest.MapFS{
		"contract.json": {Data: []byte(`{"removeLabel": "Delete", "totalFormsId": "total"}`)},
		"empty.yaml":    {Data: []byte("  \n")},
		"broken.yaml":   {Data: []byte("prefix: [unterminated")},
		"invalid.yaml":  {Data: []byte("titleFormat: Exercise")},
	}

	contract, err := formset.LoadContract(fsys, "contract.json")
	if err != nil {
		t.Fatalf("LoadContract(json): %v", err)
	}
	if contract.RemoveLabel != "Delete" || contract.CounterID() != "total" {
		t.Fatalf("json contract = %+v", contract)
	}

	for _, name := range []string{"empty.yaml", "broken.yaml", "invalid.yaml", "missing.yaml"} {
		if _, err := formset.LoadContract(fsys, name); err == nil {
			t.Errorf("LoadContract(%s) succeeded, want error", name)
		}
	}
}

func TestNewRejectsInvalidContract(t *testing.T) {
	doc := formset.MustParseString("<div></div>")
	contract := formset.DefaultContract()
	contract.EntryClass = ""

	_, err := formset.New(doc, formset.WithContract(contract))
	if err == nil || !strings.Contains(err.Error(), "entryClass") {
		t.Fatalf("New() error = %v, want entryClass violation", err)
	}
}

func TestValidateTitleFormat(t *testing.T) {
	tests := []struct {
		format string
		ok     bool
	}{
		{format: "Exercise %d", ok: true},
		{format: "Set %02d", ok: true},
		{format: "100%% effort #%d", ok: true},
		{format: "%s %d", ok: false},
		{format: "Round %d of %d", ok: false},
		{format: "Exercise", ok: false},
		{format: "Exercise %v", ok: false},
		{format: "Exercise %", ok: false},
	}
	for _, tt := range tests {
		contract := formset.DefaultContract()
		contract.TitleFormat = tt.format
		if err := contract.Validate(); (err == nil) != tt.ok {
			t.Errorf("Validate(titleFormat %q) = %v, want ok %v", tt.format, err, tt.ok)
		}
	}
}

func TestCustomContract(t *testing.T) {
	markup := `<form>
<input type="hidden" name="sets-TOTAL_FORMS" id="id_sets-TOTAL_FORMS" value="1">
<ol id="set-list">
  <li class="set-row" data-index="0">
    <header class="set-header"><span class="title">Set 1</span><a class="drop">x</a></header>
    <input type="number" name="sets-0-reps" id="id_sets-0-reps" value="5">
  </li>
</ol>
</form>`
	contract := formset.DefaultContract()
	contract.Prefix = "sets"
	contract.FormsetID = "set-list"
	contract.EntryClass = "set-row"
	contract.HeaderClass = "set-header"
	contract.TitleSelector = ".title"
	contract.RemoveClass = "drop"
	contract.IndexAttr = "data-index"
	contract.TitleFormat = "Set %d"

	ctrl, _ := newController(t, markup, formset.WithContract(contract))
	entry := mustAdd(t, ctrl)

	if name, _ := entry.Find("input").Attr("name"); name != "sets-1-reps" {
		t.Fatalf("name = %q, want sets-1-reps", name)
	}
	if got := entry.Find(".title").Text(); got != "Set 2" {
		t.Fatalf("title = %q, want Set 2", got)
	}
	mustCheck(t, ctrl)
}
