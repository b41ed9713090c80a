package formset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formset/pkg/naming"
)

// Contract names the elements the surrounding markup must provide. The zero
// value is not usable; start from DefaultContract and override fields.
type Contract struct {
	// Prefix is the form-array prefix shared with the server ("form").
	Prefix string `json:"prefix" yaml:"prefix"`
	// FormsetID is the id of the container holding every entry.
	FormsetID string `json:"formsetId" yaml:"formsetId"`
	// TotalFormsID is the id of the hidden TOTAL_FORMS counter. Empty derives
	// it from Prefix ("id_form-TOTAL_FORMS").
	TotalFormsID string `json:"totalFormsId" yaml:"totalFormsId"`
	EntryClass   string `json:"entryClass" yaml:"entryClass"`
	HeaderClass  string `json:"headerClass" yaml:"headerClass"`
	// TitleSelector locates the element showing "Exercise N" inside the
	// header (or the entry when the header does not contain one).
	TitleSelector string `json:"titleSelector" yaml:"titleSelector"`
	RemoveClass   string `json:"removeClass" yaml:"removeClass"`
	AddClass      string `json:"addClass" yaml:"addClass"`
	ErrorClass    string `json:"errorClass" yaml:"errorClass"`
	IndexAttr     string `json:"indexAttr" yaml:"indexAttr"`
	// TitleFormat receives the 1-based entry number.
	TitleFormat string `json:"titleFormat" yaml:"titleFormat"`
	RemoveLabel string `json:"removeLabel" yaml:"removeLabel"`
	// EnforceLimits makes add/remove honour MAX_NUM_FORMS/MIN_NUM_FORMS when
	// the management form provides them.
	EnforceLimits bool `json:"enforceLimits" yaml:"enforceLimits"`
}

// DefaultContract returns the contract used by the exercise formset markup.
func DefaultContract() Contract {
	return Contract{
		Prefix:        naming.DefaultPrefix,
		FormsetID:     "exercise-formset",
		EntryClass:    "exercise-form",
		HeaderClass:   "exercise-header",
		TitleSelector: "h4",
		RemoveClass:   "btn-remove-exercise",
		AddClass:      "btn-add-exercise",
		ErrorClass:    "error-messages",
		IndexAttr:     "data-form-index",
		TitleFormat:   "Exercise %d",
		RemoveLabel:   "Remove",
	}
}

// CounterID returns the id of the TOTAL_FORMS element.
func (c Contract) CounterID() string {
	if id := strings.TrimSpace(c.TotalFormsID); id != "" {
		return id
	}
	return naming.ManagementID(c.Prefix, naming.TotalForms)
}

// Title formats the header text for the entry at zero-based position.
func (c Contract) Title(position int) string {
	return fmt.Sprintf(c.TitleFormat, position+1)
}

// Validate reports missing contract values.
func (c Contract) Validate() error {
	var errs []error
	required := []struct {
		name  string
		value string
	}{
		{"formsetId", c.FormsetID},
		{"entryClass", c.EntryClass},
		{"headerClass", c.HeaderClass},
		{"titleSelector", c.TitleSelector},
		{"removeClass", c.RemoveClass},
		{"errorClass", c.ErrorClass},
		{"indexAttr", c.IndexAttr},
		{"titleFormat", c.TitleFormat},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			errs = append(errs, fmt.Errorf("formset: contract %s is required", field.name))
		}
	}
	if c.TitleFormat != "" && !singleIntVerb(c.TitleFormat) {
		errs = append(errs, fmt.Errorf("formset: contract titleFormat %q must hold exactly one %%d verb", c.TitleFormat))
	}
	return errors.Join(errs...)
}

// singleIntVerb reports whether format holds exactly one formatting verb
// and that verb is d, optionally with flags and width ("%02d"). "%%" is a
// literal percent sign.
func singleIntVerb(format string) bool {
	verbs := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			i++
			continue
		}
		j := i + 1
		for j < len(format) && strings.IndexByte("+-# 0123456789", format[j]) >= 0 {
			j++
		}
		if j >= len(format) || format[j] != 'd' {
			return false
		}
		verbs++
		i = j
	}
	return verbs == 1
}

func (c Contract) entrySelector() string  { return "." + c.EntryClass }
func (c Contract) headerSelector() string { return "." + c.HeaderClass }
func (c Contract) removeSelector() string { return "." + c.RemoveClass }
func (c Contract) errorSelector() string  { return "." + c.ErrorClass }

// LoadContract reads a JSON or YAML contract file. Keys missing from the
// file keep their DefaultContract value.
func LoadContract(fsys fs.FS, path string) (Contract, error) {
	contract := DefaultContract()
	if fsys == nil {
		return contract, errors.New("formset: contract filesystem is nil")
	}

	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return contract, fmt.Errorf("formset: read contract %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return contract, fmt.Errorf("formset: contract %s is empty", path)
	}

	if err := json.Unmarshal(data, &contract); err != nil {
		contract = DefaultContract()
		if yerr := yaml.Unmarshal(data, &contract); yerr != nil {
			return DefaultContract(), fmt.Errorf("formset: parse contract %s: invalid JSON or YAML", path)
		}
	}

	if err := contract.Validate(); err != nil {
		return contract, fmt.Errorf("formset: contract %s: %w", path, err)
	}
	return contract, nil
}
