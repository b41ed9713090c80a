package formset

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formset/pkg/naming"
)

const (
	managementMin = naming.MinNumForms
	managementMax = naming.MaxNumForms
)

// Management is the hidden management form submitted alongside the entries.
// Fields absent from the document are reported as -1.
type Management struct {
	Total   int
	Initial int
	Min     int
	Max     int
}

// Management reads the management form of the document.
func (c *Controller) Management() Management {
	read := func(field string) int {
		if value, ok := c.managementValue(field); ok {
			return value
		}
		return -1
	}
	return Management{
		Total:   read(naming.TotalForms),
		Initial: read(naming.InitialForms),
		Min:     read(naming.MinNumForms),
		Max:     read(naming.MaxNumForms),
	}
}

func (c *Controller) managementValue(field string) (int, bool) {
	id := naming.ManagementID(c.contract.Prefix, field)
	if field == naming.TotalForms {
		id = c.contract.CounterID()
	}
	element := findByID(c.doc.Selection(), id)
	if element.Length() == 0 {
		return 0, false
	}
	raw, _ := element.Attr("value")
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return value, true
}
