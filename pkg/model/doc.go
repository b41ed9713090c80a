// Package model defines the field definitions renderers use to build formset
// markup. A Formset lists the fields every entry repeats, the initial values
// of each entry and any server-side errors to show. Values and errors are
// keyed the same way a browser submits them ("form-0-name"), so a rendered
// page can be fed straight back into formset.Controller.
package model
