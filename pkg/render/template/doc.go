// Package template defines the engine interface the markup renderers depend
// on. The pongo2 implementation lives in the gotemplate subpackage.
package template
