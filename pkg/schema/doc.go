// Package schema derives formset field definitions from external documents:
// OpenAPI 3 component schemas (via kin-openapi) and plain YAML or JSON field
// lists.
package schema
