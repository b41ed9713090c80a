package template

// TemplateRenderer executes a named template against a view map. Names are
// given without the template extension.
type TemplateRenderer interface {
	RenderTemplate(name string, data map[string]any) (string, error)
}
