package render

import (
	"context"

	"github.com/goliatone/go-formset/pkg/model"
)

// Renderer converts a Formset into markup.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form model.Formset, options Options) ([]byte, error)
}
