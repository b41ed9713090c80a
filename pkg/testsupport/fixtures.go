package testsupport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formset/pkg/formset"
	"github.com/goliatone/go-formset/pkg/model"
)

// MustLoadFormset loads a YAML formset fixture.
func MustLoadFormset(t *testing.T, path string) model.Formset {
	t.Helper()

	form, err := LoadFormset(path)
	if err != nil {
		t.Fatalf("load formset: %v", err)
	}
	return form
}

// LoadFormset reads a YAML (or JSON) formset fixture, returning an error for
// callers managing setup outside of *testing.T.
func LoadFormset(path string) (model.Formset, error) {
	if path == "" {
		return model.Formset{}, errors.New("testsupport: formset path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Formset{}, fmt.Errorf("testsupport: read formset: %w", err)
	}
	var out model.Formset
	if err := yaml.Unmarshal(data, &out); err != nil {
		return model.Formset{}, fmt.Errorf("testsupport: unmarshal formset: %w", err)
	}
	return out, nil
}

// MustController parses markup and builds a controller over it.
func MustController(t *testing.T, markup []byte, options ...formset.Option) *formset.Controller {
	t.Helper()

	doc, err := formset.Parse(bytes.NewReader(markup))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	ctrl, err := formset.New(doc, options...)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return ctrl
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
