package orchestrator

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"strings"

	theme "github.com/goliatone/go-theme"
	"gopkg.in/yaml.v3"
)

// WithThemeSelector resolves a theme for every request that does not carry
// RenderOptions.Theme.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(o *Orchestrator) {
		o.themes = selector
	}
}

// WithTheme sets the theme and variant selected when a request names none.
func WithTheme(name, variant string) Option {
	return func(o *Orchestrator) {
		o.themeName = strings.TrimSpace(name)
		o.themeVariant = strings.TrimSpace(variant)
	}
}

func (o *Orchestrator) resolveTheme(req Request) (*theme.RendererConfig, error) {
	name := strings.TrimSpace(req.ThemeName)
	if name == "" {
		name = o.themeName
	}
	variant := strings.TrimSpace(req.ThemeVariant)
	if variant == "" {
		variant = o.themeVariant
	}
	selection, err := o.themes.Select(name, variant)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: select theme: %w", err)
	}
	if selection == nil {
		return nil, fmt.Errorf("orchestrator: select theme %q: no selection", name)
	}
	return RendererConfig(selection), nil
}

// RendererConfig flattens a selection into what renderers read. Variant
// tokens, templates and asset files override the base manifest. Tokens
// without a dot also become CSS variables, "brand" as "--brand".
func RendererConfig(selection *theme.Selection) *theme.RendererConfig {
	cfg := &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Tokens:   map[string]string{},
		Partials: map[string]string{},
		CSSVars:  map[string]string{},
	}
	manifest := selection.Manifest
	if manifest == nil {
		cfg.AssetURL = func(string) string { return "" }
		return cfg
	}

	maps.Copy(cfg.Tokens, manifest.Tokens)
	maps.Copy(cfg.Partials, manifest.Templates)
	files := maps.Clone(manifest.Assets.Files)
	if files == nil {
		files = map[string]string{}
	}
	prefix := manifest.Assets.Prefix
	if variant, ok := manifest.Variants[selection.Variant]; ok {
		maps.Copy(cfg.Tokens, variant.Tokens)
		maps.Copy(cfg.Partials, variant.Templates)
		maps.Copy(files, variant.Assets.Files)
		if variant.Assets.Prefix != "" {
			prefix = variant.Assets.Prefix
		}
	}
	for key, value := range cfg.Tokens {
		if !strings.Contains(key, ".") {
			cfg.CSSVars["--"+key] = value
		}
	}
	cfg.AssetURL = func(key string) string {
		file, ok := files[key]
		if !ok || file == "" {
			return ""
		}
		if strings.HasPrefix(file, "/") || strings.Contains(file, "://") || prefix == "" {
			return file
		}
		return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(file, "/")
	}
	return cfg
}

// ManifestSelector selects among a fixed set of theme manifests. An empty
// theme name selects the first manifest; an empty variant selects the base.
type ManifestSelector struct {
	order     []string
	manifests map[string]*theme.Manifest
}

var _ theme.ThemeSelector = (*ManifestSelector)(nil)

// NewManifestSelector registers manifests by name. Names must be unique.
func NewManifestSelector(manifests ...*theme.Manifest) (*ManifestSelector, error) {
	s := &ManifestSelector{manifests: map[string]*theme.Manifest{}}
	for _, manifest := range manifests {
		if manifest == nil {
			continue
		}
		name := strings.TrimSpace(manifest.Name)
		if name == "" {
			return nil, errors.New("theme selector: manifest name is required")
		}
		if _, exists := s.manifests[name]; exists {
			return nil, fmt.Errorf("theme selector: duplicate theme %q", name)
		}
		s.order = append(s.order, name)
		s.manifests[name] = manifest
	}
	if len(s.order) == 0 {
		return nil, errors.New("theme selector: no manifests")
	}
	return s, nil
}

// Select implements theme.ThemeSelector.
func (s *ManifestSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if name == "" {
		name = s.order[0]
	}
	manifest, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("theme selector: theme %q not found", name)
	}
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("theme selector: theme %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}

// LoadThemeManifest reads a YAML or JSON theme manifest from fsys.
func LoadThemeManifest(fsys fs.FS, path string) (*theme.Manifest, error) {
	if fsys == nil {
		return nil, errors.New("theme manifest: filesystem is nil")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("theme manifest: read %s: %w", path, err)
	}
	var manifest theme.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("theme manifest: parse %s: %w", path, err)
	}
	if strings.TrimSpace(manifest.Name) == "" {
		return nil, fmt.Errorf("theme manifest: %s: name is required", path)
	}
	return &manifest, nil
}
