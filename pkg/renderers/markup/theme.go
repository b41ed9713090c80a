package markup

import (
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// Theme token keys read by the templates. Tokens outside the formset
// namespace only reach the page as CSS variables.
const (
	ThemeFieldClass   = "formset.field"
	ThemeLabelClass   = "formset.label"
	ThemeControlClass = "formset.control"
	ThemeHelpClass    = "formset.help"
	// ThemeStylesheet is the asset key linked from the page head.
	ThemeStylesheet = "formset.stylesheet"
)

var themeDefaults = map[string]string{
	ThemeFieldClass:   "form-field",
	ThemeLabelClass:   "",
	ThemeControlClass: "",
	ThemeHelpClass:    "form-help",
}

func themeView(cfg *theme.RendererConfig) map[string]any {
	view := map[string]any{
		"name":          "",
		"variant":       "",
		"field_class":   themeDefaults[ThemeFieldClass],
		"label_class":   themeDefaults[ThemeLabelClass],
		"control_class": themeDefaults[ThemeControlClass],
		"help_class":    themeDefaults[ThemeHelpClass],
		"stylesheet":    "",
		"css_vars":      "",
	}
	if cfg == nil {
		return view
	}
	view["name"] = cfg.Theme
	view["variant"] = cfg.Variant
	for key, slot := range map[string]string{
		ThemeFieldClass:   "field_class",
		ThemeLabelClass:   "label_class",
		ThemeControlClass: "control_class",
		ThemeHelpClass:    "help_class",
	} {
		if value, ok := cfg.Tokens[key]; ok {
			view[slot] = strings.TrimSpace(value)
		}
	}
	if cfg.AssetURL != nil {
		view["stylesheet"] = cfg.AssetURL(ThemeStylesheet)
	}
	view["css_vars"] = cssVars(cfg.CSSVars)
	return view
}

// cssVars renders the variables as a :root rule. Names that are not custom
// properties and values that could close the rule are skipped.
func cssVars(vars map[string]string) string {
	names := make([]string, 0, len(vars))
	for name, value := range vars {
		if !strings.HasPrefix(name, "--") || !attrNamePattern.MatchString(strings.TrimPrefix(name, "--")) {
			continue
		}
		if strings.ContainsAny(value, "{}<>;") {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString(":root {")
	for _, name := range names {
		b.WriteString(" ")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(vars[name]))
		b.WriteString(";")
	}
	b.WriteString(" }")
	return b.String()
}

// joinClasses merges class lists, dropping blanks and repeats.
func joinClasses(lists ...string) string {
	var out []string
	seen := map[string]bool{}
	for _, list := range lists {
		for _, class := range strings.Fields(list) {
			if seen[class] {
				continue
			}
			seen[class] = true
			out = append(out, class)
		}
	}
	return strings.Join(out, " ")
}
