package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formset/pkg/formset"
	"github.com/goliatone/go-formset/pkg/orchestrator"
	"github.com/goliatone/go-formset/pkg/prompt"
	"github.com/goliatone/go-formset/pkg/render"
	"github.com/goliatone/go-formset/pkg/renderers/markup"
	"github.com/goliatone/go-formset/pkg/schema"
)

type renderFlags struct {
	fields    string
	openapi   string
	component string
	action    string
	method    string
	entries   int
	fragment  bool
	entry     bool
	preset    string
	theme     string
	variant   string
	timeout   time.Duration
}

func newRenderCommand(a *app) *cobra.Command {
	var flags renderFlags
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a formset page from a field definition",
		Long: `Render an HTML page holding the management form, one entry per value
row and the add control.

Examples:
  # Fields from a YAML definition
  formset render --fields exercise.yaml -o page.html

  # Fields from an OpenAPI component, fetched over HTTP
  formset render --openapi https://api.example.com/openapi.yaml --schema Exercise

  # The blank entry markup used as a template
  formset render --fields exercise.yaml --entry

  # Themed page using the dark variant of a manifest
  formset render --fields exercise.yaml --theme acme.yaml --theme-variant dark`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.render(cmd.Context(), flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.fields, "fields", "", "YAML or JSON formset definition")
	f.StringVar(&flags.openapi, "openapi", "", "OpenAPI document path or URL")
	f.StringVar(&flags.component, "schema", "", "component schema holding the entry fields")
	f.StringVar(&flags.action, "action", "", "form action URL")
	f.StringVar(&flags.method, "method", "post", "form method")
	f.IntVar(&flags.entries, "entries", 1, "minimum number of entries to render")
	f.BoolVar(&flags.fragment, "fragment", false, "omit the surrounding HTML document")
	f.BoolVar(&flags.entry, "entry", false, "render the blank entry template instead of the page")
	f.StringVar(&flags.preset, "preset", "", "YAML or JSON overrides applied to the loaded fields")
	f.StringVar(&flags.theme, "theme", "", "YAML or JSON theme manifest")
	f.StringVar(&flags.variant, "theme-variant", "", "theme variant to apply")
	f.DurationVar(&flags.timeout, "timeout", 10*time.Second, "timeout for remote OpenAPI documents")
	cmd.MarkFlagsMutuallyExclusive("fields", "openapi")
	return cmd
}

func (a *app) render(ctx context.Context, flags renderFlags) error {
	options := []orchestrator.Option{
		orchestrator.WithContract(a.contract),
		orchestrator.WithLogger(a.logger),
		orchestrator.WithLoader(schema.NewLoader(schema.WithHTTPClient(&http.Client{}, flags.timeout))),
	}
	if flags.preset != "" {
		preset, err := orchestrator.NewPresetTransformerFromFS(os.DirFS(filepath.Dir(flags.preset)), filepath.Base(flags.preset))
		if err != nil {
			return err
		}
		options = append(options, orchestrator.WithTransformers(preset))
	}
	if flags.theme != "" {
		manifest, err := orchestrator.LoadThemeManifest(os.DirFS(filepath.Dir(flags.theme)), filepath.Base(flags.theme))
		if err != nil {
			return err
		}
		selector, err := orchestrator.NewManifestSelector(manifest)
		if err != nil {
			return err
		}
		options = append(options, orchestrator.WithThemeSelector(selector), orchestrator.WithTheme(manifest.Name, flags.variant))
	} else if flags.variant != "" {
		return errors.New("--theme-variant requires --theme")
	}
	orch, err := orchestrator.New(options...)
	if err != nil {
		return err
	}

	req := orchestrator.Request{
		MinEntries: flags.entries,
		Renderer:   markup.PageName,
		RenderOptions: render.Options{
			Action:   flags.action,
			Method:   flags.method,
			Fragment: flags.fragment,
		},
	}
	if flags.entry {
		req.Renderer = markup.EntryName
	}
	switch {
	case flags.fields != "":
		req.Files = os.DirFS(filepath.Dir(flags.fields))
		req.Definition = filepath.Base(flags.fields)
	case flags.openapi != "":
		src, err := schema.ParseSource(flags.openapi)
		if err != nil {
			return err
		}
		req.OpenAPI = &src
		req.Component = flags.component
	default:
		return errors.New("one of --fields or --openapi is required")
	}

	out, err := orch.Generate(ctx, req)
	if err != nil {
		return err
	}
	return a.write(out)
}

func newAddCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Append a blank exercise to the document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.mutate(cmd.Context(), func(ctx context.Context, ctrl *formset.Controller) error {
				return ctrl.Dispatch(ctx, formset.Event{Action: formset.ActionAdd})
			})
		},
	}
}

func newRemoveCommand(a *app) *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove the exercise at --index (the last one is kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.mutate(cmd.Context(), func(ctx context.Context, ctrl *formset.Controller) error {
				// Same decoding as a no-script submission of the remove control.
				ev, _, err := ctrl.EventFromValues(url.Values{
					formset.ActionField: {string(formset.ActionRemove) + "-" + strconv.Itoa(index)},
				})
				if err != nil {
					return err
				}
				return ctrl.Dispatch(ctx, ev)
			})
		},
	}
	cmd.Flags().IntVar(&index, "index", -1, "zero-based index of the exercise to remove")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}

func newReindexCommand(a *app) *cobra.Command {
	var bind bool
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Renumber titles and rewrite field indices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.mutate(cmd.Context(), func(_ context.Context, ctrl *formset.Controller) error {
				ctrl.Init()
				ctrl.ReindexForms()
				if bind {
					a.logger.Info("controls bound", "count", ctrl.Bind())
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&bind, "bind", false, "replace inline onclick handlers with data-formset-action markers")
	return cmd
}

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify counter, indices and titles of the document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := a.loadController()
			if err != nil {
				return err
			}
			if err := ctrl.Check(); err != nil {
				return fmt.Errorf("document is inconsistent:\n%w", err)
			}
			m := ctrl.Management()
			a.logger.Debug("management form", "total", m.Total, "initial", m.Initial, "min", m.Min, "max", m.Max)
			_, err = fmt.Fprintf(a.stdout, "ok: %d exercise(s)\n", ctrl.Count())
			return err
		},
	}
}

func newErrorsCommand(a *app) *cobra.Command {
	var payload string
	var clearFirst bool
	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Place server-side validation errors in the document",
		Long: `Place validation errors next to the fields they belong to. The payload
is a JSON object keyed by submitted name ("form-1-name", "form-1",
"__all__") or a JSON list with one object per entry keyed by field name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			errs, err := readPayload(payload, a.contract.Prefix)
			if err != nil {
				return err
			}
			return a.mutate(cmd.Context(), func(_ context.Context, ctrl *formset.Controller) error {
				if clearFirst {
					ctrl.ClearErrors()
				}
				placed, err := ctrl.ApplyErrors(errs)
				if err != nil {
					return err
				}
				a.logger.Info("errors placed", "blocks", placed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&payload, "payload", "", "JSON error payload file")
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "remove existing error messages first")
	_ = cmd.MarkFlagRequired("payload")
	return cmd
}

func readPayload(path, prefix string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	var byName map[string][]string
	if err := json.Unmarshal(data, &byName); err == nil {
		return byName, nil
	}
	var perEntry []map[string][]string
	if err := json.Unmarshal(data, &perEntry); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return formset.ErrorsFromList(prefix, perEntry), nil
}

func newEditCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit the document interactively",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			if a.input == stdio {
				return errors.New("edit reads the terminal; pass the document with --input")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.mutate(cmd.Context(), func(ctx context.Context, ctrl *formset.Controller) error {
				session, err := prompt.NewSession(ctrl, prompt.NewSurveyDriver(), prompt.WithLogger(a.logger))
				if err != nil {
					return err
				}
				return session.Run(ctx)
			})
		},
	}
}
