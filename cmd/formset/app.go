package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formset/pkg/formset"
)

const stdio = "-"

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	input        string
	output       string
	inPlace      bool
	contractPath string
	logLevel     string

	logger   *slog.Logger
	contract formset.Contract
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "formset",
		Short: "Render and edit repeatable exercise formsets",
		Long: `formset renders exercise formsets as HTML and applies the add, remove
and reindex gestures to existing documents, keeping the management form,
entry numbering and field indices consistent.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.input, "input", "i", stdio, "HTML document to read (- for stdin)")
	flags.StringVarP(&a.output, "output", "o", stdio, "file to write (- for stdout)")
	flags.BoolVarP(&a.inPlace, "write", "w", false, "write the result back to --input")
	flags.StringVar(&a.contractPath, "contract", "", "YAML or JSON file overriding the DOM contract")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newRenderCommand(a),
		newAddCommand(a),
		newRemoveCommand(a),
		newReindexCommand(a),
		newCheckCommand(a),
		newErrorsCommand(a),
		newEditCommand(a),
	)
	return cmd
}

func (a *app) setup(_ *cobra.Command, _ []string) error {
	level, err := log.ParseLevel(a.logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", a.logLevel, err)
	}
	handler := log.NewWithOptions(a.stderr, log.Options{
		Level:  level,
		Prefix: "formset",
	})
	a.logger = slog.New(handler)

	a.contract = formset.DefaultContract()
	if a.contractPath != "" {
		contract, err := formset.LoadContract(os.DirFS(filepath.Dir(a.contractPath)), filepath.Base(a.contractPath))
		if err != nil {
			return err
		}
		a.contract = contract
	}
	if a.inPlace && a.input == stdio {
		return errors.New("--write needs an --input file")
	}
	return nil
}

// loadController parses the input document and binds a controller to it.
func (a *app) loadController() (*formset.Controller, error) {
	var data []byte
	var err error
	if a.input == stdio {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(a.input)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	doc, err := formset.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return formset.New(doc,
		formset.WithContract(a.contract),
		formset.WithLogger(a.logger),
	)
}

// mutate loads the document, applies fn and writes the result.
func (a *app) mutate(ctx context.Context, fn func(context.Context, *formset.Controller) error) error {
	ctrl, err := a.loadController()
	if err != nil {
		return err
	}
	if err := fn(ctx, ctrl); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := ctrl.Document().Render(&buf); err != nil {
		return err
	}
	return a.write(buf.Bytes())
}

func (a *app) write(data []byte) error {
	target := a.output
	if a.inPlace {
		target = a.input
	}
	if target == stdio {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	a.logger.Info("document written", "path", target)
	return nil
}
