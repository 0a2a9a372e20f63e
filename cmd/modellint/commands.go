package main

import (
	"fmt"
	"io"
	"os"

	"github.com/speakeasy-api/openapi/jsonschema/oas3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jacoelho/modelc"
	"github.com/jacoelho/modelc/errors"
)

func newCheckCmd(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check <files...>",
		Short: "Compile model documents and print their diagnostics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			opts, err := flags.options(stderr)
			if err != nil {
				return err
			}
			schema, err := modelc.LoadFile(args, opts)
			if err != nil {
				return reportConfigErrors(stdout, err)
			}
			var rows []row
			for _, w := range schema.Report().Warnings {
				rows = append(rows, row{severity: "warning", code: string(w.Code), where: location(w.Model, w.Path), message: w.Message})
			}
			if err := table(stdout, rows); err != nil {
				return err
			}
			return writef(stdout, "ok: %d models, %d endpoints\n", len(schema.Models()), len(schema.Endpoints()))
		},
	}
}

func reportConfigErrors(w io.Writer, err error) error {
	cfgErrs := errors.AsConfigErrors(err)
	if len(cfgErrs) == 0 {
		return err
	}
	rows := make([]row, 0, len(cfgErrs))
	for _, e := range cfgErrs {
		rows = append(rows, row{severity: "error", code: string(e.Code), where: location(e.Model, e.Path), message: e.Message})
	}
	if werr := table(w, rows); werr != nil {
		return werr
	}
	if werr := writef(w, "%d error(s)\n", len(cfgErrs)); werr != nil {
		return werr
	}
	return &exitError{code: 1}
}

type targetFlags struct {
	endpoint string
	model    string
}

func (t *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.endpoint, "endpoint", "", "endpoint name")
	cmd.Flags().StringVar(&t.model, "model", "", "model name")
	cmd.MarkFlagsMutuallyExclusive("endpoint", "model")
	cmd.MarkFlagsOneRequired("endpoint", "model")
}

func newValidateCmd(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	target := &targetFlags{}
	var inputPath string
	cmd := &cobra.Command{
		Use:   "validate <files...>",
		Short: "Process an input document with an endpoint or model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(stderr)
			if err != nil {
				return err
			}
			schema, err := modelc.LoadFile(args, opts)
			if err != nil {
				return reportConfigErrors(stdout, err)
			}
			input, err := readInput(cmd.InOrStdin(), inputPath)
			if err != nil {
				return err
			}
			var out any
			if target.endpoint != "" {
				out, err = schema.Process(cmd.Context(), target.endpoint, input)
			} else {
				out, err = schema.ProcessModel(cmd.Context(), target.model, input)
			}
			if err != nil {
				return reportViolations(stdout, inputPath, err)
			}
			return writeOutput(stdout, out)
		},
	}
	target.register(cmd)
	cmd.Flags().StringVar(&inputPath, "input", "-", "input document (YAML or JSON), - for stdin")
	return cmd
}

func readInput(stdin io.Reader, path string) (any, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}
	var input any
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("decode input %s: %w", path, err)
	}
	return input, nil
}

func reportViolations(w io.Writer, inputPath string, err error) error {
	violations, ok := errors.AsValidations(err)
	if !ok {
		return err
	}
	rows := make([]row, 0, len(violations))
	for _, v := range violations {
		where := v.Path
		if where == "" {
			where = "/"
		}
		rows = append(rows, row{severity: "error", code: v.Code, where: where, message: v.Message})
	}
	if werr := table(w, rows); werr != nil {
		return werr
	}
	if werr := writef(w, "%s fails to validate\n", inputPath); werr != nil {
		return werr
	}
	return &exitError{code: 1}
}

func writeOutput(w io.Writer, out any) error {
	data, err := yaml.Marshal(plain(out))
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// plain replaces instances with their fields.
func plain(v any) any {
	switch t := v.(type) {
	case *modelc.Instance:
		return plain(t.Fields)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}

func newExportCmd(flags *globalFlags, stdout io.Writer) *cobra.Command {
	target := &targetFlags{}
	cmd := &cobra.Command{
		Use:   "export <files...>",
		Short: "Print the JSON Schema of a model or endpoint input",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			schema, err := modelc.LoadFile(args, opts)
			if err != nil {
				return reportConfigErrors(stdout, err)
			}
			js, err := exportTarget(schema, target)
			if err != nil {
				return err
			}
			data, err := modelc.MarshalJSONSchema(js)
			if err != nil {
				return err
			}
			_, err = stdout.Write(data)
			return err
		},
	}
	target.register(cmd)
	return cmd
}

func exportTarget(schema *modelc.Schema, target *targetFlags) (*oas3.Schema, error) {
	if target.endpoint != "" {
		return schema.EndpointJSONSchema(target.endpoint)
	}
	return schema.JSONSchema(target.model)
}
