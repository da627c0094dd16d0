package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/beaconq/internal/entity"
	"github.com/roach88/beaconq/internal/filter"
	"github.com/roach88/beaconq/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Target    string // entity type searched
	Scope     string // default ontology scope (empty = target)
	IDColumn  string // column tested for membership
	OmitWhere bool   // drop the "WHERE " prefix
	Strict    bool   // reject filters that match nothing
}

// CompileResult is the compiled predicate.
type CompileResult struct {
	Target    string   `json:"target"`
	Predicate string   `json:"predicate"`
	Params    []string `json:"params"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <filters-file>",
		Short: "Compile request filters to a predicate",
		Long: `Compile Beacon request filters to a parameterized predicate.

The filters file is YAML or JSON: either a list of filters or a mapping
with a "filters" key. Use "-" to read from stdin. Ontology terms are
expanded using the configured ontology backend.

Exit codes:
  0 - Compiled (possibly to an empty predicate)
  1 - A filter was rejected
  2 - Command error (unreadable file, bad registry, etc.)

Examples:
  beaconq compile filters.yaml --target individuals
  beaconq compile filters.json --target biosamples --scope individuals --format json
  cat filters.yaml | beaconq compile - --ontology-db ontology.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", "individuals", "entity type searched")
	cmd.Flags().StringVar(&opts.Scope, "scope", "", "default ontology scope (default: target)")
	cmd.Flags().StringVar(&opts.IDColumn, "id-column", "", "column tested for membership (default: id)")
	cmd.Flags().BoolVar(&opts.OmitWhere, "omit-where", false, "omit the WHERE prefix")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "reject filters that match nothing")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	target, err := entity.ParseType(opts.Target)
	if err != nil {
		return outputFailure(formatter, ExitCommandError, err)
	}
	var scope entity.Type
	if opts.Scope != "" {
		if scope, err = entity.ParseType(opts.Scope); err != nil {
			return outputFailure(formatter, ExitCommandError, err)
		}
	}

	filters, err := readFilters(cmd, path)
	if err != nil {
		return outputFailure(formatter, exitCodeFor(err), err)
	}
	formatter.VerboseLog("Read %d filter(s) from %s", len(filters), path)

	env, err := LoadEnv(cmd.Context(), opts.RootOptions, formatter.GetErrWriter())
	if err != nil {
		return outputFailure(formatter, ExitCommandError, err)
	}
	defer closeEnv(env, formatter)

	compiler := querysql.NewCompiler(env.Registry, env.Ontology,
		querysql.WithLogger(env.Logger.With("trace_id", formatter.TraceID)),
		querysql.WithObserver(env.Observer),
		querysql.WithStrict(opts.Strict))

	pred, err := compiler.Compile(cmd.Context(), querysql.Request{
		Filters:      filters,
		Target:       target,
		DefaultScope: scope,
		IDColumn:     opts.IDColumn,
		OmitWhere:    opts.OmitWhere,
	})
	if err != nil {
		return outputFailure(formatter, ExitFailure, err)
	}

	result := CompileResult{
		Target:    target.IDType(),
		Predicate: pred.Text,
		Params:    pred.Params,
	}
	if result.Params == nil {
		result.Params = []string{}
	}
	return outputCompileSuccess(formatter, result)
}

// readFilters decodes a filters file, or stdin for "-".
func readFilters(cmd *cobra.Command, path string) ([]filter.Filter, error) {
	var filters []filter.Filter
	var err error
	if path == "-" {
		filters, err = filter.Decode(cmd.InOrStdin())
	} else {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("filters file not found: %s", path)}
		}
		filters, err = filter.DecodeFile(path)
	}
	if err == nil {
		return filters, nil
	}

	var invalid *filter.InvalidFilterError
	if errors.As(err, &invalid) {
		return nil, err
	}
	return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Err: err}
}

// exitCodeFor distinguishes unreadable input (command error) from a filter
// that was read but rejected.
func exitCodeFor(err error) int {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return ExitCommandError
	}
	return ExitFailure
}

// outputCompileSuccess outputs the compiled predicate.
func outputCompileSuccess(formatter *OutputFormatter, result CompileResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if result.Predicate == "" {
		fmt.Fprintln(formatter.Writer, "✓ No constraints (omit the WHERE clause)")
		return nil
	}

	fmt.Fprintln(formatter.Writer, result.Predicate)
	for i, p := range result.Params {
		fmt.Fprintf(formatter.Writer, "  [%d] %s\n", i+1, p)
	}
	return nil
}

// newFormatter builds the formatter for one command invocation, with a
// fresh trace id shared by the response and the log lines.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
		TraceID:   NewTraceID(),
	}
}

// outputFailure reports err with its CLI error code and returns an ExitError.
func outputFailure(formatter *OutputFormatter, exitCode int, err error) error {
	code := MapErrorCode(err)
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(exitCode, code, err)
}

// closeEnv releases env, reporting (but not failing on) close errors.
func closeEnv(env *Env, formatter *OutputFormatter) {
	if err := env.Close(); err != nil {
		fmt.Fprintf(formatter.GetErrWriter(), "warning: %v\n", err)
	}
}
