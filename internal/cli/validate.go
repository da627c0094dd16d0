package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/beaconq/internal/entity"
	"github.com/roach88/beaconq/internal/filter"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Target string
	Scope  string
	Strict bool
}

// FilterReport describes how one filter would be compiled.
type FilterReport struct {
	Index   int      `json:"index"`
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Targets []string `json:"targets"`
	Code    string   `json:"code,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool           `json:"valid"`
	Target  string         `json:"target"`
	Filters []FilterReport `json:"filters"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <filters-file>",
		Short: "Validate filters without compiling",
		Long: `Check request filters against the entity registry without compiling.

Each filter is classified and its comparison normalized, so unsupported
operators and missing fields are reported per filter. Ontology terms are
not expanded and no ontology backend is contacted.

Exit codes:
  0 - All filters valid
  1 - One or more filters invalid
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", "individuals", "entity type searched")
	cmd.Flags().StringVar(&opts.Scope, "scope", "", "default ontology scope (default: target)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "report filters that match nothing as errors")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	target, err := entity.ParseType(opts.Target)
	if err != nil {
		return outputFailure(formatter, ExitCommandError, err)
	}
	scope := target
	if opts.Scope != "" {
		if scope, err = entity.ParseType(opts.Scope); err != nil {
			return outputFailure(formatter, ExitCommandError, err)
		}
	}

	filters, err := readFilters(cmd, path)
	if err != nil {
		return outputFailure(formatter, exitCodeFor(err), err)
	}

	reg, err := LoadRegistry(opts.Registry)
	if err != nil {
		return outputFailure(formatter, ExitCommandError, err)
	}

	classifier, err := filter.NewClassifier(reg, target, scope)
	if err != nil {
		return outputFailure(formatter, ExitCommandError, err)
	}
	classifier.Strict(opts.Strict)

	result := ValidationResult{
		Valid:   true,
		Target:  target.IDType(),
		Filters: make([]FilterReport, 0, len(filters)),
	}
	for i, f := range filters {
		formatter.VerboseLog("Validating filter %d: %s", i, f.Fields().ID)
		report := validateFilter(classifier, i, f)
		if report.Error != "" {
			result.Valid = false
		}
		result.Filters = append(result.Filters, report)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// validateFilter classifies f and normalizes every comparison it yields.
func validateFilter(c *filter.Classifier, index int, f filter.Filter) FilterReport {
	report := FilterReport{
		Index:   index,
		ID:      f.Fields().ID,
		Kind:    string(f.Kind()),
		Targets: []string{},
	}

	targets, err := c.Classify(f)
	if err != nil {
		report.Code = MapErrorCode(err)
		report.Error = err.Error()
		return report
	}

	for _, tgt := range targets {
		switch t := tgt.(type) {
		case filter.LocalTarget:
			cmp, _, err := filter.NormalizeFor(t.ID, t.Operator, t.Value)
			if err != nil {
				report.Code = MapErrorCode(err)
				report.Error = err.Error()
				return report
			}
			report.Targets = append(report.Targets, fmt.Sprintf("local %s %s", t.Column, cmp))
		case filter.CrossEntityTarget:
			cmp, _, err := filter.NormalizeFor(t.ID, t.Operator, t.Value)
			if err != nil {
				report.Code = MapErrorCode(err)
				report.Error = err.Error()
				return report
			}
			report.Targets = append(report.Targets,
				fmt.Sprintf("cross_entity %s.%s %s", t.Entity.Type.Model(), t.Column, cmp))
		case filter.TermTarget:
			report.Targets = append(report.Targets,
				fmt.Sprintf("term %s (scope %s, similarity %s)", t.Term, t.Scope.Type, t.Similarity))
		}
	}
	return report
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, r := range result.Filters {
		if len(r.Targets) == 0 {
			fmt.Fprintf(formatter.Writer, "- [%d] %s: matches nothing, dropped\n", r.Index, r.ID)
			continue
		}
		for _, t := range r.Targets {
			fmt.Fprintf(formatter.Writer, "✓ [%d] %s: %s\n", r.Index, r.ID, t)
		}
	}
	fmt.Fprintf(formatter.Writer, "✓ All %d filter(s) valid for %s\n", len(result.Filters), result.Target)
	return nil
}

// outputValidationErrors outputs the invalid filters.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	var failed []FilterReport
	for _, r := range result.Filters {
		if r.Error != "" {
			failed = append(failed, r)
		}
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    failed[0].Code,
				Message: failed[0].Error,
			},
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(failed)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, r := range failed {
		fmt.Fprintf(formatter.Writer, "filter %d (%s)\n", r.Index, r.ID)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", r.Code, r.Error)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(failed)))
}
