package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/beaconq/internal/expand"
	"github.com/roach88/beaconq/internal/filter"
	"github.com/roach88/beaconq/internal/metrics"
)

// ExpandOptions holds flags for the expand command.
type ExpandOptions struct {
	*RootOptions
	Similarity    string
	NoDescendants bool
}

// ExpandResult is the expanded term set.
type ExpandResult struct {
	Term               string   `json:"term"`
	Similarity         string   `json:"similarity"`
	IncludeDescendants bool     `json:"include_descendants"`
	Terms              []string `json:"terms"`
}

// NewExpandCommand creates the expand command.
func NewExpandCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExpandOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "expand <term>",
		Short: "Expand an ontology term",
		Long: `Expand an ontology term the way an ontology filter would.

exact and high use the term's descendants. medium and low pick among the
descendant sets of the term's ancestors. With --no-descendants the term
stands alone.

Examples:
  beaconq expand NCIT:C3262 --ontology-file ontology.yaml
  beaconq expand NCIT:C4910 --similarity low --ontology-db ontology.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Similarity, "similarity", "s", "exact", "expansion similarity (exact|high|medium|low)")
	cmd.Flags().BoolVar(&opts.NoDescendants, "no-descendants", false, "do not expand the term")

	return cmd
}

func runExpand(opts *ExpandOptions, term string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	sim, err := filter.ParseSimilarity(opts.Similarity)
	if err != nil {
		return outputFailure(formatter, ExitCommandError, err)
	}

	env, err := LoadEnv(cmd.Context(), opts.RootOptions, formatter.GetErrWriter())
	if err != nil {
		return outputFailure(formatter, ExitCommandError, err)
	}
	defer closeEnv(env, formatter)

	svc := metrics.InstrumentService(env.Ontology, env.Observer)
	expander := expand.NewExpander(svc, env.Logger.With("trace_id", formatter.TraceID))

	include := !opts.NoDescendants
	terms := expander.Expand(cmd.Context(), term, sim, include)
	env.Observer.OnExpand(string(sim), len(terms))

	result := ExpandResult{
		Term:               term,
		Similarity:         string(sim),
		IncludeDescendants: include,
		Terms:              terms,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	formatter.VerboseLog("Expanded %s (%s) to %d term(s)", term, sim, len(terms))
	for _, t := range terms {
		fmt.Fprintln(formatter.Writer, t)
	}
	return nil
}
