package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Registry is a CUE registry file. Empty means the default layout.
	Registry string

	// Ontology backend. At most one of OntologyFile, OntologyDB and the
	// DynamoDB table pair may be set; none means an empty ontology.
	OntologyFile     string
	OntologyDB       string
	AncestorsTable   string
	DescendantsTable string
	DynamoRPS        float64

	// MetricsFile receives Prometheus metrics in text format on exit.
	MetricsFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the beaconq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "beaconq",
		Short: "beaconq - Beacon filter compiler",
		Long:  "Compile Beacon v2 search filters into parameterized predicates for the metadata query engine.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Registry, "registry", "", "CUE registry file (default layout if empty)")
	flags.StringVar(&opts.OntologyFile, "ontology-file", "", "YAML ontology fixture")
	flags.StringVar(&opts.OntologyDB, "ontology-db", "", "SQLite ontology database")
	flags.StringVar(&opts.AncestorsTable, "ancestors-table", "", "DynamoDB ancestors table")
	flags.StringVar(&opts.DescendantsTable, "descendants-table", "", "DynamoDB descendants table")
	flags.Float64Var(&opts.DynamoRPS, "dynamo-rps", 0, "DynamoDB lookups per second (0 = unlimited)")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewExpandCommand(opts))
	cmd.AddCommand(NewEntitiesCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
