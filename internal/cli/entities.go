package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/beaconq/internal/entity"
)

// EntityInfo describes one registered entity type.
type EntityInfo struct {
	Type    string   `json:"type"`
	Model   string   `json:"model"`
	Table   string   `json:"table"`
	JoinKey string   `json:"join_key"`
	Columns []string `json:"columns"`
}

// EntitiesResult is the registry layout.
type EntitiesResult struct {
	Relations  string       `json:"relations"`
	TermsIndex string       `json:"terms_index"`
	Entities   []EntityInfo `json:"entities"`
}

// NewEntitiesCommand creates the entities command.
func NewEntitiesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entities [type]",
		Short: "Show the entity registry",
		Long: `Show the entity registry: tables, relations join keys and filterable
columns, after applying --registry and the ATHENA_* environment variables.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntities(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runEntities(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	reg, err := LoadRegistry(opts.Registry)
	if err != nil {
		return outputFailure(formatter, ExitCommandError, err)
	}

	types := entity.All
	if len(args) == 1 {
		t, err := entity.ParseType(args[0])
		if err != nil {
			return outputFailure(formatter, ExitCommandError, err)
		}
		types = []entity.Type{t}
	}

	result := EntitiesResult{
		Relations:  reg.Relations(),
		TermsIndex: reg.TermsIndex(),
		Entities:   make([]EntityInfo, 0, len(types)),
	}
	for _, t := range types {
		ent, err := reg.Lookup(t)
		if err != nil {
			return outputFailure(formatter, ExitCommandError, err)
		}
		result.Entities = append(result.Entities, EntityInfo{
			Type:    t.IDType(),
			Model:   t.Model(),
			Table:   ent.Table,
			JoinKey: ent.JoinKey,
			Columns: ent.Columns(),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "relations:   %s\n", result.Relations)
	fmt.Fprintf(w, "terms index: %s\n", result.TermsIndex)
	for _, e := range result.Entities {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s (%s)\n", e.Type, e.Model)
		fmt.Fprintf(w, "  table:    %s\n", e.Table)
		fmt.Fprintf(w, "  join key: %s\n", e.JoinKey)
		fmt.Fprintf(w, "  columns:  %s\n", strings.Join(e.Columns, ", "))
	}
	return nil
}
