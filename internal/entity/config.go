package entity

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// Environment variables read by ApplyEnv.
const (
	EnvRelationsTable  = "ATHENA_RELATIONS_TABLE"
	EnvTermsIndexTable = "ATHENA_TERMS_INDEX_TABLE"
)

//go:embed schema.cue
var schemaCUE string

// defaultColumns is the Beacon v2 metadata layout. Underscore-prefixed
// columns are internal bookkeeping columns that are still filterable.
var defaultColumns = map[Type][]string{
	Individual: {
		"id", "_datasetid", "_cohortid", "diseases", "ethnicity", "exposures",
		"geographicorigin", "info", "interventionsorprocedures", "karyotypicsex",
		"measures", "pedigrees", "phenotypicfeatures", "sex", "treatments",
	},
	Biosample: {
		"id", "_datasetid", "_cohortid", "individualid", "biosamplestatus",
		"collectiondate", "collectionmoment", "diagnosticmarkers",
		"histologicaldiagnosis", "measurements", "obtentionprocedure",
		"pathologicalstage", "pathologicaltnmfinding", "phenotypicfeatures",
		"sampleorigindetail", "sampleorigintype", "sampleprocessing",
		"samplestorage", "tumorgrade", "tumorprogression", "info", "notes",
	},
	Run: {
		"id", "_datasetid", "_cohortid", "biosampleid", "individualid", "info",
		"librarylayout", "libraryselection", "librarysource", "librarystrategy",
		"platform", "platformmodel", "rundate",
	},
	Analysis: {
		"id", "_datasetid", "_cohortid", "individualid", "biosampleid", "runid",
		"aligner", "analysisdate", "info", "pipelinename", "pipelineref",
		"variantcaller", "_vcfsampleid",
	},
	Dataset: {
		"id", "_assemblyid", "_vcflocations", "_vcfchromosomemap",
		"createdatetime", "datauseconditions", "description", "externalurl",
		"info", "name", "updatedatetime", "version",
	},
	Cohort: {
		"id", "cohortdatatypes", "cohortdesign", "cohortsize", "cohorttype",
		"collectionevents", "exclusioncriteria", "inclusioncriteria", "name",
	},
}

var defaultJoinKeys = map[Type]string{
	Individual: "individualid",
	Biosample:  "biosampleid",
	Run:        "runid",
	Analysis:   "analysisid",
	Dataset:    "datasetid",
	Cohort:     "cohortid",
}

// DefaultConfig returns the standard layout: one table per entity named after
// its id type, the Beacon v2 column sets, and the default shared tables.
func DefaultConfig() Config {
	cfg := Config{
		Relations:  DefaultRelationsTable,
		TermsIndex: DefaultTermsIndexTable,
		Entities:   make(map[string]EntityConfig, len(All)),
	}
	for _, t := range All {
		cfg.Entities[t.IDType()] = EntityConfig{
			Table:   t.IDType(),
			JoinKey: defaultJoinKeys[t],
			Columns: slices.Clone(defaultColumns[t]),
		}
	}
	return cfg
}

// ApplyEnv overrides the shared table names from the ATHENA_* environment
// variables when they are set. It returns a modified copy of cfg.
func ApplyEnv(cfg Config) Config {
	out := cfg
	out.Entities = maps.Clone(cfg.Entities)
	if v, ok := os.LookupEnv(EnvRelationsTable); ok && v != "" {
		out.Relations = v
	}
	if v, ok := os.LookupEnv(EnvTermsIndexTable); ok && v != "" {
		out.TermsIndex = v
	}
	return out
}

// LoadConfig reads a CUE registry file and merges it over DefaultConfig.
//
// The file is unified with the embedded #Config schema, so type errors and
// unknown fields are reported with CUE positions. Entities not mentioned in
// the file keep their defaults; an entity that is mentioned replaces the
// default entry field by field (an omitted columns list keeps the defaults).
//
// Example:
//
//	relations:   "sbeacon_relations"
//	terms_index: "sbeacon_terms_index"
//	entities: individuals: {
//	    table:   "sbeacon_individuals"
//	    columns: ["id", "sex", "age"]
//	}
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read registry config: %w", err)
	}
	return ParseConfig(path, data)
}

// ParseConfig is LoadConfig for in-memory CUE source. filename is used only
// in error positions.
func ParseConfig(filename string, src []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile registry schema: %w", err)
	}

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var partial struct {
		Relations  *string                        `json:"relations"`
		TermsIndex *string                        `json:"terms_index"`
		Entities   map[string]partialEntityConfig `json:"entities"`
	}
	if err := v.Decode(&partial); err != nil {
		return Config{}, formatCUEError(err)
	}

	cfg := DefaultConfig()
	if partial.Relations != nil {
		cfg.Relations = *partial.Relations
	}
	if partial.TermsIndex != nil {
		cfg.TermsIndex = *partial.TermsIndex
	}
	for name, pe := range partial.Entities {
		base, ok := cfg.Entities[name]
		if !ok {
			return Config{}, &ConfigError{Field: "entities." + name, Message: "unknown entity type"}
		}
		if pe.Table != nil {
			base.Table = *pe.Table
		}
		if pe.JoinKey != nil {
			base.JoinKey = *pe.JoinKey
		}
		if pe.Columns != nil {
			base.Columns = pe.Columns
		}
		cfg.Entities[name] = base
	}

	return cfg, nil
}

type partialEntityConfig struct {
	Table   *string  `json:"table"`
	JoinKey *string  `json:"join_key"`
	Columns []string `json:"columns"`
}

// formatCUEError converts a CUE error into a ConfigError that carries the
// position of the first reported problem.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ConfigError{Field: "cue", Message: err.Error()}
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 && positions[0].IsValid() {
		pos := positions[0]
		return &ConfigError{
			Field:   fmt.Sprintf("%s:%d:%d", pos.Filename(), pos.Line(), pos.Column()),
			Message: firstErr.Error(),
		}
	}
	return &ConfigError{Field: "cue", Message: firstErr.Error()}
}
