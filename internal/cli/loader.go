package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/beaconq/internal/entity"
	"github.com/roach88/beaconq/internal/filter"
	"github.com/roach88/beaconq/internal/metrics"
	"github.com/roach88/beaconq/internal/ontology"
)

// LoadError represents an error that occurred while loading the registry,
// the ontology, or a filter file.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Env is everything a command needs to compile filters.
type Env struct {
	Registry *entity.Registry
	Ontology ontology.Service
	Logger   *slog.Logger
	Observer metrics.Observer

	gatherer    *prometheus.Registry
	metricsFile string
	closers     []func() error
}

// NewLogger returns a text logger on w. Verbose lowers the level to Debug;
// otherwise only warnings (such as ontology backend failures) are shown.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// LoadEnv builds the registry, ontology backend and metrics sink selected by
// opts. Log output goes to logw. The caller must Close the Env.
func LoadEnv(ctx context.Context, opts *RootOptions, logw io.Writer) (*Env, error) {
	logger := NewLogger(logw, opts.Verbose)

	reg, err := LoadRegistry(opts.Registry)
	if err != nil {
		return nil, err
	}

	env := &Env{
		Registry: reg,
		Logger:   logger,
		Observer: metrics.NoopObserver{},
	}

	if opts.MetricsFile != "" {
		env.gatherer = prometheus.NewRegistry()
		prom, err := metrics.NewPrometheus(env.gatherer)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: "registering metrics", Err: err}
		}
		env.Observer = prom
		env.metricsFile = opts.MetricsFile
	}

	svc, closer, err := LoadOntology(ctx, opts, logger)
	if err != nil {
		return nil, err
	}
	env.Ontology = svc
	if closer != nil {
		env.closers = append(env.closers, closer)
	}
	return env, nil
}

// Close writes the metrics file, if any, and releases the ontology backend.
func (e *Env) Close() error {
	var errs []error
	if e.gatherer != nil {
		if err := prometheus.WriteToTextfile(e.metricsFile, e.gatherer); err != nil {
			errs = append(errs, &LoadError{
				Code:    ErrCodeWriteFailed,
				Message: fmt.Sprintf("writing metrics file %s", e.metricsFile),
				Err:     err,
			})
		}
	}
	for _, c := range e.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadRegistry builds the entity registry from a CUE file, or the default
// layout when path is empty. Shared table names may then be overridden by
// the ATHENA_* environment variables.
func LoadRegistry(path string) (*entity.Registry, error) {
	cfg := entity.DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("registry file not found: %s", path)}
		}
		loaded, err := entity.LoadConfig(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Err: err}
		}
		cfg = loaded
	}

	reg, err := entity.NewRegistry(entity.ApplyEnv(cfg))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Err: err}
	}
	return reg, nil
}

// LoadOntology opens the ontology backend selected by opts. The returned
// closer is nil when the backend holds no resources.
//
// DynamoDB uses the default AWS credential chain and is wrapped in a
// CachedService, since every lookup is a network round trip.
func LoadOntology(ctx context.Context, opts *RootOptions, logger *slog.Logger) (ontology.Service, func() error, error) {
	dynamo := opts.AncestorsTable != "" || opts.DescendantsTable != ""

	selected := 0
	for _, set := range []bool{opts.OntologyFile != "", opts.OntologyDB != "", dynamo} {
		if set {
			selected++
		}
	}
	if selected > 1 {
		return nil, nil, &LoadError{
			Code:    ErrCodeGeneric,
			Message: "--ontology-file, --ontology-db and the DynamoDB tables are mutually exclusive",
		}
	}

	switch {
	case opts.OntologyFile != "":
		if _, err := os.Stat(opts.OntologyFile); os.IsNotExist(err) {
			return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("ontology file not found: %s", opts.OntologyFile)}
		}
		mem, err := ontology.LoadFixture(opts.OntologyFile)
		if err != nil {
			return nil, nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Err: err}
		}
		logger.Debug("ontology loaded", "backend", "file", "path", opts.OntologyFile, "terms", len(mem.Terms()))
		return mem, nil, nil

	case opts.OntologyDB != "":
		if _, err := os.Stat(opts.OntologyDB); os.IsNotExist(err) {
			return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("ontology database not found: %s", opts.OntologyDB)}
		}
		db, err := ontology.OpenSQLite(opts.OntologyDB, logger)
		if err != nil {
			return nil, nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Err: err}
		}
		logger.Debug("ontology opened", "backend", "sqlite", "path", opts.OntologyDB)
		return db, db.Close, nil

	case dynamo:
		if opts.AncestorsTable == "" || opts.DescendantsTable == "" {
			return nil, nil, &LoadError{
				Code:    ErrCodeGeneric,
				Message: "--ancestors-table and --descendants-table must be set together",
			}
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, &LoadError{Code: ErrCodeLoadFailed, Message: "loading AWS configuration", Err: err}
		}
		svc := ontology.NewDynamoService(dynamodb.NewFromConfig(awsCfg), ontology.DynamoConfig{
			AncestorsTable:    opts.AncestorsTable,
			DescendantsTable:  opts.DescendantsTable,
			RequestsPerSecond: opts.DynamoRPS,
		}, logger)
		logger.Debug("ontology configured", "backend", "dynamodb",
			"ancestors", opts.AncestorsTable, "descendants", opts.DescendantsTable)
		return ontology.NewCachedService(svc), nil, nil

	default:
		logger.Debug("no ontology configured, terms expand to themselves")
		return ontology.NewMemory(), nil, nil
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeLoadFailed  = "E004" // Registry, ontology or filter file invalid
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error

	// Filter compilation errors
	ErrCodeUnsupportedOperator = "E101" // Operator not valid for the value kind
	ErrCodeMissingField        = "E102" // Comparison without operator or value
	ErrCodeUnknownEntityType   = "E103" // Target or scope not registered
	ErrCodeUnknownFilter       = "E104" // Filter matches nothing (strict mode)
	ErrCodeInvalidFilter       = "E105" // Filter could not be decoded
)

// MapErrorCode maps an error to a CLI error code. Filters rejected while
// decoding report the code of their cause when it has one.
func MapErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	var invalid *filter.InvalidFilterError
	if errors.As(err, &invalid) {
		if code := mapDomainCode(filter.ErrorCode(invalid.Err)); code != ErrCodeGeneric {
			return code
		}
		return ErrCodeInvalidFilter
	}
	return mapDomainCode(filter.ErrorCode(err))
}

func mapDomainCode(code string) string {
	switch code {
	case filter.ErrCodeUnsupportedOperator:
		return ErrCodeUnsupportedOperator
	case filter.ErrCodeMissingField:
		return ErrCodeMissingField
	case entity.ErrCodeUnknownEntityType:
		return ErrCodeUnknownEntityType
	case filter.ErrCodeUnknownFilter:
		return ErrCodeUnknownFilter
	case filter.ErrCodeInvalidFilter:
		return ErrCodeInvalidFilter
	default:
		return ErrCodeGeneric
	}
}
