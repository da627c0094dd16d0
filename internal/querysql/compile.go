// Package querysql compiles request filters into a parameterized predicate
// for the analytic query engine.
//
// Compilation runs in two steps: Plan classifies the filters and builds a
// queryir predicate tree, and Render turns the tree into predicate text with
// positional "?" placeholders plus the parameters in placeholder order.
package querysql

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/beaconq/internal/entity"
	"github.com/roach88/beaconq/internal/expand"
	"github.com/roach88/beaconq/internal/filter"
	"github.com/roach88/beaconq/internal/metrics"
	"github.com/roach88/beaconq/internal/ontology"
	"github.com/roach88/beaconq/internal/queryir"
)

// DefaultIDColumn is the column matched against membership sub-queries.
const DefaultIDColumn = "id"

// ErrCodeInvalidRequest labels failures that carry no filter error code,
// such as an unsafe id column.
const ErrCodeInvalidRequest = "INVALID_REQUEST"

// termColumn is the terms index column holding ontology term ids.
const termColumn = "term"

// Request is one compilation.
type Request struct {
	Filters []filter.Filter

	// Target is the entity type being searched.
	Target entity.Type

	// DefaultScope is the entity whose relations column holds ontology terms
	// for filters without an explicit scope. The zero Type means Target.
	DefaultScope entity.Type

	// IDColumn is the column tested for membership. Empty means "id".
	IDColumn string

	// OmitWhere drops the "WHERE " prefix, for callers that splice the
	// predicate into a larger condition.
	OmitWhere bool
}

// Predicate is a compiled predicate.
//
// Text is empty when the request has no constraints; the caller must then
// omit the WHERE clause entirely. Params is nil in that case, and otherwise
// holds one entry per "?" in Text, left to right.
type Predicate struct {
	Text   string
	Params []string
}

// Empty reports whether the predicate constrains nothing.
func (p Predicate) Empty() bool { return p.Text == "" }

// Compiler compiles filters against one registry and ontology.
//
// A Compiler holds no per-request state and is safe for concurrent use as
// long as its ontology service is.
type Compiler struct {
	registry *entity.Registry
	expander *expand.Expander
	logger   *slog.Logger
	observer metrics.Observer
	strict   bool
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver reports compiler and ontology lookup events to obs.
func WithObserver(obs metrics.Observer) Option {
	return func(c *Compiler) {
		if obs != nil {
			c.observer = obs
		}
	}
}

// WithStrict rejects filters that match no column and are not ontology
// filters with an UnknownFilterError. By default they are dropped.
func WithStrict(strict bool) Option {
	return func(c *Compiler) {
		c.strict = strict
	}
}

// NewCompiler creates a Compiler. svc answers ontology term lookups; it is
// consulted only for ontology filters that include descendant terms.
func NewCompiler(reg *entity.Registry, svc ontology.Service, opts ...Option) *Compiler {
	c := &Compiler{
		registry: reg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: metrics.NoopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if _, noop := c.observer.(metrics.NoopObserver); !noop {
		svc = metrics.InstrumentService(svc, c.observer)
	}
	c.expander = expand.NewExpander(svc, c.logger)
	return c
}

// Compile classifies, expands and renders req.Filters.
//
// Any error aborts the whole compilation; no partial predicate is returned.
// Ontology lookup misses are not errors.
func (c *Compiler) Compile(ctx context.Context, req Request) (Predicate, error) {
	start := time.Now()

	pred, err := c.compile(ctx, req)

	code := filter.ErrorCode(err)
	if err != nil && code == "" {
		code = ErrCodeInvalidRequest
	}
	c.observer.OnCompile(time.Since(start), len(req.Filters), code)
	if err != nil {
		c.logger.Debug("compile failed",
			"target", req.Target,
			"filters", len(req.Filters),
			"error", err)
		return Predicate{}, err
	}
	c.logger.Debug("compiled filters",
		"target", req.Target,
		"filters", len(req.Filters),
		"params", len(pred.Params))
	return pred, nil
}

func (c *Compiler) compile(ctx context.Context, req Request) (Predicate, error) {
	tree, err := c.Plan(ctx, req)
	if err != nil {
		return Predicate{}, err
	}

	text, params, err := Render(tree)
	if err != nil {
		return Predicate{}, err
	}
	if text == "" {
		return Predicate{}, nil
	}
	if !req.OmitWhere {
		text = "WHERE " + text
	}
	return Predicate{Text: text, Params: params}, nil
}

// Plan classifies req.Filters and returns the predicate tree.
//
// The tree is an And whose first element, if any, is the membership test
// over the intersection of all join-derived sub-queries, followed by the
// local column comparisons in filter order. A request without constraints
// yields an empty And.
func (c *Compiler) Plan(ctx context.Context, req Request) (queryir.And, error) {
	idColumn := req.IDColumn
	if idColumn == "" {
		idColumn = DefaultIDColumn
	}
	if !entity.ValidIdentifier(idColumn) {
		return queryir.And{}, fmt.Errorf("id column %q is not a plain identifier", idColumn)
	}

	scope := req.DefaultScope
	if scope == 0 {
		scope = req.Target
	}
	classifier, err := filter.NewClassifier(c.registry, req.Target, scope)
	if err != nil {
		return queryir.And{}, err
	}
	classifier.Strict(c.strict)
	target := classifier.Target()

	var joins []queryir.Query
	var locals []queryir.Predicate

	for i, f := range req.Filters {
		targets, err := classifier.Classify(f)
		if err != nil {
			return queryir.And{}, fmt.Errorf("filter %d: %w", i, err)
		}
		if len(targets) == 0 {
			c.observer.OnTarget("unmatched")
			c.logger.Debug("filter matches nothing", "id", f.Fields().ID, "target", target.Type)
			continue
		}

		for _, tgt := range targets {
			switch t := tgt.(type) {
			case filter.LocalTarget:
				cmp, param, err := filter.NormalizeFor(t.ID, t.Operator, t.Value)
				if err != nil {
					return queryir.And{}, fmt.Errorf("filter %d: %w", i, err)
				}
				c.observer.OnTarget("local")
				locals = append(locals, queryir.Compare{
					Field: t.Column,
					Op:    queryir.Op(cmp),
					Value: param,
				})

			case filter.CrossEntityTarget:
				cmp, param, err := filter.NormalizeFor(t.ID, t.Operator, t.Value)
				if err != nil {
					return queryir.And{}, fmt.Errorf("filter %d: %w", i, err)
				}
				c.observer.OnTarget("cross_entity")
				joins = append(joins, queryir.Select{
					TargetKey: target.JoinKey,
					Relations: c.registry.Relations(),
					Joined:    t.Entity.Table,
					Alias:     queryir.AliasEntity,
					JoinKey:   t.Entity.JoinKey,
					Filter: queryir.Compare{
						Alias: queryir.AliasEntity,
						Field: t.Column,
						Op:    queryir.Op(cmp),
						Value: param,
					},
				})

			case filter.TermTarget:
				terms := c.expander.Expand(ctx, t.Term, t.Similarity, t.IncludeDescendants)
				c.observer.OnTarget("term")
				c.observer.OnExpand(string(t.Similarity), len(terms))
				joins = append(joins, queryir.Select{
					TargetKey: target.JoinKey,
					Relations: c.registry.Relations(),
					Joined:    c.registry.TermsIndex(),
					Alias:     queryir.AliasTerms,
					JoinKey:   t.Scope.JoinKey,
					Filter: queryir.In{
						Alias:  queryir.AliasTerms,
						Field:  termColumn,
						Values: terms,
					},
				})

			default:
				return queryir.And{}, fmt.Errorf("filter %d: unsupported target type %T", i, tgt)
			}
		}
	}

	tree := queryir.And{}
	if len(joins) > 0 {
		tree.Predicates = append(tree.Predicates, queryir.Member{
			Field: idColumn,
			Query: queryir.Intersect{Queries: joins},
		})
	}
	tree.Predicates = append(tree.Predicates, locals...)

	if result := queryir.Validate(tree); !result.Valid {
		return queryir.And{}, fmt.Errorf("invalid predicate: %s", strings.Join(result.Problems, "; "))
	}
	return tree, nil
}
