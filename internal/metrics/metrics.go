// Package metrics records compiler activity.
//
// Observer is the hook the compiler calls; NoopObserver discards everything
// and Prometheus exports counters and histograms through client_golang.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/beaconq/internal/ontology"
)

// Observer receives compiler events. Implementations must be safe for
// concurrent use.
type Observer interface {
	// OnCompile is called once per Compile call. code is the error code of
	// the failure, or empty on success.
	OnCompile(d time.Duration, filters int, code string)

	// OnTarget is called for each classified filter target, labelled by its
	// variant ("local", "cross_entity", "term", "unmatched").
	OnTarget(kind string)

	// OnExpand is called after each ontology term expansion.
	OnExpand(similarity string, terms int)

	// OnLookup is called after each ontology service lookup.
	OnLookup(relation string, found bool)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) OnCompile(time.Duration, int, string) {}
func (NoopObserver) OnTarget(string)                      {}
func (NoopObserver) OnExpand(string, int)                 {}
func (NoopObserver) OnLookup(string, bool)                {}

// Prometheus implements Observer with client_golang collectors.
type Prometheus struct {
	compileLatency *prometheus.HistogramVec
	compiles       *prometheus.CounterVec
	targets        *prometheus.CounterVec
	expandedTerms  *prometheus.HistogramVec
	lookups        *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		compileLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beaconq_compile_duration_seconds",
			Help:    "Latency of filter compilation, including ontology lookups",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		compiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beaconq_compiles_total",
			Help: "Compile calls by result code",
		}, []string{"code"}),
		targets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beaconq_filter_targets_total",
			Help: "Classified filter targets by kind",
		}, []string{"kind"}),
		expandedTerms: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beaconq_expanded_terms",
			Help:    "Number of terms an ontology filter expanded to",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"similarity"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beaconq_ontology_lookups_total",
			Help: "Ontology service lookups by relation and outcome",
		}, []string{"relation", "outcome"}),
	}

	for _, c := range []prometheus.Collector{
		p.compileLatency, p.compiles, p.targets, p.expandedTerms, p.lookups,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// OnCompile implements Observer.
func (p *Prometheus) OnCompile(d time.Duration, _ int, code string) {
	status := "success"
	label := "ok"
	if code != "" {
		status = "error"
		label = code
	}
	p.compileLatency.WithLabelValues(status).Observe(d.Seconds())
	p.compiles.WithLabelValues(label).Inc()
}

// OnTarget implements Observer.
func (p *Prometheus) OnTarget(kind string) {
	p.targets.WithLabelValues(kind).Inc()
}

// OnExpand implements Observer.
func (p *Prometheus) OnExpand(similarity string, terms int) {
	p.expandedTerms.WithLabelValues(similarity).Observe(float64(terms))
}

// OnLookup implements Observer.
func (p *Prometheus) OnLookup(relation string, found bool) {
	outcome := "hit"
	if !found {
		outcome = "miss"
	}
	p.lookups.WithLabelValues(relation, outcome).Inc()
}

// InstrumentService wraps svc so that every lookup is reported to obs.
func InstrumentService(svc ontology.Service, obs Observer) ontology.Service {
	if obs == nil {
		return svc
	}
	return &instrumentedService{inner: svc, obs: obs}
}

type instrumentedService struct {
	inner ontology.Service
	obs   Observer
}

func (s *instrumentedService) Ancestors(ctx context.Context, term string) ([]string, bool) {
	terms, ok := s.inner.Ancestors(ctx, term)
	s.obs.OnLookup(string(ontology.RelationAncestors), ok)
	return terms, ok
}

func (s *instrumentedService) Descendants(ctx context.Context, term string) ([]string, bool) {
	terms, ok := s.inner.Descendants(ctx, term)
	s.obs.OnLookup(string(ontology.RelationDescendants), ok)
	return terms, ok
}
