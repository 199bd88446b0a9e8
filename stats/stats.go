// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package stats groups the counters updated by the abstraction engine. They
// are registered with a prometheus registerer so that a host program can
// export them.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pcegar"

// Metrics holds the counters of one engine. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	SolverChecks         prometheus.Counter
	SolverUnknown        prometheus.Counter
	Cubes                prometheus.Counter
	ClusterHits          prometheus.Counter
	ClusterMisses        prometheus.Counter
	RefineRounds         prometheus.Counter
	Predicates           prometheus.Gauge
	ReachableStates      prometheus.Gauge
	GameIterations       prometheus.Counter
	Splits               prometheus.Counter
	RemovedDistributions prometheus.Counter
}

// New creates the counters and registers them with reg. If reg is nil, the
// counters are not registered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SolverChecks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "solver_checks_total",
			Help: "Number of satisfiability checks sent to the solver"}),
		SolverUnknown: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "solver_unknown_total",
			Help: "Number of inconclusive solver answers"}),
		Cubes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cubes_total",
			Help: "Number of satisfying assignments enumerated by the solver"}),
		ClusterHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cluster_cache_hits_total",
			Help: "Clusters reused from a previous refinement round"}),
		ClusterMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cluster_cache_misses_total",
			Help: "Clusters created during a refinement round"}),
		RefineRounds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "refine_rounds_total",
			Help: "Number of abstraction refinement rounds"}),
		Predicates: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "predicates",
			Help: "Number of predicates in the abstraction"}),
		ReachableStates: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "reachable_states",
			Help: "Number of reachable abstract states"}),
		GameIterations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "game_iterations_total",
			Help: "Number of value iterations on the game graph"}),
		Splits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "splits_total",
			Help: "Number of abstract states split by lazy refinement"}),
		RemovedDistributions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "removed_distributions_total",
			Help: "Number of spurious distributions removed from the game"}),
	}
}

// Inc increments counter c of m, if m is not nil.
func (m *Metrics) Inc(c func(*Metrics) prometheus.Counter) {
	if m != nil {
		c(m).Inc()
	}
}

// Add adds v to counter c of m, if m is not nil.
func (m *Metrics) Add(c func(*Metrics) prometheus.Counter, v float64) {
	if m != nil {
		c(m).Add(v)
	}
}

// Set sets gauge g of m, if m is not nil.
func (m *Metrics) Set(g func(*Metrics) prometheus.Gauge, v float64) {
	if m != nil {
		g(m).Set(v)
	}
}

// Accessors used with Inc, Add and Set.
func SolverChecks(m *Metrics) prometheus.Counter         { return m.SolverChecks }
func SolverUnknown(m *Metrics) prometheus.Counter        { return m.SolverUnknown }
func Cubes(m *Metrics) prometheus.Counter                { return m.Cubes }
func ClusterHits(m *Metrics) prometheus.Counter          { return m.ClusterHits }
func ClusterMisses(m *Metrics) prometheus.Counter        { return m.ClusterMisses }
func RefineRounds(m *Metrics) prometheus.Counter         { return m.RefineRounds }
func GameIterations(m *Metrics) prometheus.Counter       { return m.GameIterations }
func Splits(m *Metrics) prometheus.Counter               { return m.Splits }
func RemovedDistributions(m *Metrics) prometheus.Counter { return m.RemovedDistributions }
func Predicates(m *Metrics) prometheus.Gauge             { return m.Predicates }
func ReachableStates(m *Metrics) prometheus.Gauge        { return m.ReachableStates }
