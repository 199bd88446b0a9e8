// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package game

import (
	"io"
	"log/slog"
	"math"

	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/lang"
	"github.com/dalzilio/pcegar/smt"
	"github.com/dalzilio/pcegar/stats"
	"github.com/pkg/errors"
)

type configs struct {
	precision     float64
	maxIterations int
	maxSplits     int
	logger        *slog.Logger
	metrics       *stats.Metrics
	onPredicates  func([]*expr.Expr) (*Graph, error)
}

// Option is a configuration option for the lazy refinement loop.
type Option func(*configs)

// Precision sets the width of the interval at which the loop stops. The
// default is 1e-6.
func Precision(p float64) Option {
	return func(c *configs) {
		c.precision = p
	}
}

// MaxIterations bounds the number of rounds of the loop. The default is 100.
func MaxIterations(n int) Option {
	return func(c *configs) {
		c.maxIterations = n
	}
}

// MaxSplits bounds the number of splits. There is no bound by default.
func MaxSplits(n int) Option {
	return func(c *configs) {
		c.maxSplits = n
	}
}

// WithLogger sets the logger of the loop.
func WithLogger(l *slog.Logger) Option {
	return func(c *configs) {
		c.logger = l
	}
}

// WithMetrics sets the counters updated by the loop.
func WithMetrics(m *stats.Metrics) Option {
	return func(c *configs) {
		c.metrics = m
	}
}

// OnPredicates sets a function called with the predicates found by each split.
// When it returns a non-nil graph, the loop goes on with this graph.
func OnPredicates(f func([]*expr.Expr) (*Graph, error)) Option {
	return func(c *configs) {
		c.onPredicates = f
	}
}

// Outcome is the effect of a refinement step.
type Outcome int

const (
	// NoProgress means that the pivot could not be refined.
	NoProgress Outcome = iota
	// Removed means that spurious choices were removed from the pivot state.
	Removed
	// Split means that the pivot state was split in two.
	Split
)

func (o Outcome) String() string {
	switch o {
	case Removed:
		return "removed"
	case Split:
		return "split"
	}
	return "none"
}

// Result is the outcome of the lazy refinement loop.
type Result struct {
	Min        float64
	Max        float64
	Iterations int
	Splits     int
	Paths      int // paths to the goal analyzed
}

// Lazy refines a game graph built from an abstraction of model, using the
// regions of its states.
type Lazy struct {
	configs
	g       *Graph
	model   *lang.Model
	factory smt.Factory
}

// NewLazy returns a refinement loop for g. Solvers are obtained from factory.
func NewLazy(g *Graph, model *lang.Model, factory smt.Factory, opts ...Option) *Lazy {
	cfg := configs{precision: 1e-6, maxIterations: 100}
	for _, f := range opts {
		f(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Lazy{configs: cfg, g: g, model: model, factory: factory}
}

// Graph returns the current game graph.
func (l *Lazy) Graph() *Graph { return l.g }

// satisfiable checks e with a fresh solver. An inconclusive answer counts as
// satisfiable.
func (l *Lazy) satisfiable(e *expr.Expr) (bool, error) {
	s, err := l.factory(l.model.Vars)
	if err != nil {
		return false, errors.Wrap(err, "creating solver")
	}
	for _, inv := range l.model.AllInvariants() {
		if err := s.Assert(inv); err != nil {
			return false, err
		}
	}
	ok, err := smt.Satisfiable(s, e)
	if abserr.IsInconclusive(err) {
		l.logger.Warn("prover inconclusive", "query", e.String())
		return true, nil
	}
	return ok, err
}

// Refine refines the game at pivot p. It computes the weakest precondition wp
// of the successors of the pivot distribution. If no concrete state of the
// pivot region satisfies wp, the distribution is spurious and is removed. If
// every concrete state of the region satisfies wp, the choice sets with
// another distribution of the same command are spurious and are removed.
// Otherwise the pivot state is split along wp, and the atoms of wp are
// returned as new predicates.
func (l *Lazy) Refine(p Pivot) (Outcome, []*expr.Expr, error) {
	g := l.g
	d := g.dists[p.Dist]
	if d.action < 0 {
		return NoProgress, nil, nil
	}
	if d.action >= len(l.model.Commands) {
		return NoProgress, nil, abserr.Errorf(abserr.Bookkeeping, "refine", "unknown command %d", d.action)
	}
	cmd := l.model.Commands[d.action]
	if len(d.succ) != len(cmd.Alts) {
		return NoProgress, nil, abserr.Errorf(abserr.Bookkeeping, "refine", "distribution of %s has %d successors", cmd.Label, len(d.succ))
	}
	parts := []*expr.Expr{cmd.Guard}
	for j, alt := range cmd.Alts {
		parts = append(parts, alt.WP(g.Region(d.succ[j])))
	}
	wp := expr.And(parts...)
	region := g.Region(p.State)

	ok, err := l.satisfiable(expr.And(region, wp))
	if err != nil {
		return NoProgress, nil, err
	}
	if !ok {
		for _, c := range append([]ChoiceSet(nil), g.ChoiceSets(p.State)...) {
			if contains(g.sets[c], p.Dist) {
				g.RemoveDistribution(p.State, c, p.Dist)
			}
		}
		l.metrics.Inc(stats.RemovedDistributions)
		l.logger.Debug("spurious distribution removed", "state", int(p.State), "command", cmd.Label)
		return Removed, nil, nil
	}

	ok, err = l.satisfiable(expr.And(region, cmd.Guard, expr.Not(wp)))
	if err != nil {
		return NoProgress, nil, err
	}
	if !ok {
		removed := 0
		for _, c := range append([]ChoiceSet(nil), g.ChoiceSets(p.State)...) {
			for _, e := range g.sets[c] {
				if e != p.Dist && g.dists[e].action == d.action && !sameSucc(g.dists[e].succ, d.succ) {
					g.RemoveChoiceSet(p.State, c)
					removed++
					break
				}
			}
		}
		if removed == 0 {
			return NoProgress, nil, nil
		}
		l.metrics.Add(stats.RemovedDistributions, float64(removed))
		l.logger.Debug("spurious choice sets removed", "state", int(p.State), "count", removed)
		return Removed, nil, nil
	}

	fresh := g.DoSplit(p)
	g.SetRegion(fresh, expr.And(region, wp))
	g.SetRegion(p.State, expr.And(region, expr.Not(wp)))
	l.metrics.Inc(stats.Splits)
	l.logger.Debug("state split", "state", int(p.State), "fresh", int(fresh), "command", cmd.Label)
	return Split, expr.Atoms(wp), nil
}

func sameSucc(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}

// Run alternates the computation of bounds and refinement steps until the
// bounds at the initial states are close enough, or no pivot can be refined.
// When no pivot can be refined, a path to the goal is analyzed and, when it
// is spurious, its predicates are passed to the predicate hook.
// Player 2 minimizes when min is true. Bounds from successive rounds are
// intersected.
func (l *Lazy) Run(min bool) (Result, error) {
	res := Result{Min: 0, Max: 1}
	_, e := math.Frexp(l.precision)
	eps := math.Ldexp(1, e)
	for {
		steps := l.g.Until(min)
		l.metrics.Add(stats.GameIterations, float64(steps))
		res.Iterations++
		res.Min = math.Max(res.Min, l.g.MinResult())
		res.Max = math.Min(res.Max, l.g.MaxResult())
		l.logger.Info("game bounds", "iteration", res.Iterations, "min", res.Min, "max", res.Max, "states", l.g.NumStates())
		if res.Max-res.Min < eps {
			return res, nil
		}
		if res.Iterations >= l.maxIterations {
			l.logger.Info("iteration bound reached", "iterations", res.Iterations)
			return res, nil
		}
		if l.maxSplits > 0 && res.Splits >= l.maxSplits {
			l.logger.Info("split bound reached", "splits", res.Splits)
			return res, nil
		}
		p, ok := l.g.Pivot()
		if !ok {
			l.logger.Info("no pivot state")
			if replaced, err := l.refinePath(&res); err != nil || !replaced {
				return res, errors.Wrap(err, "path analysis")
			}
			continue
		}
		out, preds, err := l.Refine(p)
		if err != nil {
			return res, errors.Wrap(err, "lazy refinement")
		}
		switch out {
		case NoProgress:
			l.logger.Info("pivot cannot be refined", "state", int(p.State))
			if replaced, err := l.refinePath(&res); err != nil || !replaced {
				return res, errors.Wrap(err, "path analysis")
			}
		case Split:
			res.Splits++
			if l.onPredicates == nil || len(preds) == 0 {
				continue
			}
			g, err := l.onPredicates(preds)
			if err != nil {
				return res, errors.Wrap(err, "adding predicates")
			}
			if g != nil {
				l.g = g
			}
		}
	}
}
