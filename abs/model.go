// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package abs computes the predicate abstraction of a probabilistic program as
// a symbolic transition system.
//
// Each guarded command is abstracted independently: its proof obligations are
// split into clusters (see package decomp), the satisfying assignments of each
// cluster are enumerated with a solver, and the resulting cubes are collected
// in a SymbolicCluster. The relations of the clusters are then combined with
// the frame condition of the command, and the commands are combined through
// the interleaving choice variables.
//
// A Model is refined by adding predicates and calling Refine. Clusters that are
// not affected by the new predicates are reused, and the relation of the
// previous round is used to prune the enumeration of the others. When the
// enumeration of a command cannot complete within the enumeration limit, the
// abstraction is computed on the fly, from the initial states.
package abs

import (
	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/dd"
	"github.com/dalzilio/pcegar/decomp"
	"github.com/dalzilio/pcegar/encoding"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/lang"
	"github.com/dalzilio/pcegar/pred"
	"github.com/dalzilio/pcegar/smt"
	"github.com/dalzilio/pcegar/stats"
	"github.com/pkg/errors"
)

// Model is the abstraction of a probabilistic program over a growing set of
// predicates.
type Model struct {
	configs
	model      *lang.Model
	factory    smt.Factory
	invariants []*expr.Expr
	preds      *pred.Set
	b          *dd.BDD
	enc        *encoding.Manager
	commands   []*Command
	cache      *decomp.Cache[*cluster]
	initial    dd.Node
	reach      dd.Node
	trans      dd.Node
	matrix     dd.Node
	rounds     int
}

// New returns the abstraction of model m with no predicates. Solvers are
// obtained from factory.
func New(m *lang.Model, factory smt.Factory, opts ...Option) (*Model, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	cfg := makeconfigs()
	for _, f := range opts {
		f(cfg)
	}
	cfg.setdefaults()
	b, err := dd.New(0, cfg.ddopts...)
	if err != nil {
		return nil, abserr.E(abserr.Bookkeeping, "abstraction", err)
	}
	enc, err := encoding.NewManager(b, len(m.Commands), m.MaxAlternatives(), cfg.nondetBits)
	if err != nil {
		return nil, err
	}
	res := &Model{
		configs:    *cfg,
		model:      m,
		factory:    factory,
		invariants: m.AllInvariants(),
		b:          b,
		enc:        enc,
		cache:      decomp.NewCache[*cluster](),
	}
	popts := []pred.Option{pred.WithLogger(cfg.logger), pred.WithMetrics(cfg.metrics)}
	if cfg.expensive {
		prover, err := factory(m.Vars)
		if err != nil {
			return nil, errors.Wrap(err, "creating prover")
		}
		for _, e := range res.invariants {
			if err := prover.Assert(e); err != nil {
				return nil, err
			}
		}
		popts = append(popts, pred.Expensive(), pred.WithProver(prover))
	}
	res.preds = pred.NewSet(popts...)
	for k, c := range m.Commands {
		res.commands = append(res.commands, newCommand(res, k, c))
	}
	return res, nil
}

// BDD returns the decision diagram manager of the abstraction.
func (m *Model) BDD() *dd.BDD { return m.b }

// Manager returns the encoding of predicates and choices.
func (m *Model) Manager() *encoding.Manager { return m.enc }

// Predicates returns the current predicates.
func (m *Model) Predicates() *pred.Set { return m.preds }

// Concrete returns the concrete model.
func (m *Model) Concrete() *lang.Model { return m.model }

// Commands returns the abstract commands, in the order of the concrete model.
func (m *Model) Commands() []*Command { return m.commands }

// Initial returns the abstract initial states.
func (m *Model) Initial() dd.Node { return m.initial }

// Reachable returns the reachable abstract states.
func (m *Model) Reachable() dd.Node { return m.reach }

// Transitions returns the 0/1 transition relation, restricted to reachable
// states.
func (m *Model) Transitions() dd.Node { return m.trans }

// Matrix returns the transition relation weighted by probabilities,
// restricted to reachable states.
func (m *Model) Matrix() dd.Node { return m.matrix }

// Done reports whether the enumeration of every command is complete, in
// which case the abstraction does not depend on the set of reachable states.
func (m *Model) Done() bool {
	for _, c := range m.commands {
		if !c.Done() {
			return false
		}
	}
	return true
}

// Rounds returns the number of calls to Refine that added predicates.
func (m *Model) Rounds() int { return m.rounds }

// AddPredicate adds the predicate of e to the abstraction. The state variables
// of a new predicate are allocated immediately, but the transition relation is
// only updated by Refine.
func (m *Model) AddPredicate(e *expr.Expr) (pred.Class, error) {
	c, p, err := m.preds.Add(e)
	if err != nil {
		return c, err
	}
	if c == pred.Added {
		if _, err := m.enc.CreateStateVar(p); err != nil {
			return c, err
		}
	}
	return c, nil
}

// Refine adds predicates es and recomputes the abstraction. Calling Refine
// with no new predicate after a first round does nothing.
func (m *Model) Refine(es []*expr.Expr) error {
	added := 0
	for _, e := range es {
		c, err := m.AddPredicate(e)
		if err != nil {
			return errors.Wrap(err, "refine")
		}
		if c == pred.Added {
			added++
		}
	}
	if added == 0 && m.rounds > 0 {
		m.logger.Info("no new predicate", "round", m.rounds)
		return nil
	}
	m.rounds++
	m.metrics.Inc(stats.RefineRounds)
	m.logger.Info("refinement round", "round", m.rounds, "predicates", m.preds.Len(), "new", added)

	b := m.b
	care := b.True()
	if m.reach != nil {
		care = m.reach
	}
	for _, c := range m.commands {
		if err := c.Update(care); err != nil {
			return err
		}
	}
	initial, err := m.Cover(m.model.Init, care)
	if err != nil {
		return errors.Wrap(err, "abstracting initial states")
	}
	m.initial = initial

	limit := 0
	if m.incremental {
		limit = m.limit
	}
	pending := []*Command{}
	for _, c := range m.commands {
		if _, err := c.ComputeAbstractPost(care, limit, true); err != nil {
			return err
		}
		if !c.Done() {
			pending = append(pending, c)
		}
	}
	if len(pending) > 0 {
		m.logger.Info("on-the-fly exploration", "pending", len(pending))
		if err := m.onTheFly(); err != nil {
			return err
		}
	}
	return m.finalize()
}

// onTheFly explores the abstract state space from the initial states,
// enumerating the transitions of the pending commands from the frontier only.
func (m *Model) onTheFly() error {
	b := m.b
	reach := m.initial
	frontier := m.initial
	for !b.IsFalse(frontier) {
		rel := b.False()
		for _, c := range m.commands {
			var t dd.Node
			if c.Done() {
				t = c.Trans01()
			} else {
				var err error
				if t, err = c.ComputeAbstractPost(frontier, 0, false); err != nil {
					return err
				}
			}
			rel = b.Or(rel, t)
		}
		post := m.enc.Post(frontier, rel)
		frontier = b.Diff(post, reach)
		reach = b.Or(reach, frontier)
		if err := m.enc.Err(); err != nil {
			return err
		}
	}
	return nil
}

// finalize assembles the relation of the model from the relations of the
// commands, and restricts it to the reachable states.
func (m *Model) finalize() error {
	b := m.b
	ilv := m.enc.Interleaving()
	trans := b.False()
	matrix := b.False()
	for k := len(m.commands) - 1; k >= 0; k-- {
		c := m.commands[k]
		if err := c.Finalize(); err != nil {
			return err
		}
		trans = b.Or(trans, b.And(ilv.Value(k), c.BDD()))
		matrix = b.Ite(ilv.Value(k), c.MTBDD(), matrix)
	}
	reach := m.initial
	frontier := m.initial
	for !b.IsFalse(frontier) {
		frontier = b.Diff(m.enc.Post(frontier, trans), reach)
		reach = b.Or(reach, frontier)
	}
	m.reach = reach
	m.trans = b.And(trans, reach)
	m.matrix = b.Times(reach, matrix)
	if m.deadlocks {
		m.fixDeadlocks()
	}
	if err := m.enc.Err(); err != nil {
		return err
	}
	m.metrics.Set(stats.ReachableStates, b.CountMinterm(m.reach, m.enc.NumStateVars()))
	m.logger.Info("abstraction built", "states", b.CountMinterm(m.reach, m.enc.NumStateVars()), "done", m.Done())
	return nil
}

// fixDeadlocks adds a self-loop, selected by the last value of the
// interleaving range, on every reachable state without successor.
func (m *Model) fixDeadlocks() {
	b := m.b
	vars := append(b.Scanset(m.enc.NondetSet()), b.Scanset(m.enc.ProbSet())...)
	varset := b.Makeset(append(vars, b.Scanset(m.enc.NextSet())...))
	deadlock := b.Diff(m.reach, b.Exist(m.trans, varset))
	if b.IsFalse(deadlock) {
		return
	}
	loop := b.And(deadlock, m.enc.Interleaving().Value(len(m.commands)), m.enc.ProbChoice(0))
	for v := len(m.enc.Interleaving().Vars()); v < m.enc.NumNondet(); v++ {
		loop = b.And(loop, b.NIthvar(v))
	}
	for i := 0; i < m.enc.NumStateVars(); i++ {
		loop = b.And(loop, b.Equiv(b.Ithvar(m.enc.Present(i)), b.Ithvar(m.enc.Next(i))))
	}
	m.logger.Debug("deadlock states", "count", b.CountMinterm(deadlock, m.enc.NumStateVars()))
	m.trans = b.Or(m.trans, loop)
	m.matrix = b.Plus(m.matrix, loop)
}
