// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package pred implements the predicates used as abstraction atoms, and the
// insertion-ordered sets of predicates that grow during a refinement run.
//
// A predicate is kept in canonical form: the expression is simplified and
// un-negated (see expr.Canonical), so that a fact and its negation share the
// same representative. A Set never contains two predicates that are
// syntactically equal or the negation of one another. In expensive mode, a Set
// also asks a prover whether a candidate predicate is trivially true or false,
// or equivalent to (the negation of) a predicate already in the set.
package pred

import (
	"io"
	"log/slog"

	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/smt"
	"github.com/dalzilio/pcegar/stats"
	"github.com/pkg/errors"
)

// Predicate is a canonical boolean fact over program variables.
type Predicate struct {
	e *expr.Expr
}

// New returns the predicate representing e, and whether e is equivalent to
// the predicate (positive) or to its negation.
func New(e *expr.Expr) (Predicate, bool) {
	rep, positive := expr.Canonical(e)
	return Predicate{e: rep}, positive
}

// Expr returns the expression of p.
func (p Predicate) Expr() *expr.Expr { return p.e }

// Key returns the canonical key of p.
func (p Predicate) Key() string { return p.e.Key() }

func (p Predicate) String() string { return p.e.String() }

// Class is the verdict returned by Classify.
type Class int

const (
	// Trivial means that the expression is a constant, or is valid or
	// unsatisfiable under the assertions of the prover.
	Trivial Class = iota
	// Contained means that the expression, or its negation, is already in the
	// set.
	Contained
	// Covered means that the expression is equivalent to a predicate of the
	// set, or to its negation.
	Covered
	// Added means that the expression is a new predicate.
	Added
)

func (c Class) String() string {
	switch c {
	case Trivial:
		return "trivial"
	case Contained:
		return "contained"
	case Covered:
		return "covered"
	}
	return "added"
}

// Set is an insertion-ordered collection of unique predicates.
type Set struct {
	config
	preds []Predicate
	index map[string]int
}

type config struct {
	prover     smt.Solver
	expensive  bool
	valueBlast int64
	logger     *slog.Logger
	metrics    *stats.Metrics
}

// Option is a configuration option for sets of predicates.
type Option func(*config)

// WithProver sets the prover used by the expensive checks. Its current
// assertions (typically the invariants of the model) are taken into account.
func WithProver(s smt.Solver) Option {
	return func(c *config) {
		c.prover = s
	}
}

// Expensive enables the prover based checks of Classify.
func Expensive() Option {
	return func(c *config) {
		c.expensive = true
	}
}

// ValueBlasting is used by Extract: every integer variable with at most max
// values gives one predicate x = v for each value v of its range. A value of 0
// disables value blasting.
func ValueBlasting(max int64) Option {
	return func(c *config) {
		c.valueBlast = max
	}
}

// WithLogger sets the logger of the set.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics sets the counters updated by the set.
func WithMetrics(m *stats.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// NewSet returns an empty set of predicates.
func NewSet(opts ...Option) *Set {
	s := &Set{index: make(map[string]int)}
	for _, f := range opts {
		f(&s.config)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Len returns the number of predicates in s.
func (s *Set) Len() int { return len(s.preds) }

// At returns the i'th predicate of s.
func (s *Set) At(i int) Predicate { return s.preds[i] }

// Exprs returns the expressions of the predicates of s, in insertion order.
func (s *Set) Exprs() []*expr.Expr {
	res := make([]*expr.Expr, len(s.preds))
	for k, p := range s.preds {
		res[k] = p.e
	}
	return res
}

// Lookup returns the index of the predicate representing e, and whether e is
// the negation of this predicate.
func (s *Set) Lookup(e *expr.Expr) (index int, negated bool, ok bool) {
	rep, positive := expr.Canonical(e)
	index, ok = s.index[rep.Key()]
	return index, !positive, ok
}

// Classify returns the verdict of adding e to s, without modifying s. The
// checks are performed in order: constants and exact matches first, then, in
// expensive mode, validity and equivalence with the predicates of the set.
//
// An inconclusive prover answer never leads to Trivial or Covered: the
// predicate is reported as Added.
func (s *Set) Classify(e *expr.Expr) (Class, error) {
	if e.Type() != expr.BoolType {
		return Trivial, abserr.Errorf(abserr.Malformed, "classify", "predicate %s is not boolean", e)
	}
	rep, _ := expr.Canonical(e)
	if rep.IsConst() {
		return Trivial, nil
	}
	if _, ok := s.index[rep.Key()]; ok {
		return Contained, nil
	}
	if !s.expensive || s.prover == nil {
		return Added, nil
	}
	unknown := false
	for _, q := range []*expr.Expr{rep, expr.Not(rep)} {
		v, err := s.valid(q)
		if err != nil {
			return Added, err
		}
		switch v {
		case yes:
			return Trivial, nil
		case maybe:
			unknown = true
		}
	}
	vars := expr.Vars(rep)
	for _, p := range s.preds {
		if !shareVars(vars, expr.Vars(p.e)) {
			continue
		}
		for _, q := range []*expr.Expr{expr.Iff(rep, p.e), expr.Iff(rep, expr.Not(p.e))} {
			v, err := s.valid(q)
			if err != nil {
				return Added, err
			}
			switch v {
			case yes:
				return Covered, nil
			case maybe:
				unknown = true
			}
		}
	}
	if unknown {
		s.metrics.Inc(stats.SolverUnknown)
		s.logger.Warn("prover inconclusive, predicate kept", "predicate", rep.String())
	}
	return Added, nil
}

type verdict int

const (
	no verdict = iota
	yes
	maybe
)

// valid asks the prover whether q is valid. An inconclusive answer is maybe,
// never no.
func (s *Set) valid(q *expr.Expr) (verdict, error) {
	ok, err := smt.Valid(s.prover, q)
	switch {
	case abserr.IsInconclusive(err):
		return maybe, nil
	case err != nil:
		return no, errors.Wrapf(err, "checking %s", q)
	case ok:
		return yes, nil
	}
	return no, nil
}

func shareVars(a, b []string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// Add classifies e and inserts it in s only if the verdict is Added. It
// returns the verdict together with the predicate representing e.
func (s *Set) Add(e *expr.Expr) (Class, Predicate, error) {
	c, err := s.Classify(e)
	if err != nil {
		return c, Predicate{}, err
	}
	p, _ := New(e)
	if c == Added {
		s.index[p.Key()] = len(s.preds)
		s.preds = append(s.preds, p)
		s.metrics.Set(stats.Predicates, float64(len(s.preds)))
	}
	s.logger.Debug("add predicate", "predicate", p.String(), "verdict", c.String())
	return c, p, nil
}

// Merge adds every predicate of o to s, one by one. It returns the predicates
// that were actually added.
func (s *Set) Merge(o *Set) ([]Predicate, error) {
	res := []Predicate{}
	for _, p := range o.preds {
		c, q, err := s.Add(p.e)
		if err != nil {
			return res, err
		}
		if c == Added {
			res = append(res, q)
		}
	}
	return res, nil
}
