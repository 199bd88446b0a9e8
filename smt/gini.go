// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package smt

import (
	"time"

	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/lang"
	"github.com/dalzilio/pcegar/stats"
	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
)

type config struct {
	timeout time.Duration
	maxsize int
	metrics *stats.Metrics
}

// Option is a configuration option of the solvers in this package.
type Option func(*config)

// Timeout bounds the duration of each satisfiability check. When the timeout
// expires the answer is Unknown. A zero duration means no limit.
func Timeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// MaxAssignments bounds the number of assignments explored by the enumerating
// solver for a single query. Beyond this bound the answer is Unknown. A zero
// value means no limit.
func MaxAssignments(n int) Option {
	return func(c *config) {
		c.maxsize = n
	}
}

// WithMetrics sets the counters updated by the solver.
func WithMetrics(m *stats.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// Gini is a Solver that translates expressions into an and-inverter graph,
// bit-blasting bounded integer variables, and decides them with the gini SAT
// solver. Assertion frames are implemented with activation literals.
type Gini struct {
	config
	c      *logic.C
	g      *gini.Gini
	mark   []int8
	bl     blaster
	decls  map[string]lang.Var
	bools  map[string]z.Lit
	ints   map[string]bv
	memo   map[string]z.Lit
	imemo  map[string]bv
	frames []z.Lit
}

// NewGini returns a gini solver for a model with variables vars.
func NewGini(vars []lang.Var, opts ...Option) (*Gini, error) {
	s := &Gini{
		c:     logic.NewC(),
		g:     gini.New(),
		decls: make(map[string]lang.Var, len(vars)),
		bools: make(map[string]z.Lit),
		ints:  make(map[string]bv),
		memo:  make(map[string]z.Lit),
		imemo: make(map[string]bv),
	}
	for _, f := range opts {
		f(&s.config)
	}
	s.bl = blaster{c: s.c}
	for _, v := range vars {
		if v.Kind == lang.IntKind {
			if err := checkRange(v.Lo, v.Hi); err != nil {
				return nil, abserr.E(abserr.Malformed, "gini", errors.Wrapf(err, "variable %s", v.Name))
			}
		}
		s.decls[v.Name] = v
	}
	return s, nil
}

// GiniFactory returns a Factory for gini solvers.
func GiniFactory(opts ...Option) Factory {
	return func(vars []lang.Var) (Solver, error) {
		return NewGini(vars, opts...)
	}
}

// addClause adds the circuit rooted at the literals and then the clause made of
// these literals.
func (s *Gini) addClause(ms ...z.Lit) {
	s.mark, _ = s.c.CnfSince(s.g, s.mark, ms...)
	for _, m := range ms {
		s.g.Add(m)
	}
	s.g.Add(0)
}

// activation returns a fresh activation literal, known to the SAT solver.
func (s *Gini) activation() z.Lit {
	act := s.c.Lit()
	s.addClause(act, s.c.T)
	return act
}

// Push opens a new assertion frame.
func (s *Gini) Push() {
	s.frames = append(s.frames, s.activation())
}

// Pop discards the last assertion frame. Its activation literal is disabled
// for good.
func (s *Gini) Pop() error {
	if len(s.frames) == 0 {
		return abserr.Errorf(abserr.Bookkeeping, "pop", "no assertion frame")
	}
	act := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	s.addClause(act.Not())
	return nil
}

// Assert adds e to the current frame.
func (s *Gini) Assert(e *expr.Expr) error {
	m, err := s.lit(e)
	if err != nil {
		return err
	}
	if len(s.frames) == 0 {
		s.addClause(m)
		return nil
	}
	s.addClause(s.frames[len(s.frames)-1].Not(), m)
	return nil
}

func (s *Gini) solve(assumptions ...z.Lit) Verdict {
	s.metrics.Inc(stats.SolverChecks)
	s.g.Assume(s.frames...)
	s.g.Assume(assumptions...)
	var res int
	if s.timeout > 0 {
		res = s.g.GoSolve().Try(s.timeout)
	} else {
		res = s.g.Solve()
	}
	switch res {
	case 1:
		return Sat
	case -1:
		return Unsat
	}
	s.metrics.Inc(stats.SolverUnknown)
	return Unknown
}

// Check decides the satisfiability of the current assertions.
func (s *Gini) Check() (Verdict, error) {
	return s.solve(), nil
}

// Model returns the value of the variables in the last satisfying assignment.
// Booleans are encoded as 0 and 1.
func (s *Gini) Model() map[string]int64 {
	res := make(map[string]int64)
	for name, m := range s.bools {
		if s.g.Value(m) {
			res[name] = 1
		} else {
			res[name] = 0
		}
	}
	for name, x := range s.ints {
		res[name] = s.value(x)
	}
	return res
}

func (s *Gini) value(x bv) int64 {
	var v int64
	for k, m := range x.bits {
		if s.g.Value(m) {
			v |= 1 << k
		}
	}
	// sign extension
	w := len(x.bits)
	if w < 64 && (v>>(w-1))&1 == 1 {
		v -= 1 << w
	}
	return v
}

// lit returns the literal for a boolean expression.
func (s *Gini) lit(e *expr.Expr) (z.Lit, error) {
	if e.Type() != expr.BoolType {
		return z.LitNull, abserr.Errorf(abserr.Malformed, "gini", "expression %s is not boolean", e)
	}
	if m, ok := s.memo[e.Key()]; ok {
		return m, nil
	}
	m, err := s.blastBool(e)
	if err != nil {
		return z.LitNull, err
	}
	s.memo[e.Key()] = m
	return m, nil
}

func (s *Gini) lits(es []*expr.Expr) ([]z.Lit, error) {
	res := make([]z.Lit, len(es))
	for k, a := range es {
		m, err := s.lit(a)
		if err != nil {
			return nil, err
		}
		res[k] = m
	}
	return res, nil
}

func (s *Gini) blastBool(e *expr.Expr) (z.Lit, error) {
	c := s.c
	switch e.Op() {
	case expr.OpConst:
		if e.IsTrue() {
			return c.T, nil
		}
		return c.F, nil
	case expr.OpVar:
		if m, ok := s.bools[e.Name()]; ok {
			return m, nil
		}
		v, ok := s.decls[e.Name()]
		if !ok || v.Kind != lang.BoolKind {
			return z.LitNull, abserr.Errorf(abserr.Malformed, "gini", "unknown boolean variable %s", e.Name())
		}
		m := c.Lit()
		// make the input known to the SAT solver
		s.addClause(m, c.T)
		s.bools[e.Name()] = m
		return m, nil
	case expr.OpNot:
		m, err := s.lit(e.Arg(0))
		return m.Not(), err
	case expr.OpAnd, expr.OpOr:
		ms, err := s.lits(e.Args())
		if err != nil {
			return z.LitNull, err
		}
		if e.Op() == expr.OpAnd {
			return c.Ands(ms...), nil
		}
		return c.Ors(ms...), nil
	case expr.OpIte:
		ms, err := s.lits(e.Args())
		if err != nil {
			return z.LitNull, err
		}
		return c.Choice(ms[0], ms[1], ms[2]), nil
	case expr.OpEq:
		if e.Arg(0).Type() == expr.BoolType {
			ms, err := s.lits(e.Args())
			if err != nil {
				return z.LitNull, err
			}
			return c.Xor(ms[0], ms[1]).Not(), nil
		}
		x, y, err := s.term2(e)
		if err != nil {
			return z.LitNull, err
		}
		return s.bl.eq(x, y), nil
	case expr.OpLt, expr.OpLe:
		x, y, err := s.term2(e)
		if err != nil {
			return z.LitNull, err
		}
		if e.Op() == expr.OpLt {
			return s.bl.lt(x, y), nil
		}
		return s.bl.le(x, y), nil
	}
	return z.LitNull, abserr.Errorf(abserr.Malformed, "gini", "unsupported boolean operator %s in %s", e.Op(), e)
}

func (s *Gini) term2(e *expr.Expr) (bv, bv, error) {
	x, err := s.term(e.Arg(0))
	if err != nil {
		return bv{}, bv{}, err
	}
	y, err := s.term(e.Arg(1))
	return x, y, err
}

// term returns the bit-vector for an integer expression.
func (s *Gini) term(e *expr.Expr) (bv, error) {
	if x, ok := s.imemo[e.Key()]; ok {
		return x, nil
	}
	x, err := s.blastInt(e)
	if err != nil {
		return bv{}, err
	}
	s.imemo[e.Key()] = x
	return x, nil
}

func (s *Gini) blastInt(e *expr.Expr) (bv, error) {
	if e.Type() != expr.IntType {
		return bv{}, abserr.Errorf(abserr.Malformed, "gini", "expression %s is not an integer", e)
	}
	switch e.Op() {
	case expr.OpConst:
		return s.bl.constant(e.Value()), nil
	case expr.OpVar:
		if x, ok := s.ints[e.Name()]; ok {
			return x, nil
		}
		v, ok := s.decls[e.Name()]
		if !ok || v.Kind != lang.IntKind {
			return bv{}, abserr.Errorf(abserr.Malformed, "gini", "unknown integer variable %s", e.Name())
		}
		x, inrange := s.bl.input(v.Lo, v.Hi)
		// range constraints hold in every frame
		s.addClause(inrange)
		for _, m := range x.bits {
			s.addClause(m, s.c.T)
		}
		s.ints[e.Name()] = x
		return x, nil
	case expr.OpIte:
		c, err := s.lit(e.Arg(0))
		if err != nil {
			return bv{}, err
		}
		t, err := s.term(e.Arg(1))
		if err != nil {
			return bv{}, err
		}
		f, err := s.term(e.Arg(2))
		if err != nil {
			return bv{}, err
		}
		return s.bl.ite(c, t, f), nil
	case expr.OpNeg:
		x, err := s.term(e.Arg(0))
		if err != nil {
			return bv{}, err
		}
		return s.bl.neg(x)
	case expr.OpSub:
		x, y, err := s.term2(e)
		if err != nil {
			return bv{}, err
		}
		return s.bl.sub(x, y)
	case expr.OpAdd, expr.OpMul:
		acc, err := s.term(e.Arg(0))
		if err != nil {
			return bv{}, err
		}
		for _, a := range e.Args()[1:] {
			y, err := s.term(a)
			if err != nil {
				return bv{}, err
			}
			if e.Op() == expr.OpAdd {
				acc, err = s.bl.add(acc, y)
			} else {
				acc, err = s.bl.mul(acc, y)
			}
			if err != nil {
				return bv{}, abserr.E(abserr.Malformed, "gini", errors.Wrapf(err, "in %s", e))
			}
		}
		return acc, nil
	}
	return bv{}, abserr.Errorf(abserr.Malformed, "gini", "unsupported integer operator %s in %s", e.Op(), e)
}

// Enumerate returns an enumerator over the assignments of exprs. Blocking
// clauses are guarded by an activation literal of the enumerator.
func (s *Gini) Enumerate(exprs []*expr.Expr) (Enumerator, error) {
	ms, err := s.lits(exprs)
	if err != nil {
		return nil, err
	}
	s.mark, _ = s.c.CnfSince(s.g, s.mark, ms...)
	return &giniEnum{s: s, lits: ms, block: s.activation()}, nil
}

type giniEnum struct {
	s      *Gini
	lits   []z.Lit
	block  z.Lit
	closed bool
}

func (en *giniEnum) Run(restriction *expr.Expr, limit int, f func([]Value) error) (int, bool, error) {
	if en.closed {
		return 0, false, abserr.Errorf(abserr.Bookkeeping, "enumerate", "enumerator already closed")
	}
	s := en.s
	assumptions := []z.Lit{en.block}
	if restriction != nil && !restriction.IsTrue() {
		r, err := s.lit(restriction)
		if err != nil {
			return 0, false, err
		}
		ract := s.activation()
		s.addClause(ract.Not(), r)
		defer s.addClause(ract.Not())
		assumptions = append(assumptions, ract)
	}
	n := 0
	cube := make([]Value, len(en.lits))
	for {
		switch s.solve(assumptions...) {
		case Unsat:
			return n, true, nil
		case Unknown:
			return n, false, abserr.Errorf(abserr.Inconclusive, "enumerate", "solver returned unknown after %d cubes", n)
		}
		if limit > 0 && n >= limit {
			return n, false, nil
		}
		blocking := make([]z.Lit, 0, len(en.lits)+1)
		blocking = append(blocking, en.block.Not())
		for k, m := range en.lits {
			if s.g.Value(m) {
				cube[k] = True
				blocking = append(blocking, m.Not())
			} else {
				cube[k] = False
				blocking = append(blocking, m)
			}
		}
		s.addClause(blocking...)
		n++
		s.metrics.Inc(stats.Cubes)
		if err := f(append([]Value(nil), cube...)); err != nil {
			return n, false, err
		}
	}
}

func (en *giniEnum) Close() {
	if !en.closed {
		en.closed = true
		en.s.addClause(en.block.Not())
	}
}
