// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package encoding maps predicates and choices to the variables of a decision
// diagram.
//
// Variables are allocated in three blocks, in increasing order:
//
//	[ nondeterministic choices | probabilistic choice | state variables ]
//
// The first block is managed as a stack of choice ranges: the interleaving
// range, that selects a command, is pushed when the manager is created, and
// each abstract command pushes (and releases) ranges to number the distinct
// successor sets of its clusters. The second block encodes the index of the
// alternative of a command. In the third block, the predicate with index i is
// associated with variable base+2i in the present state and base+2i+1 in the
// next state, so that the two copies are adjacent in the variable order.
package encoding

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/dd"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/pred"
)

// Manager is the bijection between predicates and state variables, and
// between choices and choice variables.
type Manager struct {
	b         *dd.BDD
	nondet    int // number of nondeterministic choice variables
	top       int // first free nondeterministic variable
	ranges    []*ChoiceRange
	ilv       *ChoiceRange
	probLower int
	probBits  int
	base      int
	preds     []pred.Predicate
	index     map[string]int
	toNext    *dd.Replacer
	toPresent *dd.Replacer
	nrepl     int // number of state variables covered by the replacers
	err       error
}

// need returns the number of bits needed to encode n distinct values.
func need(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// NewManager returns a manager for a model with ncommands commands and at most
// maxAlts alternatives per command. Parameter nondetBits is the number of
// nondeterministic choice variables available to the commands, in addition to
// the interleaving range. The interleaving range has one more value than the
// number of commands, used for the self-loops added on deadlock states.
func NewManager(b *dd.BDD, ncommands, maxAlts, nondetBits int) (*Manager, error) {
	m := &Manager{
		b:        b,
		index:    make(map[string]int),
		probBits: need(maxAlts),
	}
	ilvBits := need(ncommands + 1)
	m.nondet = nondetBits + ilvBits
	m.probLower = m.nondet
	m.base = m.nondet + m.probBits
	if b.Varnum() < m.base {
		if err := b.SetVarnum(m.base); err != nil {
			return nil, abserr.E(abserr.Bookkeeping, "encoding", err)
		}
	}
	ilv, err := m.PushNondet(ncommands + 1)
	if err != nil {
		return nil, err
	}
	m.ilv = ilv
	return m, nil
}

// BDD returns the decision diagram manager.
func (m *Manager) BDD() *dd.BDD { return m.b }

// Err returns the first bookkeeping error found by the manager, including the
// sticky error of the decision diagram.
func (m *Manager) Err() error {
	if m.err != nil {
		return m.err
	}
	if m.b.Errored() {
		return abserr.E(abserr.Bookkeeping, "bdd", m.b.Err())
	}
	return nil
}

func (m *Manager) seterror(op, format string, a ...interface{}) dd.Node {
	if m.err == nil {
		m.err = abserr.Errorf(abserr.Bookkeeping, op, format, a...)
	}
	return m.b.False()
}

// ChoiceRange is a block of consecutive choice variables that encodes an
// integer in binary.
type ChoiceRange struct {
	m        *Manager
	lower    int
	upper    int
	size     int
	released bool
}

// PushNondet allocates a range for n distinct nondeterministic choices on top
// of the stack of ranges.
func (m *Manager) PushNondet(n int) (*ChoiceRange, error) {
	k := need(n)
	if m.top+k > m.nondet {
		return nil, abserr.Errorf(abserr.Bookkeeping, "push", "no room for %d nondeterministic choices (%d variables left)", n, m.nondet-m.top)
	}
	r := &ChoiceRange{m: m, lower: m.top, upper: m.top + k, size: n}
	m.top += k
	m.ranges = append(m.ranges, r)
	return r, nil
}

// Release frees r. Ranges must be released in the reverse order of their
// creation.
func (r *ChoiceRange) Release() error {
	m := r.m
	if r.released {
		return abserr.Errorf(abserr.Bookkeeping, "release", "range [%d, %d) released twice", r.lower, r.upper)
	}
	if len(m.ranges) == 0 || m.ranges[len(m.ranges)-1] != r {
		return abserr.Errorf(abserr.Bookkeeping, "release", "range [%d, %d) is not on top of the stack", r.lower, r.upper)
	}
	m.ranges = m.ranges[:len(m.ranges)-1]
	m.top = r.lower
	r.released = true
	return nil
}

// Vars returns the variables of r.
func (r *ChoiceRange) Vars() []int {
	res := make([]int, 0, r.upper-r.lower)
	for v := r.lower; v < r.upper; v++ {
		res = append(res, v)
	}
	return res
}

// Size returns the number of values of r.
func (r *ChoiceRange) Size() int { return r.size }

// Value returns the cube encoding value k in r. A value outside the range sets
// the error of the manager and returns False.
func (r *ChoiceRange) Value(k int) dd.Node {
	if k < 0 || k >= r.size {
		return r.m.seterror("choice", "value %d outside of range [0, %d)", k, r.size)
	}
	return r.m.binary(r.lower, r.upper-r.lower, k)
}

func (m *Manager) binary(lower, nbits, k int) dd.Node {
	vars := make([]int, nbits)
	values := make([]bool, nbits)
	for i := 0; i < nbits; i++ {
		vars[i] = lower + i
		values[i] = k&(1<<i) != 0
	}
	return m.b.Cube(vars, values)
}

// Interleaving returns the range used to select a command.
func (m *Manager) Interleaving() *ChoiceRange { return m.ilv }

// NumNondet returns the number of nondeterministic choice variables, including
// the interleaving range.
func (m *Manager) NumNondet() int { return m.nondet }

// NondetTop returns the first nondeterministic variable that is not used by a
// range on the stack.
func (m *Manager) NondetTop() int { return m.top }

// ProbChoice returns the cube encoding the choice of alternative k.
func (m *Manager) ProbChoice(k int) dd.Node {
	if k < 0 || k >= 1<<m.probBits {
		return m.seterror("choice", "alternative %d outside of range", k)
	}
	return m.binary(m.probLower, m.probBits, k)
}

// CreateStateVar allocates the pair of state variables of predicate p and
// returns its index. It is an error to register the same predicate twice.
func (m *Manager) CreateStateVar(p pred.Predicate) (int, error) {
	if _, ok := m.index[p.Key()]; ok {
		return 0, abserr.Errorf(abserr.Bookkeeping, "state variable", "predicate %s already registered", p)
	}
	i := len(m.preds)
	if err := m.b.SetVarnum(m.base + 2*i + 2); err != nil {
		return 0, abserr.E(abserr.Bookkeeping, "state variable", err)
	}
	m.preds = append(m.preds, p)
	m.index[p.Key()] = i
	return i, nil
}

// StateVar returns the index of the state variable associated with the
// predicate of e, and whether e is the negation of this predicate.
func (m *Manager) StateVar(e *expr.Expr) (index int, negated bool, ok bool) {
	p, positive := pred.New(e)
	index, ok = m.index[p.Key()]
	return index, !positive, ok
}

// NumStateVars returns the number of registered predicates.
func (m *Manager) NumStateVars() int { return len(m.preds) }

// Predicate returns the predicate of state variable i.
func (m *Manager) Predicate(i int) pred.Predicate { return m.preds[i] }

// Present returns the decision diagram variable of state variable i in the
// present state.
func (m *Manager) Present(i int) int { return m.base + 2*i }

// Next returns the decision diagram variable of state variable i in the next
// state.
func (m *Manager) Next(i int) int { return m.base + 2*i + 1 }

// decode returns the state variable of a diagram variable, and whether it is a
// next state variable.
func (m *Manager) decode(v int) (int, bool, bool) {
	if v < m.base || v >= m.base+2*len(m.preds) {
		return 0, false, false
	}
	return (v - m.base) / 2, (v-m.base)%2 == 1, true
}

func (m *Manager) isProb(v int) bool {
	return v >= m.probLower && v < m.probLower+m.probBits
}

func (m *Manager) stateVars(next bool) []int {
	vars := make([]int, len(m.preds))
	for i := range vars {
		vars[i] = m.Present(i)
		if next {
			vars[i] = m.Next(i)
		}
	}
	return vars
}

func span(lower, n int) []int {
	vars := make([]int, n)
	for i := range vars {
		vars[i] = lower + i
	}
	return vars
}

// PresentSet returns the set of all present state variables.
func (m *Manager) PresentSet() dd.Node { return m.b.Makeset(m.stateVars(false)) }

// NextSet returns the set of all next state variables.
func (m *Manager) NextSet() dd.Node { return m.b.Makeset(m.stateVars(true)) }

// ProbSet returns the set of probabilistic choice variables.
func (m *Manager) ProbSet() dd.Node { return m.b.Makeset(span(m.probLower, m.probBits)) }

// NondetSet returns the set of all nondeterministic choice variables,
// including the interleaving range.
func (m *Manager) NondetSet() dd.Node { return m.b.Makeset(span(0, m.nondet)) }

func (m *Manager) replacers() error {
	if m.nrepl == len(m.preds) && m.toNext != nil {
		return nil
	}
	present, next := m.stateVars(false), m.stateVars(true)
	var err error
	if m.toNext, err = m.b.NewReplacer(present, next); err != nil {
		return abserr.E(abserr.Bookkeeping, "replace", err)
	}
	if m.toPresent, err = m.b.NewReplacer(next, present); err != nil {
		return abserr.E(abserr.Bookkeeping, "replace", err)
	}
	m.nrepl = len(m.preds)
	return nil
}

// ToNext renames the present state variables of n into next state variables.
// The diagram n must not depend on next state variables.
func (m *Manager) ToNext(n dd.Node) dd.Node {
	if err := m.replacers(); err != nil {
		m.err = err
		return m.b.False()
	}
	return m.b.Replace(n, m.toNext)
}

// ToPresent renames the next state variables of n into present state
// variables. The diagram n must not depend on present state variables.
func (m *Manager) ToPresent(n dd.Node) dd.Node {
	if err := m.replacers(); err != nil {
		m.err = err
		return m.b.False()
	}
	return m.b.Replace(n, m.toPresent)
}

// Post returns the successors of the states in from for the transition
// relation trans.
func (m *Manager) Post(from, trans dd.Node) dd.Node {
	vars := append(span(0, m.nondet+m.probBits), m.stateVars(false)...)
	varset := m.b.Makeset(vars)
	return m.ToPresent(m.b.AndExist(varset, from, trans))
}

// Encode returns the diagram of a boolean combination of predicates. Every
// atom of e must be registered.
func (m *Manager) Encode(e *expr.Expr) (dd.Node, error) {
	memo := make(map[*expr.Expr]dd.Node)
	var rec func(*expr.Expr) (dd.Node, error)
	rec = func(e *expr.Expr) (dd.Node, error) {
		if n, ok := memo[e]; ok {
			return n, nil
		}
		var res dd.Node
		switch {
		case e.IsTrue():
			return m.b.True(), nil
		case e.IsFalse():
			return m.b.False(), nil
		case e.Op() == expr.OpNot:
			n, err := rec(e.Arg(0))
			if err != nil {
				return nil, err
			}
			res = m.b.Not(n)
		case e.Op() == expr.OpAnd || e.Op() == expr.OpOr:
			args := make([]dd.Node, len(e.Args()))
			for k, a := range e.Args() {
				n, err := rec(a)
				if err != nil {
					return nil, err
				}
				args[k] = n
			}
			if e.Op() == expr.OpAnd {
				res = m.b.And(args...)
			} else {
				res = m.b.Or(args...)
			}
		case e.Op() == expr.OpEq && e.Arg(0).Type() == expr.BoolType:
			l, err := rec(e.Arg(0))
			if err != nil {
				return nil, err
			}
			r, err := rec(e.Arg(1))
			if err != nil {
				return nil, err
			}
			res = m.b.Equiv(l, r)
		case e.Op() == expr.OpIte && e.Type() == expr.BoolType:
			args := make([]dd.Node, 3)
			for k, a := range e.Args() {
				n, err := rec(a)
				if err != nil {
					return nil, err
				}
				args[k] = n
			}
			res = m.b.Ite(args[0], args[1], args[2])
		default:
			i, negated, ok := m.StateVar(e)
			if !ok {
				return nil, abserr.Errorf(abserr.Bookkeeping, "encode", "predicate %s is not registered", e)
			}
			res = m.b.Ithvar(m.Present(i))
			if negated {
				res = m.b.NIthvar(m.Present(i))
			}
		}
		memo[e] = res
		return res, nil
	}
	res, err := rec(e)
	if err != nil {
		return nil, err
	}
	return res, m.Err()
}

// VarName returns a readable name for diagram variable v.
func (m *Manager) VarName(v int) string {
	switch {
	case v < m.ilv.upper:
		return fmt.Sprintf("ilv%d", v)
	case v < m.nondet:
		return fmt.Sprintf("nd%d", v-m.ilv.upper)
	case m.isProb(v):
		return fmt.Sprintf("pc%d", v-m.probLower)
	}
	if i, next, ok := m.decode(v); ok {
		if next {
			return fmt.Sprintf("[%s]'", m.preds[i])
		}
		return fmt.Sprintf("[%s]", m.preds[i])
	}
	return fmt.Sprintf("v%d", v)
}

// WriteDot outputs the diagrams in n in DOT format, with variables labeled by
// their predicate or choice.
func (m *Manager) WriteDot(w io.Writer, n ...dd.Node) error {
	return m.b.PrintDot(w, m.VarName, n...)
}
