// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package encoding

import (
	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/dd"
	"github.com/dalzilio/pcegar/expr"
)

// GetExpr returns an expression over the predicates equivalent to the boolean
// diagram n, obtained from an irredundant prime cover of n. The diagram must
// only depend on present state variables.
func (m *Manager) GetExpr(n dd.Node) (*expr.Expr, error) {
	cubes, err := m.b.Isop(n)
	if err != nil {
		return nil, abserr.E(abserr.Bookkeeping, "decode", err)
	}
	disj := make([]*expr.Expr, 0, len(cubes))
	for _, cube := range cubes {
		conj := []*expr.Expr{}
		for v, val := range cube {
			if val < 0 {
				continue
			}
			i, next, ok := m.decode(v)
			if !ok || next {
				return nil, abserr.Errorf(abserr.Bookkeeping, "decode", "variable %s is not a present state variable", m.VarName(v))
			}
			lit := m.preds[i].Expr()
			if val == 0 {
				lit = expr.Not(lit)
			}
			conj = append(conj, lit)
		}
		disj = append(disj, expr.And(conj...))
	}
	return expr.Or(disj...), nil
}

// GetExprIte returns an expression equivalent to the boolean diagram n, with
// one if-then-else per node. The diagram must only depend on present state
// variables.
func (m *Manager) GetExprIte(n dd.Node) (*expr.Expr, error) {
	memo := make(map[int]*expr.Expr)
	var rec func(dd.Node) (*expr.Expr, error)
	rec = func(n dd.Node) (*expr.Expr, error) {
		switch {
		case m.b.IsTrue(n):
			return expr.True(), nil
		case m.b.IsFalse(n):
			return expr.False(), nil
		}
		if e, ok := memo[*n]; ok {
			return e, nil
		}
		v := m.b.Label(n)
		i, next, ok := m.decode(v)
		if !ok || next {
			return nil, abserr.Errorf(abserr.Bookkeeping, "decode", "variable %s is not a present state variable", m.VarName(v))
		}
		lo, err := rec(m.b.Low(n))
		if err != nil {
			return nil, err
		}
		hi, err := rec(m.b.High(n))
		if err != nil {
			return nil, err
		}
		e := expr.Ite(m.preds[i].Expr(), hi, lo)
		memo[*n] = e
		return e, nil
	}
	return rec(n)
}

// Slot designates one copy of a state variable: instance 0 is the present
// state and instance k+1 is the next state reached by alternative k.
type Slot struct {
	Instance int
	Var      int
}

// DecodingMap associates expressions over program variables with slots.
type DecodingMap map[Slot]*expr.Expr

// GetExprMap returns an expression over program variables obtained from
// diagram n by replacing each state variable with the expression associated
// to its slot in dmap. A state variable without an associated expression, as
// well as a nondeterministic choice variable, is existentially abstracted. The
// branches of probabilistic choice variables are conjoined, since all the
// alternatives of a command are possible from the same source state.
func (m *Manager) GetExprMap(n dd.Node, dmap DecodingMap) (*expr.Expr, error) {
	type key struct{ node, pc, mask int }
	memo := make(map[key]*expr.Expr)
	full := 1<<m.probBits - 1
	var rec func(n dd.Node, pc, mask int) (*expr.Expr, error)
	rec = func(n dd.Node, pc, mask int) (*expr.Expr, error) {
		switch {
		case m.b.IsTrue(n):
			return expr.True(), nil
		case m.b.IsFalse(n):
			return expr.False(), nil
		}
		k := key{*n, pc, mask}
		if e, ok := memo[k]; ok {
			return e, nil
		}
		v := m.b.Label(n)
		var e *expr.Expr
		switch {
		case m.isProb(v):
			bit := 1 << (v - m.probLower)
			lo, err := rec(m.b.Low(n), pc, mask|bit)
			if err != nil {
				return nil, err
			}
			hi, err := rec(m.b.High(n), pc|bit, mask|bit)
			if err != nil {
				return nil, err
			}
			conj := []*expr.Expr{}
			for _, c := range []*expr.Expr{lo, hi} {
				if !c.IsFalse() {
					conj = append(conj, c)
				}
			}
			e = expr.And(conj...)
			if len(conj) == 0 {
				e = expr.False()
			}
		default:
			lo, err := rec(m.b.Low(n), pc, mask)
			if err != nil {
				return nil, err
			}
			hi, err := rec(m.b.High(n), pc, mask)
			if err != nil {
				return nil, err
			}
			e = expr.Or(lo, hi)
			if i, next, ok := m.decode(v); ok {
				slot := Slot{Var: i}
				known := true
				if next {
					slot.Instance = pc + 1
					known = mask == full
				}
				if d, ok := dmap[slot]; ok && known {
					e = expr.Ite(d, hi, lo)
				}
			}
		}
		memo[k] = e
		return e, nil
	}
	return rec(n, 0, 0)
}
