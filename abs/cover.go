// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package abs

import (
	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/dd"
	"github.com/dalzilio/pcegar/decomp"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/smt"
	"github.com/pkg/errors"
)

// Cover returns the abstract states, within care, whose region intersects the
// set of concrete states satisfying e. The conjuncts of e are grouped with the
// invariants and the predicates that share variables with them, and each group
// is enumerated separately. A group whose enumeration is inconclusive does not
// constrain the result.
func (m *Model) Cover(e *expr.Expr, care dd.Node) (dd.Node, error) {
	b := m.b
	conj := expr.Conjuncts(e)
	if e.IsFalse() {
		return b.False(), nil
	}
	preds := m.preds.Exprs()
	rows := make([][]string, 0, len(conj)+len(m.invariants)+len(preds))
	for _, c := range conj {
		rows = append(rows, expr.Vars(c))
	}
	for _, c := range m.invariants {
		rows = append(rows, expr.Vars(c))
	}
	for _, p := range preds {
		rows = append(rows, expr.Vars(p))
	}
	k1 := len(conj)
	k2 := k1 + len(m.invariants)
	res := care
	for _, class := range decomp.Partition(rows) {
		if class[0] >= k1 {
			// no conjunct of e in this class
			continue
		}
		asserts := []*expr.Expr{}
		tracked := []int{}
		for _, r := range class {
			switch {
			case r < k1:
				asserts = append(asserts, conj[r])
			case r < k2:
				asserts = append(asserts, m.invariants[r-k1])
			default:
				tracked = append(tracked, r-k2)
			}
		}
		n, err := m.coverClass(asserts, tracked)
		if err != nil {
			return nil, err
		}
		res = b.And(res, n)
		if b.IsFalse(res) {
			break
		}
	}
	return res, m.enc.Err()
}

func (m *Model) coverClass(asserts []*expr.Expr, tracked []int) (dd.Node, error) {
	b := m.b
	s, err := m.factory(m.model.Vars)
	if err != nil {
		return nil, errors.Wrap(err, "creating solver")
	}
	for _, e := range asserts {
		if err := s.Assert(e); err != nil {
			return nil, err
		}
	}
	if len(tracked) == 0 {
		ok, err := smt.Satisfiable(s, expr.True())
		switch {
		case abserr.IsInconclusive(err):
			return b.True(), nil
		case err != nil:
			return nil, err
		case ok:
			return b.True(), nil
		}
		return b.False(), nil
	}
	exprs := make([]*expr.Expr, len(tracked))
	vars := make([]int, len(tracked))
	for k, i := range tracked {
		exprs[k] = m.preds.At(i).Expr()
		vars[k] = m.enc.Present(i)
	}
	en, err := s.Enumerate(exprs)
	if err != nil {
		return nil, err
	}
	defer en.Close()
	res := b.False()
	_, _, err = en.Run(nil, 0, func(cube []smt.Value) error {
		lits := []dd.Node{}
		for k, v := range cube {
			switch v {
			case smt.True:
				lits = append(lits, b.Ithvar(vars[k]))
			case smt.False:
				lits = append(lits, b.NIthvar(vars[k]))
			}
		}
		res = b.Or(res, b.And(lits...))
		return nil
	})
	if abserr.IsInconclusive(err) {
		m.logger.Warn("cover inconclusive", "error", err.Error())
		return b.True(), nil
	}
	return res, err
}

// Interior returns the abstract states whose region is included in the set of
// concrete states satisfying e. With the invariants of the model, this gives
// the states that certainly satisfy them.
func (m *Model) Interior(e *expr.Expr) (dd.Node, error) {
	b := m.b
	res := b.True()
	for _, c := range expr.Conjuncts(e) {
		n, err := m.Cover(expr.Not(c), b.True())
		if err != nil {
			return nil, err
		}
		res = b.And(res, b.Not(n))
	}
	return res, nil
}

// AbstractInterior returns the abstract states whose region certainly
// satisfies the invariants of the model.
func (m *Model) AbstractInterior() (dd.Node, error) {
	return m.Interior(expr.And(m.invariants...))
}
