// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package encoding

import (
	"testing"

	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/dd"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/pred"
	"github.com/dalzilio/pcegar/smt"
)

var x = expr.IntVar("x")

// walk returns a manager for one command with two alternatives, and the
// predicates x = 0 and 0 < x registered as state variables 0 and 1.
func walk(t *testing.T, nondetBits int) (*Manager, []*expr.Expr) {
	b, err := dd.New(2)
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewManager(b, 1, 2, nondetBits)
	if err != nil {
		t.Fatal(err)
	}
	preds := []*expr.Expr{expr.Eq(x, expr.Int(0)), expr.Lt(expr.Int(0), x)}
	for k, e := range preds {
		p, _ := pred.New(e)
		i, err := m.CreateStateVar(p)
		if err != nil {
			t.Fatal(err)
		}
		if i != k {
			t.Fatalf("CreateStateVar: expected %d, actual %d", k, i)
		}
	}
	return m, preds
}

func TestLayout(t *testing.T) {
	m, _ := walk(t, 4)
	// 1 bit for the interleaving range, 4 nondeterministic bits, 1 bit for
	// the alternatives
	if m.Present(0) != 6 || m.Next(0) != 7 || m.Present(1) != 8 {
		t.Errorf("Layout: unexpected variables %d, %d, %d", m.Present(0), m.Next(0), m.Present(1))
	}
	if m.BDD().Varnum() != 10 {
		t.Errorf("Varnum: expected 10, actual %d", m.BDD().Varnum())
	}
	if m.NondetTop() != 1 {
		t.Errorf("NondetTop: expected 1, actual %d", m.NondetTop())
	}
	if i, neg, ok := m.StateVar(expr.Le(x, expr.Int(0))); !ok || i != 1 || !neg {
		t.Errorf("StateVar: expected (1, true, true), actual (%d, %v, %v)", i, neg, ok)
	}
	p, _ := pred.New(expr.Not(expr.Eq(x, expr.Int(0))))
	if _, err := m.CreateStateVar(p); err == nil {
		t.Errorf("CreateStateVar: expected an error for a registered predicate")
	} else if k, _ := abserr.KindOf(err); k != abserr.Bookkeeping {
		t.Errorf("CreateStateVar: expected a bookkeeping error, actual %s", err)
	}
}

func TestChoiceRanges(t *testing.T) {
	m, _ := walk(t, 4)
	r1, err := m.PushNondet(3)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := m.PushNondet(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(r1.Vars()) != 2 || len(r2.Vars()) != 1 || r2.Vars()[0] != 3 {
		t.Errorf("PushNondet: unexpected ranges %v and %v", r1.Vars(), r2.Vars())
	}
	if _, err := m.PushNondet(4); err == nil {
		t.Errorf("PushNondet: expected an overflow error")
	}
	if err := r1.Release(); err == nil {
		t.Errorf("Release: expected an error when releasing out of order")
	}
	if err := r2.Release(); err != nil {
		t.Errorf("Release: %s", err)
	}
	if err := r1.Release(); err != nil {
		t.Errorf("Release: %s", err)
	}
	if err := r1.Release(); err == nil {
		t.Errorf("Release: expected an error when releasing twice")
	}
	if m.NondetTop() != 1 {
		t.Errorf("NondetTop: expected 1, actual %d", m.NondetTop())
	}
	r3, _ := m.PushNondet(16)
	if len(r3.Vars()) != 4 {
		t.Errorf("PushNondet: expected 4 variables, actual %v", r3.Vars())
	}
	if m.Err() != nil {
		t.Fatal(m.Err())
	}
	if n := r3.Value(16); !m.BDD().IsFalse(n) || m.Err() == nil {
		t.Errorf("Value: expected an error for a value outside the range")
	}
}

// walkEncoder tracks the weakest preconditions of both predicates for the
// two alternatives of x := x - 1 and x := x + 1, and 0 < x in the present
// state.
func walkEncoder(t *testing.T, m *Manager, preds []*expr.Expr) *CubeEncoder {
	c := m.NewCubeEncoder(2)
	dec := map[string]*expr.Expr{"x": expr.Sub(x, expr.Int(1))}
	inc := map[string]*expr.Expr{"x": expr.Add(x, expr.Int(1))}
	for i, p := range preds {
		if err := c.Push(i, 1, expr.Subst(p, dec)); err != nil {
			t.Fatal(err)
		}
		if err := c.Push(i, 2, expr.Subst(p, inc)); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Push(1, 0, preds[1]); err != nil {
		t.Fatal(err)
	}
	if err := c.Push(1, 0, preds[1]); err == nil {
		t.Errorf("Push: expected an error for a slot used twice")
	}
	return c
}

func TestEncodeTransition(t *testing.T) {
	m, preds := walk(t, 0)
	b := m.BDD()
	c := walkEncoder(t, m, preds)
	if s := c.Support(); len(s) != 3 || s[0] != m.Next(0) || s[1] != m.Present(1) || s[2] != m.Next(1) {
		t.Errorf("Support: unexpected %v", s)
	}
	// the cube obtained for x = 1
	cube := []smt.Value{smt.True, smt.False, smt.False, smt.True, smt.True}
	present, trans, err := c.EncodeTransition(cube)
	if err != nil {
		t.Fatal(err)
	}
	if *present != *b.Ithvar(m.Present(1)) {
		t.Errorf("EncodeTransition: unexpected source %s", b.Print(present))
	}
	expected := b.And(
		b.Ithvar(m.Present(1)),
		b.Or(
			b.And(m.ProbChoice(0), b.Ithvar(m.Next(0)), b.NIthvar(m.Next(1))),
			b.And(m.ProbChoice(1), b.NIthvar(m.Next(0)), b.Ithvar(m.Next(1))),
		),
	)
	if *trans != *expected {
		t.Errorf("EncodeTransition: unexpected transition")
	}
	if _, _, err := c.EncodeTransition(cube[1:]); err == nil {
		t.Errorf("EncodeTransition: expected an error for a short cube")
	}

	// post image of 0 < x
	post := m.Post(present, trans)
	succ := b.Or(
		b.And(b.Ithvar(m.Present(0)), b.NIthvar(m.Present(1))),
		b.And(b.NIthvar(m.Present(0)), b.Ithvar(m.Present(1))),
	)
	if *post != *succ {
		t.Errorf("Post: unexpected result %s", b.Print(post))
	}

	// decoding through the encoder gives back the constraints on x
	e, err := m.GetExprMap(trans, c.DecodingMap())
	if err != nil {
		t.Fatal(err)
	}
	for v := int64(-3); v <= 3; v++ {
		ok, err := expr.Holds(e, map[string]int64{"x": v})
		if err != nil {
			t.Fatal(err)
		}
		if ok != (v == 1) {
			t.Errorf("GetExprMap: %s for x = %d, expected %v", e, v, v == 1)
		}
	}
}

func TestDecode(t *testing.T) {
	m, preds := walk(t, 2)
	b := m.BDD()
	tests := []*expr.Expr{
		expr.True(),
		expr.False(),
		preds[0],
		expr.And(preds[0], expr.Not(preds[1])),
		expr.Or(preds[0], preds[1]),
		expr.Iff(preds[0], preds[1]),
		expr.Le(x, expr.Int(0)),
	}
	for _, e := range tests {
		n, err := m.Encode(e)
		if err != nil {
			t.Fatal(err)
		}
		cover, err := m.GetExpr(n)
		if err != nil {
			t.Fatal(err)
		}
		ite, err := m.GetExprIte(n)
		if err != nil {
			t.Fatal(err)
		}
		for _, d := range []*expr.Expr{cover, ite} {
			back, err := m.Encode(d)
			if err != nil {
				t.Fatal(err)
			}
			if *back != *n {
				t.Errorf("decode(%s): unexpected result %s", e, d)
			}
		}
	}
	if _, err := m.Encode(expr.Eq(x, expr.Int(2))); err == nil {
		t.Errorf("Encode: expected an error for an unregistered predicate")
	}
	if _, err := m.GetExpr(b.Ithvar(m.Next(0))); err == nil {
		t.Errorf("GetExpr: expected an error for a next state variable")
	}
}
