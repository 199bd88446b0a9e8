// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package pred

import (
	"testing"

	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/lang"
	"github.com/dalzilio/pcegar/smt"
	"github.com/dalzilio/pcegar/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var vars = []lang.Var{
	{Name: "x", Kind: lang.IntKind, Lo: 0, Hi: 4},
	{Name: "b", Kind: lang.BoolKind},
}

func TestClassifyCheap(t *testing.T) {
	x := expr.IntVar("x")
	s := NewSet()
	tests := []struct {
		e        *expr.Expr
		expected Class
	}{
		{expr.Lt(x, expr.Int(3)), Added},
		{expr.Not(expr.Lt(x, expr.Int(3))), Contained},
		{expr.Le(expr.Int(3), x), Contained},
		{expr.True(), Trivial},
		{expr.Eq(x, expr.Int(1)), Added},
		{expr.Eq(expr.Int(1), x), Contained},
		{expr.BoolVar("b"), Added},
	}
	for _, tt := range tests {
		c, _, err := s.Add(tt.e)
		if err != nil {
			t.Fatal(err)
		}
		if c != tt.expected {
			t.Errorf("Add(%s): expected %s, actual %s", tt.e, tt.expected, c)
		}
	}
	if s.Len() != 3 {
		t.Errorf("Len: expected 3, actual %d", s.Len())
	}
	idx, neg, ok := s.Lookup(expr.Le(expr.Int(3), x))
	if !ok || idx != 0 || !neg {
		t.Errorf("Lookup: expected (0, true, true), actual (%d, %v, %v)", idx, neg, ok)
	}
}

func TestClassifyExpensive(t *testing.T) {
	x := expr.IntVar("x")
	s := NewSet(Expensive(), WithProver(smt.NewEnum(vars)))
	tests := []struct {
		e        *expr.Expr
		expected Class
	}{
		{expr.Lt(x, expr.Int(3)), Added},
		{expr.Le(x, expr.Int(2)), Covered},
		{expr.Lt(x, expr.Int(10)), Trivial},
		{expr.Lt(x, expr.Int(0)), Trivial},
		{expr.BoolVar("b"), Added},
		{expr.Eq(x, expr.Int(4)), Added},
	}
	for _, tt := range tests {
		c, _, err := s.Add(tt.e)
		if err != nil {
			t.Fatal(err)
		}
		if c != tt.expected {
			t.Errorf("Add(%s): expected %s, actual %s", tt.e, tt.expected, c)
		}
	}
}

func TestInconclusiveKeepsPredicate(t *testing.T) {
	m := stats.New(prometheus.NewRegistry())
	x := expr.IntVar("x")
	prover := smt.NewEnum(vars, smt.MaxAssignments(2))
	s := NewSet(Expensive(), WithProver(prover), WithMetrics(m))
	c, _, err := s.Add(expr.Lt(x, expr.Int(10)))
	if err != nil {
		t.Fatal(err)
	}
	if c != Added {
		t.Errorf("Add: expected added, actual %s", c)
	}
	if testutil.ToFloat64(m.SolverUnknown) == 0 {
		t.Errorf("SolverUnknown: expected a non zero count")
	}
}

func TestUniqueness(t *testing.T) {
	x := expr.IntVar("x")
	y := expr.IntVar("y")
	es := []*expr.Expr{
		expr.Lt(x, y), expr.Le(y, x), expr.Gt(y, x), expr.Ge(x, y),
		expr.Eq(x, y), expr.Neq(y, x), expr.Not(expr.Eq(y, x)),
		expr.Lt(expr.Add(x, expr.Int(1)), y), expr.Not(expr.Lt(expr.Add(expr.Int(1), x), y)),
	}
	s := NewSet()
	for _, e := range es {
		if _, _, err := s.Add(e); err != nil {
			t.Fatal(err)
		}
	}
	seen := make(map[string]bool)
	for i := 0; i < s.Len(); i++ {
		p := s.At(i)
		if seen[p.Key()] {
			t.Errorf("predicate %s occurs twice", p)
		}
		if _, pos := New(expr.Not(p.Expr())); pos {
			t.Errorf("predicate %s is not canonical", p)
		}
		seen[p.Key()] = true
	}
	if s.Len() != 3 {
		t.Errorf("Len: expected 3, actual %d (%v)", s.Len(), s.Exprs())
	}
}

func TestMerge(t *testing.T) {
	x := expr.IntVar("x")
	s1 := NewSet()
	s1.Add(expr.Lt(x, expr.Int(2)))
	s2 := NewSet()
	s2.Add(expr.Le(expr.Int(2), x))
	s2.Add(expr.Eq(x, expr.Int(0)))
	added, err := s1.Merge(s2)
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 1 || s1.Len() != 2 {
		t.Errorf("Merge: expected 1 new predicate, actual %v", added)
	}
}

func TestExtract(t *testing.T) {
	x := expr.IntVar("x")
	m := &lang.Model{
		Vars: []lang.Var{{Name: "x", Kind: lang.IntKind, Lo: 0, Hi: 3}},
		Init: expr.Eq(x, expr.Int(0)),
		Commands: []lang.Command{{
			Label: "inc",
			Guard: expr.Lt(x, expr.Int(3)),
			Alts:  []lang.Alternative{{Prob: 1, Updates: []lang.Update{{Var: "x", Value: expr.Add(x, expr.Int(1))}}}},
		}},
	}
	p := lang.Property{Target: expr.Eq(x, expr.Int(3))}
	s, err := Extract(m, p)
	if err != nil {
		t.Fatal(err)
	}
	expected := []*expr.Expr{expr.Eq(x, expr.Int(3)), expr.Eq(x, expr.Int(0)), expr.Lt(x, expr.Int(3))}
	if s.Len() != len(expected) {
		t.Fatalf("Extract: expected %v, actual %v", expected, s.Exprs())
	}
	for k, e := range expected {
		if !s.At(k).Expr().Equal(e) {
			t.Errorf("Extract: expected %s at %d, actual %s", e, k, s.At(k))
		}
	}
	s, _ = Extract(m, p, ValueBlasting(4))
	if s.Len() != 5 {
		t.Errorf("Extract with value blasting: expected 5 predicates, actual %v", s.Exprs())
	}
}
