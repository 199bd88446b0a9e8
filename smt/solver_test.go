// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package smt

import (
	"sort"
	"testing"

	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/lang"
	"github.com/dalzilio/pcegar/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var testVars = []lang.Var{
	{Name: "x", Kind: lang.IntKind, Lo: -3, Hi: 4},
	{Name: "y", Kind: lang.IntKind, Lo: 0, Hi: 5},
	{Name: "b", Kind: lang.BoolKind},
}

func backends(t *testing.T) map[string]Solver {
	g, err := NewGini(testVars)
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Solver{
		"gini": g,
		"enum": NewEnum(testVars),
	}
}

func TestCheck(t *testing.T) {
	x := expr.IntVar("x")
	y := expr.IntVar("y")
	b := expr.BoolVar("b")
	tests := []struct {
		e        *expr.Expr
		expected Verdict
	}{
		{expr.Lt(x, y), Sat},
		{expr.And(expr.Lt(x, expr.Int(-3))), Unsat},
		{expr.Eq(expr.Add(x, y), expr.Int(9)), Sat},
		{expr.Eq(expr.Add(x, y), expr.Int(10)), Unsat},
		{expr.Eq(expr.Mul(x, y), expr.Int(-15)), Sat},
		{expr.Eq(expr.Mul(x, y), expr.Int(-16)), Unsat},
		{expr.Eq(expr.Sub(x, y), expr.Int(-8)), Sat},
		{expr.Eq(expr.Neg(x), expr.Int(3)), Sat},
		{expr.Eq(expr.Neg(x), expr.Int(4)), Unsat},
		{expr.And(b, expr.Not(b)), Unsat},
		{expr.And(expr.Iff(b, expr.Lt(x, expr.Int(0))), b, expr.Le(expr.Int(0), x)), Unsat},
		{expr.Eq(expr.Ite(b, x, y), expr.Int(-2)), Sat},
		{expr.And(expr.Eq(expr.Ite(b, x, y), expr.Int(-2)), expr.Not(b)), Unsat},
		{expr.Lt(expr.Mul(expr.Int(3), x), expr.Int(-9)), Unsat},
	}
	for name, s := range backends(t) {
		for _, tt := range tests {
			s.Push()
			if err := s.Assert(tt.e); err != nil {
				t.Fatalf("%s: Assert(%s): %s", name, tt.e, err)
			}
			v, err := s.Check()
			if err != nil {
				t.Fatalf("%s: Check(%s): %s", name, tt.e, err)
			}
			if v != tt.expected {
				t.Errorf("%s: Check(%s): expected %s, actual %s", name, tt.e, tt.expected, v)
			}
			if err := s.Pop(); err != nil {
				t.Fatal(err)
			}
		}
		if err := s.Pop(); err == nil {
			t.Errorf("%s: Pop on an empty stack should fail", name)
		}
	}
}

func TestValid(t *testing.T) {
	x := expr.IntVar("x")
	for name, s := range backends(t) {
		s.Push()
		s.Assert(expr.Lt(expr.Int(0), x))
		ok, err := Valid(s, expr.Le(expr.Int(1), x))
		if err != nil || !ok {
			t.Errorf("%s: Valid: expected true, actual %v (%v)", name, ok, err)
		}
		ok, err = Satisfiable(s, expr.Eq(x, expr.Int(0)))
		if err != nil || ok {
			t.Errorf("%s: Satisfiable: expected false, actual %v (%v)", name, ok, err)
		}
		s.Pop()
		ok, _ = Satisfiable(s, expr.Eq(x, expr.Int(0)))
		if !ok {
			t.Errorf("%s: Satisfiable after Pop: expected true", name)
		}
	}
}

func collect(t *testing.T, en Enumerator, restriction *expr.Expr, limit int) ([]string, bool) {
	res := []string{}
	_, complete, err := en.Run(restriction, limit, func(cube []Value) error {
		res = append(res, cubeKey(cube))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(res)
	return res, complete
}

func TestEnumerate(t *testing.T) {
	x := expr.IntVar("x")
	y := expr.IntVar("y")
	exprs := []*expr.Expr{expr.Lt(expr.Int(0), x), expr.Eq(x, y), expr.BoolVar("b")}
	for name, s := range backends(t) {
		s.Push()
		s.Assert(expr.Le(y, expr.Int(2)))
		en, err := s.Enumerate(exprs)
		if err != nil {
			t.Fatal(err)
		}
		// restricted to x = 0, we have !(0 < x), b free and x = y possible
		cubes, complete := collect(t, en, expr.Eq(x, expr.Int(0)), 0)
		if !complete || len(cubes) != 4 {
			t.Errorf("%s: expected 4 cubes, actual %v (complete: %v)", name, cubes, complete)
		}
		// cubes found in the first run are not returned again
		cubes, complete = collect(t, en, nil, 2)
		if complete || len(cubes) != 2 {
			t.Errorf("%s: expected 2 cubes and an incomplete run, actual %v (complete: %v)", name, cubes, complete)
		}
		cubes, complete = collect(t, en, nil, 0)
		if !complete || len(cubes) != 2 {
			t.Errorf("%s: expected 2 remaining cubes, actual %v (complete: %v)", name, cubes, complete)
		}
		en.Close()
		s.Pop()
	}
}

func TestMetrics(t *testing.T) {
	m := stats.New(prometheus.NewRegistry())
	s, _ := NewGini(testVars, WithMetrics(m))
	en, _ := s.Enumerate([]*expr.Expr{expr.BoolVar("b")})
	n, complete, err := en.Run(nil, 0, func([]Value) error { return nil })
	if err != nil || n != 2 || !complete {
		t.Fatalf("Run: expected 2 complete cubes, actual %d, %v (%v)", n, complete, err)
	}
	if v := testutil.ToFloat64(m.Cubes); v != 2 {
		t.Errorf("Cubes: expected 2, actual %g", v)
	}
	if v := testutil.ToFloat64(m.SolverChecks); v != 3 {
		t.Errorf("SolverChecks: expected 3, actual %g", v)
	}
}

func TestEnumLimit(t *testing.T) {
	s := NewEnum(testVars, MaxAssignments(10))
	s.Assert(expr.Lt(expr.IntVar("x"), expr.IntVar("y")))
	v, err := s.Check()
	if err != nil || v != Unknown {
		t.Errorf("Check: expected unknown, actual %s (%v)", v, err)
	}
	if _, err := Valid(s, expr.Le(expr.IntVar("x"), expr.IntVar("y"))); err == nil {
		t.Errorf("Valid: expected an inconclusive error")
	}
}
