// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package expr

import (
	"fmt"
	"testing"
)

func TestSmartConstructors(t *testing.T) {
	x := IntVar("x")
	y := IntVar("y")
	b := BoolVar("b")
	tests := []struct {
		name     string
		actual   *Expr
		expected *Expr
	}{
		{"double negation", Not(Not(b)), b},
		{"and unit", And(True(), b), b},
		{"and zero", And(False(), b), False()},
		{"and contradiction", And(b, Lt(x, y), Not(b)), False()},
		{"or tautology", Or(Not(b), b), True()},
		{"and flatten", And(And(b, Lt(x, y)), Lt(y, x)), And(b, Lt(x, y), Lt(y, x))},
		{"and commutes", And(Lt(x, y), b), And(b, Lt(x, y))},
		{"eq commutes", Eq(y, x), Eq(x, y)},
		{"eq refl", Eq(x, x), True()},
		{"gt", Gt(x, y), Lt(y, x)},
		{"const fold", Lt(Int(1), Int(2)), True()},
		{"add fold", Add(x, Int(1), Int(-1)), x},
		{"sub const", Sub(Add(x, Int(1)), Int(1)), x},
		{"mul zero", Mul(x, Int(0)), Int(0)},
		{"ite bool", Ite(b, True(), False()), b},
		{"ite same", Ite(b, x, x), x},
		{"iff", Iff(b, True()), b},
	}
	for _, tt := range tests {
		if !tt.actual.Equal(tt.expected) {
			t.Errorf("%s: expected %s, actual %s", tt.name, tt.expected, tt.actual)
		}
	}
}

func TestCanonical(t *testing.T) {
	x := IntVar("x")
	tests := []struct {
		e        *Expr
		rep      *Expr
		positive bool
	}{
		{Gt(x, Int(0)), Lt(Int(0), x), true},
		{Le(x, Int(0)), Lt(Int(0), x), false},
		{Ge(x, Int(1)), Lt(x, Int(1)), false},
		{Not(Lt(Int(0), x)), Lt(Int(0), x), false},
		{Eq(Int(0), x), Eq(x, Int(0)), true},
		{False(), True(), false},
	}
	for _, tt := range tests {
		rep, positive := Canonical(tt.e)
		if !rep.Equal(tt.rep) || positive != tt.positive {
			t.Errorf("Canonical(%s): expected (%s, %v), actual (%s, %v)", tt.e, tt.rep, tt.positive, rep, positive)
		}
	}
}

func TestSubst(t *testing.T) {
	x := IntVar("x")
	y := IntVar("y")
	e := And(Lt(Int(0), x), Eq(y, x))
	actual := Subst(e, map[string]*Expr{"x": Sub(x, Int(1)), "y": x})
	expected := And(Lt(Int(0), Add(x, Int(-1))), Eq(x, Add(x, Int(-1))))
	if !actual.Equal(expected) {
		t.Errorf("Subst: expected %s, actual %s", expected, actual)
	}
	// simultaneous substitution
	swap := Subst(Lt(x, y), map[string]*Expr{"x": y, "y": x})
	if !swap.Equal(Lt(y, x)) {
		t.Errorf("Subst: expected y < x, actual %s", swap)
	}
}

func TestAtomsAndVars(t *testing.T) {
	x := IntVar("x")
	b := BoolVar("b")
	e := Or(And(Gt(x, Int(0)), b), Le(x, Int(0)), Not(b))
	atoms := Atoms(e)
	if len(atoms) != 2 {
		t.Fatalf("Atoms: expected 2 atoms, actual %v", atoms)
	}
	if fmt.Sprint(Vars(e, IntVar("a"))) != "[a b x]" {
		t.Errorf("Vars: expected [a b x], actual %v", Vars(e))
	}
	if len(Conjuncts(True())) != 0 {
		t.Errorf("Conjuncts(true) should be empty")
	}
}

func TestEval(t *testing.T) {
	x := IntVar("x")
	y := IntVar("y")
	e := Ite(Lt(x, y), Mul(Int(2), x), Neg(Sub(y, x)))
	env := map[string]int64{"x": 1, "y": 3}
	if v, err := Eval(e, env); err != nil || v != 2 {
		t.Errorf("Eval: expected 2, actual %d (%v)", v, err)
	}
	env["x"] = 5
	if v, err := Eval(e, env); err != nil || v != 2 {
		t.Errorf("Eval: expected 2, actual %d (%v)", v, err)
	}
	if _, err := Eval(Lt(x, IntVar("z")), env); err == nil {
		t.Errorf("Eval: expected an error for an unbound variable")
	}
}

func TestCheck(t *testing.T) {
	x := IntVar("x")
	b := BoolVar("b")
	if err := Check(And(b, Lt(x, Int(2)))); err != nil {
		t.Errorf("Check: unexpected error %s", err)
	}
	if err := Check(mk(OpAnd, BoolType, b, x)); err == nil {
		t.Errorf("Check: expected a type error")
	}
	if err := Check(mk(OpLt, BoolType, b, x)); err == nil {
		t.Errorf("Check: expected a type error")
	}
}

func TestTypes(t *testing.T) {
	x := IntVar("x")
	tests := []struct {
		e        *Expr
		expected Type
	}{
		{Int(3), IntType},
		{x, IntType},
		{Add(x, Int(1)), IntType},
		{BoolVar("b"), BoolType},
		{Lt(x, Int(1)), BoolType},
		{True(), BoolType},
	}
	for _, tt := range tests {
		if tt.e.Type() != tt.expected {
			t.Errorf("Type(%s): expected %v, actual %v", tt.e, tt.expected, tt.e.Type())
		}
	}
	if IntType.String() != "int" || BoolType.String() != "bool" {
		t.Errorf("String: expected int and bool, actual %s and %s", IntType, BoolType)
	}
}
