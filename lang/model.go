// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package lang describes probabilistic programs as a set of guarded commands
// over bounded variables, in the style of the PRISM modeling language.
package lang

import (
	"fmt"
	"math"

	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/expr"
	"github.com/pkg/errors"
)

// Kind is the kind of a program variable.
type Kind int

const (
	BoolKind Kind = iota
	IntKind
)

// Var is a program variable. Integer variables range over [Lo, Hi].
type Var struct {
	Name string
	Kind Kind
	Lo   int64
	Hi   int64
}

// Expr returns the expression for variable v.
func (v Var) Expr() *expr.Expr {
	if v.Kind == BoolKind {
		return expr.BoolVar(v.Name)
	}
	return expr.IntVar(v.Name)
}

// Bounds returns the range constraint of an integer variable, or true.
func (v Var) Bounds() *expr.Expr {
	if v.Kind == BoolKind {
		return expr.True()
	}
	x := expr.IntVar(v.Name)
	return expr.And(expr.Le(expr.Int(v.Lo), x), expr.Le(x, expr.Int(v.Hi)))
}

// Update is the assignment Var' = Value.
type Update struct {
	Var   string
	Value *expr.Expr
}

// Alternative is a probabilistic branch of a command: with probability Prob,
// all the updates are performed simultaneously.
type Alternative struct {
	Prob    float64
	Updates []Update
}

// Substitution returns the substitution associated with the updates of a.
func (a Alternative) Substitution() map[string]*expr.Expr {
	res := make(map[string]*expr.Expr, len(a.Updates))
	for _, u := range a.Updates {
		res[u.Var] = u.Value
	}
	return res
}

// WP returns the weakest precondition of e with respect to a, that is the
// simultaneous substitution of the updates of a into e.
func (a Alternative) WP(e *expr.Expr) *expr.Expr {
	return expr.Subst(e, a.Substitution())
}

// Modifies reports whether a assigns one of the variables of e.
func (a Alternative) Modifies(e *expr.Expr) bool {
	vars := expr.Vars(e)
	for _, u := range a.Updates {
		for _, v := range vars {
			if u.Var == v {
				return true
			}
		}
	}
	return false
}

// Command is a guarded command: when Guard holds, one of the alternatives is
// chosen according to their probabilities.
type Command struct {
	Label string
	Guard *expr.Expr
	Alts  []Alternative
}

// Model is a probabilistic program.
type Model struct {
	Vars       []Var
	Init       *expr.Expr
	Invariants []*expr.Expr
	Commands   []Command
	Predicates []*expr.Expr // hints used to seed the abstraction
}

// Property asks for the minimal (or maximal) probability of eventually
// reaching a state satisfying Target.
type Property struct {
	Target *expr.Expr
	Min    bool
}

func (p Property) String() string {
	if p.Min {
		return fmt.Sprintf("Pmin=? [F %s]", p.Target)
	}
	return fmt.Sprintf("Pmax=? [F %s]", p.Target)
}

// Lookup returns the declaration of variable name.
func (m *Model) Lookup(name string) (Var, bool) {
	for _, v := range m.Vars {
		if v.Name == name {
			return v, true
		}
	}
	return Var{}, false
}

// AllInvariants returns the invariants of m together with the range constraints
// of its integer variables.
func (m *Model) AllInvariants() []*expr.Expr {
	res := []*expr.Expr{}
	for _, v := range m.Vars {
		if b := v.Bounds(); !b.IsTrue() {
			res = append(res, b)
		}
	}
	return append(res, m.Invariants...)
}

// MaxAlternatives returns the largest number of alternatives of a command.
func (m *Model) MaxAlternatives() int {
	res := 1
	for _, c := range m.Commands {
		if len(c.Alts) > res {
			res = len(c.Alts)
		}
	}
	return res
}

// ProbTolerance is the maximal difference allowed between 1 and the sum of the
// probabilities of a command.
const ProbTolerance = 1e-9

// Validate checks that m is well-formed. All errors are of kind Malformed.
func (m *Model) Validate() error {
	const op = "validate"
	names := make(map[string]Kind)
	for _, v := range m.Vars {
		if _, ok := names[v.Name]; ok {
			return abserr.E(abserr.Malformed, op, errors.Errorf("variable %s declared twice", v.Name))
		}
		if v.Kind == IntKind && v.Lo > v.Hi {
			return abserr.E(abserr.Malformed, op, errors.Errorf("empty range for variable %s", v.Name))
		}
		names[v.Name] = v.Kind
	}
	check := func(where string, e *expr.Expr, typ expr.Type) error {
		if e == nil {
			return abserr.E(abserr.Malformed, op, errors.Errorf("missing expression in %s", where))
		}
		if err := m.checkExpr(e, names); err != nil {
			return abserr.E(abserr.Malformed, op, errors.Wrapf(err, "in %s", where))
		}
		if e.Type() != typ {
			return abserr.E(abserr.Malformed, op, errors.Errorf("expression %s in %s should be %s", e, where, typ))
		}
		return nil
	}
	if err := check("init", m.Init, expr.BoolType); err != nil {
		return err
	}
	for _, e := range m.Invariants {
		if err := check("invariant", e, expr.BoolType); err != nil {
			return err
		}
	}
	for _, e := range m.Predicates {
		if err := check("predicate", e, expr.BoolType); err != nil {
			return err
		}
	}
	for _, c := range m.Commands {
		where := fmt.Sprintf("command %q", c.Label)
		if err := check(where, c.Guard, expr.BoolType); err != nil {
			return err
		}
		if len(c.Alts) == 0 {
			return abserr.E(abserr.Malformed, op, errors.Errorf("%s has no alternatives", where))
		}
		sum := 0.0
		for _, a := range c.Alts {
			if a.Prob <= 0 {
				return abserr.E(abserr.Malformed, op, errors.Errorf("non positive probability %g in %s", a.Prob, where))
			}
			sum += a.Prob
			seen := make(map[string]bool)
			for _, u := range a.Updates {
				kind, ok := names[u.Var]
				if !ok {
					return abserr.E(abserr.Malformed, op, errors.Errorf("update of undeclared variable %s in %s", u.Var, where))
				}
				if seen[u.Var] {
					return abserr.E(abserr.Malformed, op, errors.Errorf("variable %s updated twice in %s", u.Var, where))
				}
				seen[u.Var] = true
				typ := expr.IntType
				if kind == BoolKind {
					typ = expr.BoolType
				}
				if err := check(where, u.Value, typ); err != nil {
					return err
				}
			}
		}
		if math.Abs(sum-1) > ProbTolerance {
			return abserr.E(abserr.Malformed, op, errors.Errorf("probabilities of %s sum to %g", where, sum))
		}
	}
	return nil
}

// ValidateProperty checks that p is a boolean expression over the variables of
// m.
func (m *Model) ValidateProperty(p Property) error {
	names := make(map[string]Kind)
	for _, v := range m.Vars {
		names[v.Name] = v.Kind
	}
	if p.Target == nil || p.Target.Type() != expr.BoolType {
		return abserr.E(abserr.Malformed, "validate", errors.New("property target should be a boolean expression"))
	}
	if err := m.checkExpr(p.Target, names); err != nil {
		return abserr.E(abserr.Malformed, "validate", errors.Wrap(err, "in property"))
	}
	return nil
}

func (m *Model) checkExpr(e *expr.Expr, names map[string]Kind) error {
	if err := expr.Check(e); err != nil {
		return err
	}
	var rec func(*expr.Expr) error
	rec = func(e *expr.Expr) error {
		if e.Op() == expr.OpVar {
			kind, ok := names[e.Name()]
			if !ok {
				return errors.Errorf("undeclared variable %s", e.Name())
			}
			if (kind == BoolKind) != (e.Type() == expr.BoolType) {
				return errors.Errorf("variable %s used with the wrong type", e.Name())
			}
			return nil
		}
		for _, a := range e.Args() {
			if err := rec(a); err != nil {
				return err
			}
		}
		return nil
	}
	return rec(e)
}
