// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package expr

import (
	"sort"

	"github.com/pkg/errors"
)

// Make rebuilds an expression with operator op and operands args, using the
// smart constructors of the package. It cannot be used for constants and
// variables.
func Make(op Op, args ...*Expr) *Expr {
	switch op {
	case OpNot:
		return Not(args[0])
	case OpAnd:
		return And(args...)
	case OpOr:
		return Or(args...)
	case OpIte:
		return Ite(args[0], args[1], args[2])
	case OpEq:
		return Eq(args[0], args[1])
	case OpLt:
		return Lt(args[0], args[1])
	case OpLe:
		return Le(args[0], args[1])
	case OpAdd:
		return Add(args...)
	case OpSub:
		return Sub(args[0], args[1])
	case OpMul:
		return Mul(args...)
	case OpNeg:
		return Neg(args[0])
	}
	panic("expr: cannot rebuild operator " + op.String())
}

// Canonical returns the un-negated representative of a boolean expression
// together with its polarity: e is equivalent to rep if positive is true, and
// to !rep otherwise. Comparisons a <= b are represented as !(b < a). Constants
// are represented by true.
func Canonical(e *Expr) (rep *Expr, positive bool) {
	switch e.op {
	case OpConst:
		return exprTrue, e.val == 1
	case OpNot:
		rep, positive = Canonical(e.args[0])
		return rep, !positive
	case OpLe:
		lt := Lt(e.args[1], e.args[0])
		rep, positive = Canonical(lt)
		return rep, !positive
	}
	return e, true
}

// Subst returns the result of the simultaneous substitution of variables in e
// by the expressions in m.
func Subst(e *Expr, m map[string]*Expr) *Expr {
	if len(m) == 0 {
		return e
	}
	memo := make(map[*Expr]*Expr)
	var rec func(*Expr) *Expr
	rec = func(e *Expr) *Expr {
		switch e.op {
		case OpConst:
			return e
		case OpVar:
			if v, ok := m[e.name]; ok {
				return v
			}
			return e
		}
		if res, ok := memo[e]; ok {
			return res
		}
		args := make([]*Expr, len(e.args))
		changed := false
		for k, a := range e.args {
			args[k] = rec(a)
			changed = changed || args[k] != a
		}
		res := e
		if changed {
			res = Make(e.op, args...)
		}
		memo[e] = res
		return res
	}
	return rec(e)
}

// Vars returns the sorted list of variable names occurring in e.
func Vars(es ...*Expr) []string {
	set := make(map[string]bool)
	for _, e := range es {
		collectVars(e, set)
	}
	res := make([]string, 0, len(set))
	for v := range set {
		res = append(res, v)
	}
	sort.Strings(res)
	return res
}

func collectVars(e *Expr, set map[string]bool) {
	if e.op == OpVar {
		set[e.name] = true
		return
	}
	for _, a := range e.args {
		collectVars(a, set)
	}
}

// Conjuncts returns the top-level conjuncts of e. The result is empty if e is
// true.
func Conjuncts(e *Expr) []*Expr {
	switch {
	case e.IsTrue():
		return nil
	case e.op == OpAnd:
		return append([]*Expr(nil), e.args...)
	}
	return []*Expr{e}
}

// Atoms returns the canonical boolean atoms of e (boolean variables and integer
// comparisons), in order of first occurrence and without duplicates.
func Atoms(es ...*Expr) []*Expr {
	seen := make(map[string]bool)
	res := []*Expr{}
	var rec func(*Expr)
	rec = func(e *Expr) {
		switch e.op {
		case OpConst:
			return
		case OpNot, OpAnd, OpOr:
			for _, a := range e.args {
				rec(a)
			}
			return
		case OpIte:
			if e.typ == BoolType {
				for _, a := range e.args {
					rec(a)
				}
				return
			}
		case OpEq:
			if e.args[0].typ == BoolType {
				rec(e.args[0])
				rec(e.args[1])
				return
			}
		}
		rep, _ := Canonical(e)
		if rep.IsConst() || seen[rep.key] {
			return
		}
		seen[rep.key] = true
		res = append(res, rep)
	}
	for _, e := range es {
		rec(e)
	}
	return res
}

// Check verifies that the operands of every operator in e have the expected
// types.
func Check(e *Expr) error {
	switch e.op {
	case OpConst, OpVar:
		return nil
	case OpNot, OpAnd, OpOr:
		for _, a := range e.args {
			if a.typ != BoolType {
				return errors.Errorf("operand %s of %s is not boolean", a, e.op)
			}
		}
	case OpIte:
		if e.args[0].typ != BoolType {
			return errors.Errorf("condition %s of ite is not boolean", e.args[0])
		}
		if e.args[1].typ != e.args[2].typ {
			return errors.Errorf("branches of %s have different types", e)
		}
	case OpEq:
		if e.args[0].typ != e.args[1].typ {
			return errors.Errorf("operands of %s have different types", e)
		}
	default:
		for _, a := range e.args {
			if a.typ != IntType {
				return errors.Errorf("operand %s of %s is not an integer", a, e.op)
			}
		}
	}
	for _, a := range e.args {
		if err := Check(a); err != nil {
			return err
		}
	}
	return nil
}

// Eval computes the value of e in the environment env. Booleans are encoded as
// 0 and 1. It returns an error if a variable is missing from env.
func Eval(e *Expr, env map[string]int64) (int64, error) {
	switch e.op {
	case OpConst:
		return e.val, nil
	case OpVar:
		v, ok := env[e.name]
		if !ok {
			return 0, errors.Errorf("unbound variable %s", e.name)
		}
		return v, nil
	case OpIte:
		c, err := Eval(e.args[0], env)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return Eval(e.args[1], env)
		}
		return Eval(e.args[2], env)
	case OpAnd, OpOr:
		for _, a := range e.args {
			v, err := Eval(a, env)
			if err != nil {
				return 0, err
			}
			if (v != 0) == (e.op == OpOr) {
				return v, nil
			}
		}
		if e.op == OpAnd {
			return 1, nil
		}
		return 0, nil
	}
	vals := make([]int64, len(e.args))
	for k, a := range e.args {
		v, err := Eval(a, env)
		if err != nil {
			return 0, err
		}
		vals[k] = v
	}
	switch e.op {
	case OpNot:
		return b2i(vals[0] == 0), nil
	case OpEq:
		return b2i(vals[0] == vals[1]), nil
	case OpLt:
		return b2i(vals[0] < vals[1]), nil
	case OpLe:
		return b2i(vals[0] <= vals[1]), nil
	case OpAdd:
		var res int64
		for _, v := range vals {
			res += v
		}
		return res, nil
	case OpSub:
		return vals[0] - vals[1], nil
	case OpMul:
		res := int64(1)
		for _, v := range vals {
			res *= v
		}
		return res, nil
	case OpNeg:
		return -vals[0], nil
	}
	return 0, errors.Errorf("unsupported operator %s", e.op)
}

// Holds evaluates a boolean expression.
func Holds(e *Expr, env map[string]int64) (bool, error) {
	v, err := Eval(e, env)
	return v != 0, err
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
