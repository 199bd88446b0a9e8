// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package expr

var (
	exprTrue  = &Expr{op: OpConst, typ: BoolType, val: 1, key: "T"}
	exprFalse = &Expr{op: OpConst, typ: BoolType, val: 0, key: "F"}
)

// True returns the boolean constant true.
func True() *Expr { return exprTrue }

// False returns the boolean constant false.
func False() *Expr { return exprFalse }

// BoolConst returns the boolean constant v.
func BoolConst(v bool) *Expr {
	if v {
		return exprTrue
	}
	return exprFalse
}

// Int returns the integer constant v.
func Int(v int64) *Expr {
	return &Expr{op: OpConst, typ: IntType, val: v, key: mkkey(OpConst, IntType, v, "", nil)}
}

// BoolVar returns the boolean variable with the given name.
func BoolVar(name string) *Expr {
	return &Expr{op: OpVar, typ: BoolType, name: name, key: mkkey(OpVar, BoolType, 0, name, nil)}
}

// IntVar returns the integer variable with the given name.
func IntVar(name string) *Expr {
	return &Expr{op: OpVar, typ: IntType, name: name, key: mkkey(OpVar, IntType, 0, name, nil)}
}

// Not returns the negation of e. Double negations are removed.
func Not(e *Expr) *Expr {
	switch {
	case e.IsTrue():
		return exprFalse
	case e.IsFalse():
		return exprTrue
	case e.op == OpNot:
		return e.args[0]
	}
	return mk(OpNot, BoolType, e)
}

// And returns the conjunction of es. Nested conjunctions are flattened,
// duplicates are removed, and the result is false if it contains both an
// expression and its negation.
func And(es ...*Expr) *Expr {
	return junction(OpAnd, es)
}

// Or returns the disjunction of es. See And.
func Or(es ...*Expr) *Expr {
	return junction(OpOr, es)
}

func junction(op Op, es []*Expr) *Expr {
	unit, zero := exprTrue, exprFalse
	if op == OpOr {
		unit, zero = exprFalse, exprTrue
	}
	args := make([]*Expr, 0, len(es))
	for _, e := range es {
		switch {
		case e.key == unit.key:
			continue
		case e.key == zero.key:
			return zero
		case e.op == op:
			args = append(args, e.args...)
		default:
			args = append(args, e)
		}
	}
	args = sortArgs(args)
	seen := make(map[string]bool, len(args))
	for _, a := range args {
		seen[a.key] = true
	}
	for _, a := range args {
		if a.op == OpNot && seen[a.args[0].key] {
			return zero
		}
	}
	switch len(args) {
	case 0:
		return unit
	case 1:
		return args[0]
	}
	return mk(op, BoolType, args...)
}

// Implies returns the implication a => b.
func Implies(a, b *Expr) *Expr {
	return Or(Not(a), b)
}

// Iff returns the equivalence of two boolean expressions.
func Iff(a, b *Expr) *Expr {
	return Eq(a, b)
}

// Ite returns the expression (c ? t : e). Operands t and e must have the same
// type.
func Ite(c, t, e *Expr) *Expr {
	switch {
	case c.IsTrue():
		return t
	case c.IsFalse():
		return e
	case t.key == e.key:
		return t
	}
	if t.typ == BoolType {
		switch {
		case t.IsTrue() && e.IsFalse():
			return c
		case t.IsFalse() && e.IsTrue():
			return Not(c)
		case t.IsTrue():
			return Or(c, e)
		case e.IsFalse():
			return And(c, t)
		}
	}
	if c.op == OpNot {
		return mk(OpIte, t.typ, c.args[0], e, t)
	}
	return mk(OpIte, t.typ, c, t, e)
}

// Eq returns the equality a = b. On boolean operands, this is the equivalence.
func Eq(a, b *Expr) *Expr {
	if a.key == b.key {
		return exprTrue
	}
	if a.op == OpConst && b.op == OpConst {
		return BoolConst(a.val == b.val)
	}
	if a.typ == BoolType {
		switch {
		case a.IsTrue():
			return b
		case b.IsTrue():
			return a
		case a.IsFalse():
			return Not(b)
		case b.IsFalse():
			return Not(a)
		}
		if a.op == OpNot && a.args[0].key == b.key || b.op == OpNot && b.args[0].key == a.key {
			return exprFalse
		}
	}
	if b.key < a.key {
		a, b = b, a
	}
	return mk(OpEq, BoolType, a, b)
}

// Lt returns the comparison a < b.
func Lt(a, b *Expr) *Expr {
	if a.key == b.key {
		return exprFalse
	}
	if a.op == OpConst && b.op == OpConst {
		return BoolConst(a.val < b.val)
	}
	return mk(OpLt, BoolType, a, b)
}

// Le returns the comparison a <= b.
func Le(a, b *Expr) *Expr {
	if a.key == b.key {
		return exprTrue
	}
	if a.op == OpConst && b.op == OpConst {
		return BoolConst(a.val <= b.val)
	}
	return mk(OpLe, BoolType, a, b)
}

// Gt returns the comparison a > b, that is b < a.
func Gt(a, b *Expr) *Expr { return Lt(b, a) }

// Ge returns the comparison a >= b, that is b <= a.
func Ge(a, b *Expr) *Expr { return Le(b, a) }

// Neq returns the negation of a = b.
func Neq(a, b *Expr) *Expr { return Not(Eq(a, b)) }

// Add returns the sum of es. Constants are folded.
func Add(es ...*Expr) *Expr {
	var c int64
	args := make([]*Expr, 0, len(es))
	for _, e := range es {
		switch {
		case e.op == OpConst:
			c += e.val
		case e.op == OpAdd:
			for _, a := range e.args {
				if a.op == OpConst {
					c += a.val
					continue
				}
				args = append(args, a)
			}
		default:
			args = append(args, e)
		}
	}
	if c != 0 {
		args = append(args, Int(c))
	}
	switch len(args) {
	case 0:
		return Int(0)
	case 1:
		return args[0]
	}
	return mk(OpAdd, IntType, args...)
}

// Sub returns the difference a - b.
func Sub(a, b *Expr) *Expr {
	switch {
	case a.key == b.key:
		return Int(0)
	case a.op == OpConst && b.op == OpConst:
		return Int(a.val - b.val)
	case b.op == OpConst && b.val == 0:
		return a
	case b.op == OpConst:
		return Add(a, Int(-b.val))
	}
	return mk(OpSub, IntType, a, b)
}

// Mul returns the product of es. Constants are folded.
func Mul(es ...*Expr) *Expr {
	c := int64(1)
	args := make([]*Expr, 0, len(es))
	for _, e := range es {
		switch {
		case e.op == OpConst:
			c *= e.val
		case e.op == OpMul:
			for _, a := range e.args {
				if a.op == OpConst {
					c *= a.val
					continue
				}
				args = append(args, a)
			}
		default:
			args = append(args, e)
		}
	}
	if c == 0 {
		return Int(0)
	}
	if c != 1 {
		args = append([]*Expr{Int(c)}, args...)
	}
	switch len(args) {
	case 0:
		return Int(c)
	case 1:
		return args[0]
	}
	return mk(OpMul, IntType, args...)
}

// Neg returns the opposite of e.
func Neg(e *Expr) *Expr {
	switch e.op {
	case OpConst:
		return Int(-e.val)
	case OpNeg:
		return e.args[0]
	}
	return mk(OpNeg, IntType, e)
}
