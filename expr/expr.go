// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package expr defines the immutable boolean and integer expressions used to
// describe guarded commands, predicates and solver queries.
//
// Expressions are built with smart constructors that fold constants and
// flatten associative operators, so that two expressions with the same
// canonical key are structurally equal. Keys are computed once, at
// construction, and can be used as map keys.
package expr

import (
	"sort"
	"strconv"
	"strings"
)

// Op is the operator at the root of an expression.
type Op int

const (
	OpConst Op = iota // boolean or integer constant
	OpVar             // program variable
	OpNot             // negation
	OpAnd             // n-ary conjunction
	OpOr              // n-ary disjunction
	OpIte             // if-then-else
	OpEq              // equality (equivalence for booleans)
	OpLt              // strictly less than
	OpLe              // less or equal
	OpAdd             // n-ary sum
	OpSub             // difference
	OpMul             // n-ary product
	OpNeg             // unary minus
)

var opnames = [...]string{
	OpConst: "const",
	OpVar:   "var",
	OpNot:   "!",
	OpAnd:   "&",
	OpOr:    "|",
	OpIte:   "ite",
	OpEq:    "=",
	OpLt:    "<",
	OpLe:    "<=",
	OpAdd:   "+",
	OpSub:   "-",
	OpMul:   "*",
	OpNeg:   "neg",
}

func (op Op) String() string {
	if op < 0 || int(op) >= len(opnames) {
		return "unknown"
	}
	return opnames[op]
}

// Type is the type of an expression.
type Type int

const (
	BoolType Type = iota
	IntType
)

func (t Type) String() string {
	if t == BoolType {
		return "bool"
	}
	return "int"
}

// Expr is an expression node. The zero value is not a valid expression; use the
// constructors of this package.
type Expr struct {
	op   Op
	typ  Type
	val  int64
	name string
	args []*Expr
	key  string
}

// Op returns the operator of e.
func (e *Expr) Op() Op { return e.op }

// Type returns the type of e.
func (e *Expr) Type() Type { return e.typ }

// Name returns the name of a variable, or the empty string.
func (e *Expr) Name() string { return e.name }

// Value returns the value of a constant. Boolean constants are 0 or 1.
func (e *Expr) Value() int64 { return e.val }

// Args returns the operands of e. The slice must not be modified.
func (e *Expr) Args() []*Expr { return e.args }

// Arg returns the i'th operand of e.
func (e *Expr) Arg(i int) *Expr { return e.args[i] }

// Key returns the canonical key of e. Two expressions are structurally equal
// if and only if they have the same key.
func (e *Expr) Key() string { return e.key }

// Equal reports whether e and f are structurally equal.
func (e *Expr) Equal(f *Expr) bool {
	if e == nil || f == nil {
		return e == f
	}
	return e.key == f.key
}

// IsTrue reports whether e is the constant true.
func (e *Expr) IsTrue() bool {
	return e.op == OpConst && e.typ == BoolType && e.val == 1
}

// IsFalse reports whether e is the constant false.
func (e *Expr) IsFalse() bool {
	return e.op == OpConst && e.typ == BoolType && e.val == 0
}

// IsConst reports whether e is a constant.
func (e *Expr) IsConst() bool {
	return e.op == OpConst
}

// String returns an infix representation of e.
func (e *Expr) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e *Expr) write(sb *strings.Builder) {
	switch e.op {
	case OpConst:
		if e.typ == BoolType {
			if e.val == 1 {
				sb.WriteString("true")
			} else {
				sb.WriteString("false")
			}
			return
		}
		sb.WriteString(strconv.FormatInt(e.val, 10))
	case OpVar:
		sb.WriteString(e.name)
	case OpNot:
		sb.WriteString("!")
		e.args[0].writeArg(sb)
	case OpNeg:
		sb.WriteString("-")
		e.args[0].writeArg(sb)
	case OpIte:
		sb.WriteString("(")
		e.args[0].write(sb)
		sb.WriteString(" ? ")
		e.args[1].write(sb)
		sb.WriteString(" : ")
		e.args[2].write(sb)
		sb.WriteString(")")
	default:
		for k, a := range e.args {
			if k > 0 {
				sb.WriteString(" ")
				sb.WriteString(e.op.String())
				sb.WriteString(" ")
			}
			a.writeArg(sb)
		}
	}
}

func (e *Expr) writeArg(sb *strings.Builder) {
	if len(e.args) > 1 && e.op != OpIte {
		sb.WriteString("(")
		e.write(sb)
		sb.WriteString(")")
		return
	}
	e.write(sb)
}

// mkkey computes the canonical key of an expression from its parts.
func mkkey(op Op, typ Type, val int64, name string, args []*Expr) string {
	switch op {
	case OpConst:
		if typ == BoolType {
			if val == 1 {
				return "T"
			}
			return "F"
		}
		return strconv.FormatInt(val, 10)
	case OpVar:
		return "$" + name
	}
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(op.String())
	for _, a := range args {
		sb.WriteString(" ")
		sb.WriteString(a.key)
	}
	sb.WriteString(")")
	return sb.String()
}

func mk(op Op, typ Type, args ...*Expr) *Expr {
	return &Expr{op: op, typ: typ, args: args, key: mkkey(op, typ, 0, "", args)}
}

// sortArgs sorts expressions by key and removes duplicates.
func sortArgs(args []*Expr) []*Expr {
	sort.SliceStable(args, func(i, j int) bool { return args[i].key < args[j].key })
	res := args[:0]
	for _, a := range args {
		if len(res) > 0 && a.key == res[len(res)-1].key {
			continue
		}
		res = append(res, a)
	}
	return res
}
