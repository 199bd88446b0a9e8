// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package smt

import (
	"strings"

	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/lang"
	"github.com/dalzilio/pcegar/stats"
)

// Enum is a Solver that decides queries by enumerating all the assignments of
// the variables occurring in them. It is only practical for small domains and
// is mostly used for testing.
type Enum struct {
	config
	decls  map[string]lang.Var
	frames [][]*expr.Expr
}

// NewEnum returns an enumerating solver for a model with variables vars.
func NewEnum(vars []lang.Var, opts ...Option) *Enum {
	s := &Enum{
		decls:  make(map[string]lang.Var, len(vars)),
		frames: [][]*expr.Expr{nil},
	}
	for _, f := range opts {
		f(&s.config)
	}
	for _, v := range vars {
		s.decls[v.Name] = v
	}
	return s
}

// EnumFactory returns a Factory for enumerating solvers.
func EnumFactory(opts ...Option) Factory {
	return func(vars []lang.Var) (Solver, error) {
		return NewEnum(vars, opts...), nil
	}
}

// Push opens a new assertion frame.
func (s *Enum) Push() {
	s.frames = append(s.frames, nil)
}

// Pop discards the last assertion frame.
func (s *Enum) Pop() error {
	if len(s.frames) == 1 {
		return abserr.Errorf(abserr.Bookkeeping, "pop", "no assertion frame")
	}
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

// Assert adds e to the current frame.
func (s *Enum) Assert(e *expr.Expr) error {
	if e.Type() != expr.BoolType {
		return abserr.Errorf(abserr.Malformed, "enum", "expression %s is not boolean", e)
	}
	k := len(s.frames) - 1
	s.frames[k] = append(s.frames[k], e)
	return nil
}

func (s *Enum) assertions() *expr.Expr {
	all := []*expr.Expr{}
	for _, f := range s.frames {
		all = append(all, f...)
	}
	return expr.And(all...)
}

// Check decides the satisfiability of the current assertions.
func (s *Enum) Check() (Verdict, error) {
	s.metrics.Inc(stats.SolverChecks)
	phi := s.assertions()
	res := Unsat
	err := s.each([]*expr.Expr{phi}, func(env map[string]int64) (bool, error) {
		ok, err := expr.Holds(phi, env)
		if err != nil {
			return false, err
		}
		if ok {
			res = Sat
			return false, nil
		}
		return true, nil
	})
	if abserr.IsInconclusive(err) {
		s.metrics.Inc(stats.SolverUnknown)
		return Unknown, nil
	}
	if err != nil {
		return Unknown, err
	}
	return res, nil
}

// each calls f on every assignment of the variables of es, while f returns
// true.
func (s *Enum) each(es []*expr.Expr, f func(map[string]int64) (bool, error)) error {
	names := expr.Vars(es...)
	vars := make([]lang.Var, len(names))
	size := 1
	for k, n := range names {
		v, ok := s.decls[n]
		if !ok {
			return abserr.Errorf(abserr.Malformed, "enum", "undeclared variable %s", n)
		}
		if v.Kind == lang.BoolKind {
			v.Lo, v.Hi = 0, 1
		}
		vars[k] = v
		dom := int(v.Hi - v.Lo + 1)
		if s.maxsize > 0 && size > s.maxsize/dom {
			return abserr.Errorf(abserr.Inconclusive, "enum", "too many assignments")
		}
		size *= dom
	}
	env := make(map[string]int64, len(vars))
	for _, v := range vars {
		env[v.Name] = v.Lo
	}
	for {
		cont, err := f(env)
		if err != nil || !cont {
			return err
		}
		// next assignment, in lexicographic order
		k := len(vars) - 1
		for ; k >= 0; k-- {
			v := vars[k]
			if env[v.Name] < v.Hi {
				env[v.Name]++
				break
			}
			env[v.Name] = v.Lo
		}
		if k < 0 {
			return nil
		}
	}
}

// Enumerate returns an enumerator over the assignments of exprs.
func (s *Enum) Enumerate(exprs []*expr.Expr) (Enumerator, error) {
	for _, e := range exprs {
		if e.Type() != expr.BoolType {
			return nil, abserr.Errorf(abserr.Malformed, "enum", "expression %s is not boolean", e)
		}
	}
	return &enumEnum{s: s, exprs: exprs, blocked: make(map[string]bool)}, nil
}

type enumEnum struct {
	s       *Enum
	exprs   []*expr.Expr
	blocked map[string]bool
}

func cubeKey(cube []Value) string {
	var sb strings.Builder
	for _, v := range cube {
		switch v {
		case True:
			sb.WriteByte('1')
		case False:
			sb.WriteByte('0')
		default:
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

func (en *enumEnum) Run(restriction *expr.Expr, limit int, f func([]Value) error) (int, bool, error) {
	s := en.s
	s.metrics.Inc(stats.SolverChecks)
	phi := s.assertions()
	if restriction != nil {
		phi = expr.And(phi, restriction)
	}
	n := 0
	complete := true
	all := append([]*expr.Expr{phi}, en.exprs...)
	err := s.each(all, func(env map[string]int64) (bool, error) {
		ok, err := expr.Holds(phi, env)
		if err != nil || !ok {
			return true, err
		}
		cube := make([]Value, len(en.exprs))
		for k, e := range en.exprs {
			v, err := expr.Holds(e, env)
			if err != nil {
				return false, err
			}
			if v {
				cube[k] = True
			} else {
				cube[k] = False
			}
		}
		key := cubeKey(cube)
		if en.blocked[key] {
			return true, nil
		}
		if limit > 0 && n >= limit {
			complete = false
			return false, nil
		}
		en.blocked[key] = true
		n++
		s.metrics.Inc(stats.Cubes)
		return true, f(cube)
	})
	if err != nil {
		return n, false, err
	}
	return n, complete, nil
}

func (en *enumEnum) Close() {}
