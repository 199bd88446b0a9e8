// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package smt defines the interface to the decision procedures used by the
// abstraction engine, together with two implementations: a SAT backend based on
// gini, that bit-blasts bounded integer variables, and an enumerating backend
// that explores finite domains explicitly and is used for tests.
package smt

import (
	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/lang"
)

// Verdict is the answer to a satisfiability check.
type Verdict int

const (
	Unknown Verdict = iota
	Sat
	Unsat
)

func (v Verdict) String() string {
	switch v {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	}
	return "unknown"
}

// Value is the value of a tracked expression in a cube.
type Value int8

const (
	DontCare Value = -1
	False    Value = 0
	True     Value = 1
)

// Solver is an incremental decision procedure over the variables of a model.
// Assertions are organized in a stack of frames.
type Solver interface {
	// Push opens a new assertion frame.
	Push()
	// Pop discards the assertions of the last frame.
	Pop() error
	// Assert adds e to the current frame.
	Assert(e *expr.Expr) error
	// Check decides the satisfiability of the current assertions.
	Check() (Verdict, error)
	// Enumerate returns an enumerator over the assignments of the boolean
	// expressions exprs that are consistent with the current assertions.
	Enumerate(exprs []*expr.Expr) (Enumerator, error)
}

// Enumerator lists the distinct assignments (cubes) of a fixed list of
// expressions. Cubes returned by a call to Run are never returned again by
// later calls on the same enumerator.
type Enumerator interface {
	// Run calls f on each new cube consistent with restriction, stopping after
	// limit cubes (no limit if limit <= 0). It returns the number of cubes
	// found and whether the enumeration is complete, meaning that no other
	// cube exists. An unknown answer from the solver is reported as an
	// Inconclusive error.
	Run(restriction *expr.Expr, limit int, f func(cube []Value) error) (n int, complete bool, err error)
	// Close releases the resources of the enumerator.
	Close()
}

// Factory creates a solver for a model with variables vars.
type Factory func(vars []lang.Var) (Solver, error)

// Valid checks whether e is valid under the current assertions of s. The
// result is an Inconclusive error if the solver cannot decide.
func Valid(s Solver, e *expr.Expr) (bool, error) {
	v, err := checkWith(s, expr.Not(e))
	if err != nil {
		return false, err
	}
	return v == Unsat, nil
}

// Satisfiable checks whether e is satisfiable under the current assertions of
// s. The result is an Inconclusive error if the solver cannot decide.
func Satisfiable(s Solver, e *expr.Expr) (bool, error) {
	v, err := checkWith(s, e)
	if err != nil {
		return false, err
	}
	return v == Sat, nil
}

func checkWith(s Solver, e *expr.Expr) (Verdict, error) {
	s.Push()
	if err := s.Assert(e); err != nil {
		s.Pop()
		return Unknown, err
	}
	v, err := s.Check()
	if perr := s.Pop(); err == nil {
		err = perr
	}
	if err != nil {
		return Unknown, err
	}
	if v == Unknown {
		return Unknown, abserr.Errorf(abserr.Inconclusive, "check", "solver cannot decide %s", e)
	}
	return v, nil
}
