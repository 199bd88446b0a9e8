// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

/*
Package pcegar computes bounds on reachability probabilities of probabilistic
programs using predicate abstraction and counterexample guided refinement.

Basics

A program is a set of guarded commands over bounded integer and Boolean
variables (see package lang). Each command, when its guard holds, chooses one
of its alternatives according to their probabilities and updates the variables
accordingly. The property is the minimal, or maximal, probability to eventually
reach a state satisfying a target condition.

The function Check builds an abstraction of the program over a finite set of
predicates, starting with the atoms of the target, of the initial condition
and of the guards. Abstract states are valuations of the predicates; the
abstract transition relation is computed symbolically, using decision diagrams
(package dd), from the satisfying assignments enumerated by a solver (package
smt).

Refinement

The abstraction is interpreted as a stochastic game where one player resolves
the uncertainty due to the abstraction and the other resolves the
nondeterminism of the program. Solving the game gives a lower and an upper
bound of the probability. When the bounds are too far apart, the state that
contributes most to the gap is refined: either a spurious transition is
removed, or the state is split along the weakest precondition of its
successors, which yields new predicates. The bounds of successive rounds are
intersected, so the interval returned by Check always contains the exact
probability.

Solvers

Two solver back ends are available. The default one bit-blasts integer
constraints into an and-inverter graph solved by the gini SAT solver. The
enumerating back end, which evaluates constraints on every assignment of the
variables, is only practical on small domains but is useful for testing.
*/
package pcegar
