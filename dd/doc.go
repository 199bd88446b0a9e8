// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

/*
Package dd defines a concrete type for decision diagrams used by the
abstraction engine: reduced ordered Binary Decision Diagrams (BDD) whose
terminal nodes may also carry arbitrary float64 values (MTBDD, also called
ADD).

Basics

Variables are identified by an integer index, called a level, in the interval
[0..Varnum). The variable order is fixed and equal to the index order. Unlike
BuDDy, the number of variables can grow during a computation (see SetVarnum):
terminal nodes always have a level above every possible variable, so adding
variables never renumbers existing nodes.

Most operations return a Node; that is a pointer to an integer index in the
node table of the BDD. By convention 1 (respectively 0) is the address of the
constant function True (respectively False); these are also the MTBDD
terminals with value 1.0 and 0.0. Boolean operations (Not, And, Exist, ...)
expect diagrams whose terminals are 0 and 1. Arithmetic operations (Plus,
Times, Max, ...) accept any terminal values.

Automatic memory management

Like with MuDDy, a ML interface to BuDDy, we piggyback on the garbage
collection mechanism of the host language. Each Node returned to user code
increments a reference counter in the node table and registers a finalizer
that decrements it. Nodes with a null count are reclaimed by our own mark and
sweep collector when the table is full; the table grows when too few nodes can
be reclaimed. Operation caches are invalidated after each collection.

Use of build tags

Compile with the build tag `debug` to log garbage collections and resizing
events and to collect statistics about the unique table.
*/
package dd
