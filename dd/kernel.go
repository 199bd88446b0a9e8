// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import (
	"errors"
)

// _MINFREENODES is the minimal number of nodes (%) that has to be left after a
// garbage collect unless a resize should be done.
const _MINFREENODES int = 20

// _MAXVAR is the maximal number of levels in the BDD. We use only the first 21
// bits for encoding levels (so also the max number of variables). Terminal
// nodes are stored at level _MAXVAR.
const _MAXVAR int32 = 0x1FFFFF

// _TERMLEVEL is the level of every terminal node. It is strictly greater than
// the level of every variable.
const _TERMLEVEL int32 = _MAXVAR

// _MAXREFCOUNT is the maximal value of the reference counter (refcou), also
// used to stick nodes (like constants and variables) in the node list. It is
// equal to 1023 (10 bits).
const _MAXREFCOUNT int32 = 0x3FF

// _MARK is the bit used to mark nodes during garbage collection.
const _MARK int32 = 0x200000

// _DEFAULTMAXNODEINC is the default value for the maximal increase in the
// number of nodes during a resize. It is approx. one million nodes (1 048 576).
const _DEFAULTMAXNODEINC int = 1 << 20

var errMemory = errors.New("unable to free memory or resize BDD")
