// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import (
	"log"
)

// Node is a reference to an element of a BDD. It represents the atomic unit of
// interactions and computations within a BDD.
type Node *int

// inode returns a Node for known nodes, such as constants, that do not need to
// increase their reference count.
func inode(n int) Node {
	x := n
	return &x
}

var bddone Node = inode(1)

var bddzero Node = inode(0)

// BDD is a decision diagram manager: a node table shared by all the diagrams
// built with it, together with its operation caches. A BDD is not safe for
// concurrent use.
type BDD struct {
	varnum        int32           // number of variables
	nodes         []node          // List of all the BDD nodes. Constants are always kept at index 0 and 1
	unique        map[nodekey]int // Unicity table, used to associate each triplet to a single node
	terminals     map[uint64]int  // Unicity table for terminal values, other than 0 and 1
	varset        [][2]int        // Index of the nodes for the positive and negative form of each variable
	freenum       int             // Number of free nodes
	freepos       int             // First free node
	produced      int             // Total number of new nodes ever produced
	refstack      []int           // Internal node reference stack
	nodefinalizer func(n *int)    // Finalizer used to decrement the ref count of external references
	quantset      []int32         // Current variable set for quant.
	quantsetID    int32           // Current id used in quantset
	quantlast     int32           // Current last variable to be quant.
	replaceid     int             // Last identifier given to a replacer
	error         error           // Sticky error state
	gcstat                        // Information about garbage collections
	cacheStat                     // Information about the caches
	caches                        // Operation caches
	configs                       // Configurable parameters
}

// New returns a new BDD with varnum variables. Options can be used to set the
// initial size of the node table and of the caches (see Nodesize, Cachesize,
// etc.).
//
// The number of variables can be increased later with SetVarnum.
func New(varnum int, options ...Option) (*BDD, error) {
	b := &BDD{}
	if (varnum < 0) || (int32(varnum) >= _MAXVAR) {
		b.seterror("bad number of variable (%d)", varnum)
		return nil, b.error
	}
	config := makeconfigs(varnum)
	for _, f := range options {
		f(config)
	}
	b.configs = *config
	if b.nodesize < 2*varnum+2 {
		b.nodesize = 2*varnum + 2
	}
	if b.nodesize < 16 {
		b.nodesize = 16
	}
	b.refstack = make([]int, 0, 2*varnum+4)
	b.inittable(b.nodesize)
	b.cacheinit(config)
	if err := b.SetVarnum(varnum); err != nil {
		return nil, err
	}
	return b, nil
}

// SetVarnum sets the number of BDD variables. It may be called more than once,
// but only to increase the number of variables.
func (b *BDD) SetVarnum(num int) error {
	inum := int32(num)
	if (inum < b.varnum) || (inum >= _MAXVAR) {
		b.seterror("bad number of variable (%d) in SetVarnum", inum)
		return b.error
	}
	if inum == b.varnum && b.quantset != nil {
		return nil
	}
	b.initref()
	for k := b.varnum; k < inum; k++ {
		v0 := b.makenode(k, 0, 1)
		if v0 < 0 {
			b.seterror("cannot allocate new variable %d in SetVarnum", k)
			return b.error
		}
		b.nodes[v0].refcou = _MAXREFCOUNT
		b.pushref(v0)
		v1 := b.makenode(k, 1, 0)
		if v1 < 0 {
			b.seterror("cannot allocate new variable %d in SetVarnum", k)
			return b.error
		}
		b.nodes[v1].refcou = _MAXREFCOUNT
		b.popref(1)
		b.varset = append(b.varset, [2]int{v0, v1})
	}
	b.varnum = inum
	quantset := make([]int32, inum)
	copy(quantset, b.quantset)
	b.quantset = quantset
	if _LOGLEVEL > 0 {
		log.Printf("set varnum to %d\n", b.varnum)
	}
	return nil
}

// Varnum returns the number of defined variables.
func (b *BDD) Varnum() int {
	return int(b.varnum)
}

// True returns the constant true BDD (or the MTBDD terminal 1.0).
func (b *BDD) True() Node {
	return bddone
}

// False returns the constant false BDD (or the MTBDD terminal 0.0).
func (b *BDD) False() Node {
	return bddzero
}

// From returns a (constant) Node from a boolean value.
func (b *BDD) From(v bool) Node {
	if v {
		return bddone
	}
	return bddzero
}

// Ithvar returns a BDD representing the i'th variable on success. The requested
// variable must be in the range [0..Varnum).
func (b *BDD) Ithvar(i int) Node {
	if (i < 0) || (int32(i) >= b.varnum) {
		return b.seterror("unknown variable used (%d) in call to Ithvar", i)
	}
	// we do not need to reference count variables
	return inode(b.varset[i][0])
}

// NIthvar returns a bdd representing the negation of the i'th variable on
// success. See *ithvar* for further info.
func (b *BDD) NIthvar(i int) Node {
	if (i < 0) || (int32(i) >= b.varnum) {
		return b.seterror("unknown variable used (%d) in call to NIthvar", i)
	}
	return inode(b.varset[i][1])
}

// Label returns the variable (index) corresponding to node n in the BDD. We
// return -1 for terminal nodes.
func (b *BDD) Label(n Node) int {
	if b.checkptr(n) != nil {
		return -1
	}
	if b.isterminal(*n) {
		return -1
	}
	return int(b.nodes[*n].level)
}

// Low returns the false branch of a BDD or nil if there is an error.
func (b *BDD) Low(n Node) Node {
	if b.checkptr(n) != nil {
		return b.seterror("illegal access to node %d in call to Low", n)
	}
	return b.retnode(b.nodes[*n].low)
}

// High returns the true branch of a BDD.
func (b *BDD) High(n Node) Node {
	if b.checkptr(n) != nil {
		return b.seterror("illegal access to node %d in call to High", n)
	}
	return b.retnode(b.nodes[*n].high)
}

// Equal tests equivalence between nodes.
func (b *BDD) Equal(low, high Node) bool {
	if low == high {
		return true
	}
	if low == nil || high == nil {
		return false
	}
	return *low == *high
}

// IsFalse reports whether n is the constant False.
func (b *BDD) IsFalse(n Node) bool {
	return n != nil && *n == 0
}

// IsTrue reports whether n is the constant True.
func (b *BDD) IsTrue(n Node) bool {
	return n != nil && *n == 1
}

// Stats returns information about the BDD.
func (b *BDD) Stats() string {
	return b.stats()
}

// ************************************************************

// And returns the logical 'and' of a sequence of nodes.
func (b *BDD) And(n ...Node) Node {
	if len(n) == 1 {
		return n[0]
	}
	if len(n) == 0 {
		return bddone
	}
	return b.Apply(n[0], b.And(n[1:]...), OPand)
}

// Or returns the logical 'or' of a sequence of BDDs.
func (b *BDD) Or(n ...Node) Node {
	if len(n) == 1 {
		return n[0]
	}
	if len(n) == 0 {
		return bddzero
	}
	return b.Apply(n[0], b.Or(n[1:]...), OPor)
}

// Imp returns the logical 'implication' between two BDDs.
func (b *BDD) Imp(n1, n2 Node) Node {
	return b.Apply(n1, n2, OPimp)
}

// Equiv returns the logical 'bi-implication' between two BDDs.
func (b *BDD) Equiv(n1, n2 Node) Node {
	return b.Apply(n1, n2, OPbiimp)
}

// Diff returns the set difference n1 & !n2.
func (b *BDD) Diff(n1, n2 Node) Node {
	return b.Apply(n1, n2, OPdiff)
}

// AndExist returns the "relational composition" of two nodes with respect to
// varset, meaning the result of (Exists varset . n1 & n2).
func (b *BDD) AndExist(varset, n1, n2 Node) Node {
	return b.AppEx(n1, n2, OPand, varset)
}

// Implies reports whether n1 is included in n2.
func (b *BDD) Implies(n1, n2 Node) bool {
	res := b.Apply(n1, n2, OPimp)
	return res != nil && *res == 1
}
