// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import (
	"fmt"
	"log"
	"math"
	"runtime"
	"sync/atomic"
)

// node is an entry of the node table. Terminal nodes have level _TERMLEVEL,
// their own index as low and high branch, and carry a value. When a slot is
// unused we have low set to -1 and high set to the next free position.
type node struct {
	level  int32   // Order of the variable in the BDD
	low    int     // Reference to the false branch
	high   int     // Reference to the true branch
	refcou int32   // Count the number of external references
	value  float64 // Value of terminal nodes
}

// nodekey is the key of the unique table.
type nodekey struct {
	level int32
	low   int
	high  int
}

// gcstat stores status information about garbage collections. We use a stack
// (slice) of objects to record the sequence of GC during a computation.
type gcstat struct {
	setfinalizers    uint64    // Total number of external references to BDD nodes
	calledfinalizers uint64    // Number of external references that were freed
	history          []gcpoint // Snaphot of GC stats at each occurrence
}

type gcpoint struct {
	nodes            int // Total number of allocated nodes in the nodetable
	freenodes        int // Number of free nodes in the nodetable
	setfinalizers    int // Total number of external references to BDD nodes
	calledfinalizers int // Number of external references that were freed
}

func (b *BDD) ismarked(n int) bool {
	return (b.nodes[n].refcou & _MARK) != 0
}

func (b *BDD) marknode(n int) {
	b.nodes[n].refcou |= _MARK
}

func (b *BDD) unmarknode(n int) {
	b.nodes[n].refcou &^= _MARK
}

func (b *BDD) isterminal(n int) bool {
	return b.nodes[n].level == _TERMLEVEL
}

func (b *BDD) level(n int) int32 {
	return b.nodes[n].level
}

func (b *BDD) low(n int) int {
	return b.nodes[n].low
}

func (b *BDD) high(n int) int {
	return b.nodes[n].high
}

// vlevel returns the level of n, where terminals are considered to be just
// below the last variable.
func (b *BDD) vlevel(n int) int32 {
	if b.isterminal(n) {
		return b.varnum
	}
	return b.nodes[n].level
}

func (b *BDD) inittable(nodesize int) {
	b.nodes = make([]node, nodesize)
	for k := range b.nodes {
		b.nodes[k] = node{
			low:  -1,
			high: k + 1,
		}
	}
	b.nodes[nodesize-1].high = 0
	b.unique = make(map[nodekey]int, nodesize)
	b.terminals = make(map[uint64]int)
	// creating bddzero and bddone. We do not add them to the unique table.
	b.nodes[0] = node{level: _TERMLEVEL, low: 0, high: 0, refcou: _MAXREFCOUNT, value: 0}
	b.nodes[1] = node{level: _TERMLEVEL, low: 1, high: 1, refcou: _MAXREFCOUNT, value: 1}
	b.freepos = 2
	b.freenum = nodesize - 2
	b.nodefinalizer = func(n *int) {
		if _DEBUG {
			atomic.AddUint64(&(b.gcstat.calledfinalizers), 1)
			if _LOGLEVEL > 2 {
				log.Printf("dec refcou %d\n", *n)
			}
		}
		b.nodes[*n].refcou--
	}
}

// retnode returns a Node for index n and increments its reference counter. The
// counter is decremented when the Node is collected by the Go runtime.
func (b *BDD) retnode(n int) Node {
	if n < 0 || n >= len(b.nodes) {
		if b.error == nil {
			b.seterror("unexpected error during operation (node %d)", n)
		}
		return nil
	}
	if n == 0 {
		return bddzero
	}
	if n == 1 {
		return bddone
	}
	x := n
	if b.nodes[n].refcou < _MAXREFCOUNT {
		b.nodes[n].refcou++
		runtime.SetFinalizer(&x, b.nodefinalizer)
		if _DEBUG {
			atomic.AddUint64(&(b.setfinalizers), 1)
			if _LOGLEVEL > 2 {
				log.Printf("inc refcou %d\n", n)
			}
		}
	}
	return &x
}

// checkptr returns an error if n is not a valid node of b.
func (b *BDD) checkptr(n Node) error {
	switch {
	case n == nil:
		b.seterror("illegal acces to node (nil value)")
		return b.error
	case (*n < 0) || (*n >= len(b.nodes)):
		b.seterror("illegal acces to node %d", *n)
		return b.error
	case (*n >= 2) && (b.nodes[*n].low == -1):
		b.seterror("illegal acces to node %d", *n)
		return b.error
	}
	return nil
}

// makenode returns the index of the node (level, low, high), creating it if
// needed. It returns -1 if we cannot allocate a new node.
func (b *BDD) makenode(level int32, low int, high int) int {
	if low < 0 || high < 0 {
		return -1
	}
	if _DEBUG {
		b.uniqueAccess++
	}
	// check whether children are equal, in which case we can skip the node
	if low == high {
		return low
	}
	// otherwise try to find an existing node using the unique table
	key := nodekey{level, low, high}
	if res, ok := b.unique[key]; ok {
		if _DEBUG {
			b.uniqueHit++
		}
		return res
	}
	if _DEBUG {
		b.uniqueMiss++
	}
	if !b.reserve() {
		return -1
	}
	b.produced++
	res := b.freepos
	b.freepos = b.nodes[res].high
	b.freenum--
	b.nodes[res] = node{level: level, low: low, high: high}
	b.unique[key] = res
	return res
}

// maketerminal returns the index of the terminal node with value v.
func (b *BDD) maketerminal(v float64) int {
	if v == 0 {
		return 0
	}
	if v == 1 {
		return 1
	}
	bits := math.Float64bits(v)
	if res, ok := b.terminals[bits]; ok {
		return res
	}
	if !b.reserve() {
		return -1
	}
	b.produced++
	res := b.freepos
	b.freepos = b.nodes[res].high
	b.freenum--
	b.nodes[res] = node{level: _TERMLEVEL, low: res, high: res, value: v}
	b.terminals[bits] = res
	return res
}

// reserve makes sure that there is a free position in the node table. If there
// is no available spot, we try garbage collection and, as a last resort,
// resizing the node table.
func (b *BDD) reserve() bool {
	if b.freepos != 0 {
		return true
	}
	b.gbc()
	if (b.freenum*100)/len(b.nodes) <= b.minfreenodes {
		if err := b.noderesize(); err != nil {
			b.seterror("%s (%d nodes)", err, len(b.nodes))
			return false
		}
	}
	if b.freepos == 0 {
		b.seterror("%s (%d nodes)", errMemory, len(b.nodes))
		return false
	}
	return true
}

// gbc is the garbage collector called for reclaiming memory, inside a call to
// makenode, when there are no free positions available. Allocated nodes that
// are not reclaimed do not move.
func (b *BDD) gbc() {
	if _LOGLEVEL > 0 {
		log.Println("starting GC")
	}
	// we append the current stats to the GC history
	b.gcstat.history = append(b.gcstat.history, gcpoint{
		nodes:            len(b.nodes),
		freenodes:        b.freenum,
		setfinalizers:    int(atomic.LoadUint64(&b.gcstat.setfinalizers)),
		calledfinalizers: int(atomic.LoadUint64(&b.gcstat.calledfinalizers)),
	})
	atomic.StoreUint64(&b.gcstat.setfinalizers, 0)
	atomic.StoreUint64(&b.gcstat.calledfinalizers, 0)
	// we mark the nodes in the refstack to avoid collecting them
	for _, r := range b.refstack {
		b.markrec(r)
	}
	// we also protect nodes with a positive refcount (and therefore also the
	// ones with a MAXREFCOUNT, such has variables)
	for k := range b.nodes {
		if b.nodes[k].low != -1 && (b.nodes[k].refcou&^_MARK) > 0 {
			b.markrec(k)
		}
	}
	b.freepos = 0
	b.freenum = 0
	// we do a pass through the nodes list to void the unmarked nodes. After
	// finishing this pass, b.freepos points to the first free position in
	// b.nodes, or it is 0 if we found none.
	for n := len(b.nodes) - 1; n > 1; n-- {
		if b.ismarked(n) && (b.nodes[n].low != -1) {
			b.unmarknode(n)
			continue
		}
		if b.nodes[n].low != -1 {
			if b.isterminal(n) {
				delete(b.terminals, math.Float64bits(b.nodes[n].value))
			} else {
				delete(b.unique, nodekey{b.nodes[n].level, b.nodes[n].low, b.nodes[n].high})
			}
		}
		b.nodes[n] = node{low: -1, high: b.freepos}
		b.freepos = n
		b.freenum++
	}
	// cached results may point to reclaimed nodes
	b.cachereset()
	if _LOGLEVEL > 0 {
		log.Printf("end GC; freenum: %d\n", b.freenum)
	}
}

func (b *BDD) noderesize() error {
	if _LOGLEVEL > 0 {
		log.Printf("start resize: %d\n", len(b.nodes))
	}
	oldsize := len(b.nodes)
	nodesize := len(b.nodes)
	if (oldsize >= b.maxnodesize) && (b.maxnodesize > 0) {
		return errMemory
	}
	if oldsize > (math.MaxInt32 >> 1) {
		nodesize = math.MaxInt32 - 1
	} else {
		nodesize = nodesize << 1
	}
	if b.maxnodeincrease > 0 && nodesize > (oldsize+b.maxnodeincrease) {
		nodesize = oldsize + b.maxnodeincrease
	}
	if (nodesize > b.maxnodesize) && (b.maxnodesize > 0) {
		nodesize = b.maxnodesize
	}
	if nodesize <= oldsize {
		return errMemory
	}
	tmp := b.nodes
	b.nodes = make([]node, nodesize)
	copy(b.nodes, tmp)
	for n := oldsize; n < nodesize; n++ {
		b.nodes[n] = node{low: -1, high: n + 1}
	}
	b.nodes[nodesize-1].high = b.freepos
	b.freepos = oldsize
	b.freenum += (nodesize - oldsize)
	b.cacheresize()
	if _LOGLEVEL > 0 {
		log.Printf("end resize: %d\n", len(b.nodes))
	}
	return nil
}

func (b *BDD) markrec(n int) {
	if n < 2 || b.ismarked(n) || (b.nodes[n].low == -1) {
		return
	}
	b.marknode(n)
	if b.isterminal(n) {
		return
	}
	b.markrec(b.nodes[n].low)
	b.markrec(b.nodes[n].high)
}

func (b *BDD) unmarkall() {
	for k, v := range b.nodes {
		if k < 2 || !b.ismarked(k) || (v.low == -1) {
			continue
		}
		b.unmarknode(k)
	}
}

// markcount marks the nodes reachable from n and returns their number.
func (b *BDD) markcount(n int) int {
	if n < 2 || b.ismarked(n) || (b.nodes[n].low == -1) {
		return 0
	}
	b.marknode(n)
	if b.isterminal(n) {
		return 1
	}
	return 1 + b.markcount(b.nodes[n].low) + b.markcount(b.nodes[n].high)
}

// ************************************************************

// The refstack protects intermediate results during an operation, since a
// garbage collection may be triggered by any call to makenode.

func (b *BDD) initref() {
	b.refstack = b.refstack[:0]
}

func (b *BDD) pushref(n int) int {
	b.refstack = append(b.refstack, n)
	return n
}

func (b *BDD) popref(a int) {
	b.refstack = b.refstack[:len(b.refstack)-a]
}

// ************************************************************

// stats returns information about the node table
func (b *BDD) stats() string {
	res := fmt.Sprintf("Varnum:     %d\n", b.varnum)
	res += fmt.Sprintf("Allocated:  %d\n", len(b.nodes))
	res += fmt.Sprintf("Produced:   %d\n", b.produced)
	r := (float64(b.freenum) / float64(len(b.nodes))) * 100
	res += fmt.Sprintf("Free:       %d  (%.3g %%)\n", b.freenum, r)
	res += fmt.Sprintf("Used:       %d  (%.3g %%)\n", len(b.nodes)-b.freenum, (100.0 - r))
	res += fmt.Sprintf("Terminals:  %d\n", len(b.terminals)+2)
	res += "==============\n"
	res += fmt.Sprintf("# of GC:    %d\n", len(b.gcstat.history))
	if _DEBUG {
		res += "==============\n"
		res += fmt.Sprintf("Unique Access:  %d\n", b.uniqueAccess)
		res += fmt.Sprintf("Unique Hit:     %d\n", b.uniqueHit)
		res += fmt.Sprintf("Unique Miss:    %d\n", b.uniqueMiss)
	}
	return res
}
