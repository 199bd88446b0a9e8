// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

// configs holds the sizing parameters of a BDD.
type configs struct {
	varnum          int
	nodesize        int // initial size of the node table
	cachesize       int // initial size of each operation cache (0 for a fifth of nodesize)
	cacheratio      int // cache size as a percentage of the node table after a resize (0 to keep it fixed)
	maxnodesize     int // bound on the size of the node table (0 for none)
	maxnodeincrease int // bound on the growth of the table at each resize (0 for none)
	minfreenodes    int // free nodes (%) below which a collection is followed by a resize
}

// Option sets a sizing parameter of a BDD. Options are passed to New.
type Option func(*configs)

func makeconfigs(varnum int) *configs {
	return &configs{
		varnum:          varnum,
		nodesize:        2*varnum + 2,
		minfreenodes:    _MINFREENODES,
		maxnodeincrease: _DEFAULTMAXNODEINC,
	}
}

// Nodesize sets the initial size of the node table. Values too small to hold
// the variables are ignored; the table grows when needed.
func Nodesize(size int) Option {
	return func(c *configs) {
		if size >= 2*c.varnum+2 {
			c.nodesize = size
		}
	}
}

// Maxnodesize bounds the size of the node table. An operation that needs more
// nodes sets the error of the BDD and returns nil.
func Maxnodesize(size int) Option {
	return func(c *configs) {
		c.maxnodesize = size
	}
}

// Maxnodeincrease bounds the number of nodes added at each resize. Below this
// bound, the table doubles.
func Maxnodeincrease(size int) Option {
	return func(c *configs) {
		c.maxnodeincrease = size
	}
}

// Minfreenodes sets the percentage of free nodes that a garbage collection
// must recover to avoid a resize of the table. The default is 20.
func Minfreenodes(ratio int) Option {
	return func(c *configs) {
		c.minfreenodes = ratio
	}
}

// Cachesize sets the initial number of entries of the operation caches.
func Cachesize(size int) Option {
	return func(c *configs) {
		c.cachesize = size
	}
}

// Cacheratio makes the caches grow with the node table: after a resize, each
// cache gets ratio percent of the number of nodes.
func Cacheratio(ratio int) Option {
	return func(c *configs) {
		c.cacheratio = ratio
	}
}
