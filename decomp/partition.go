// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package decomp

// Partition returns the classes of rows that are connected through a shared
// element of their support. Classes are lists of row indices in increasing
// order, and classes are ordered by their smallest row. A row with an empty
// support is alone in its class.
func Partition(support [][]string) [][]int {
	parent := make([]int, len(support))
	for k := range parent {
		parent[k] = k
	}
	var find func(int) int
	find = func(k int) int {
		for parent[k] != k {
			parent[k] = parent[parent[k]]
			k = parent[k]
		}
		return k
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		switch {
		case ra < rb:
			parent[rb] = ra
		case rb < ra:
			parent[ra] = rb
		}
	}
	owner := make(map[string]int)
	for k, vars := range support {
		for _, v := range vars {
			if o, ok := owner[v]; ok {
				union(o, k)
				continue
			}
			owner[v] = k
		}
	}
	res := [][]int{}
	class := make(map[int]int)
	for k := range support {
		r := find(k)
		c, ok := class[r]
		if !ok {
			c = len(res)
			class[r] = c
			res = append(res, nil)
		}
		res[c] = append(res[c], k)
	}
	return res
}

// Cache stores values computed for clusters, indexed by cluster keys.
type Cache[V any] struct {
	m      map[string]V
	hits   int
	misses int
}

// NewCache returns an empty cache.
func NewCache[V any]() *Cache[V] {
	return &Cache[V]{m: make(map[string]V)}
}

// Get returns the value stored for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	v, ok := c.m[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Put stores v for key.
func (c *Cache[V]) Put(key string, v V) {
	c.m[key] = v
}

// Len returns the number of entries in c.
func (c *Cache[V]) Len() int { return len(c.m) }

// Stats returns the number of successful and failed lookups.
func (c *Cache[V]) Stats() (hits, misses int) { return c.hits, c.misses }
