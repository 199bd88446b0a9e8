// Copyright 2021. Silvano DAL ZILIO.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package dd

import (
	"fmt"
)

// cache is used for caching apply/exist etc. results
type cache struct {
	cacheratio int // value used to resize the caches as a factor of the number of nodes
	table      []cacheData
}

// cacheStat stores status information about cache usage
type cacheStat struct {
	uniqueAccess int // accesses to the unique node table
	uniqueHit    int // entries actually found in the the unique node table
	uniqueMiss   int // entries not found in the the unique node table
	opHit        int // entries found in the operator caches
	opMiss       int // entries not found in the operator caches
}

// cacheData is a unit of information stored in the Apply and ITE cache
type cacheData struct {
	res int
	a   int
	b   int
	c   int
}

// Hash value modifiers for quantification
const cacheid_EXIST int = 0x0
const cacheid_APPEX int = 0x3

// Hash value modifiers for replace
const cacheid_REPLACE int = 0x0

// Basic functions shared by all caches

func (bc *cache) cacheinit(size int) {
	size = primeGte(size)
	bc.table = make([]cacheData, size)
	bc.cachereset()
}

func (bc *cache) cacheresize(size int) {
	if bc.cacheratio > 0 {
		bc.cacheinit((size * bc.cacheratio) / 100)
		return
	}
	bc.cachereset()
}

func (bc *cache) cachereset() {
	for k := range bc.table {
		bc.table[k].a = -1
	}
}

// caches groups all the operation caches of a BDD.
type caches struct {
	applycache   cache // Cache for apply and not results
	itecache     cache // Cache for ITE results
	quantcache   cache // Cache for exist results
	quantid      int   // Current cache id for quantifications
	appexcache   cache // Cache for appex results
	appexid      int   // Current cache id for appex
	appexop      Operator
	replacecache cache // Cache for replace results
	replacecur   int   // Current cache id for replace
}

func (b *BDD) cacheinit(c *configs) {
	cachesize := c.cachesize
	if cachesize <= 0 {
		cachesize = len(b.nodes)/5 + 1
	}
	for _, bc := range b.allcaches() {
		bc.cacheratio = c.cacheratio
		bc.cacheinit(cachesize)
	}
}

func (b *BDD) allcaches() []*cache {
	return []*cache{&b.applycache, &b.itecache, &b.quantcache, &b.appexcache, &b.replacecache}
}

func (b *BDD) cachereset() {
	for _, bc := range b.allcaches() {
		bc.cachereset()
	}
}

func (b *BDD) cacheresize() {
	for _, bc := range b.allcaches() {
		bc.cacheresize(len(b.nodes))
	}
}

// ************************************************************

// Quantification Cache

// quantset2cache takes a variable list, similar to the ones generated with
// Makeset, and set the variables in the quantification cache.
func (b *BDD) quantset2cache(n int) error {
	if n < 2 {
		return nil
	}
	b.quantsetID++
	if b.quantsetID == 0x7FFFFFFF {
		b.quantset = make([]int32, b.varnum)
		b.quantsetID = 1
	}
	b.quantlast = -1
	for i := n; i > 1; i = b.nodes[i].high {
		if b.isterminal(i) {
			b.seterror("illegal terminal (%d) in varset", i)
			return b.error
		}
		b.quantset[b.nodes[i].level] = b.quantsetID
		b.quantlast = b.nodes[i].level
	}
	return nil
}

// ************************************************************

// Prints information about the cache performance. The information contains the
// number of accesses to the unique node table and the number of times a node
// was (not) found there. Hit and miss count is also given for the operator
// caches.
func (c cacheStat) String() string {
	res := fmt.Sprintf("Unique Access:  %d\n", c.uniqueAccess)
	res += fmt.Sprintf("Unique Hit:     %d\n", c.uniqueHit)
	res += fmt.Sprintf("Unique Miss:    %d\n", c.uniqueMiss)
	res += fmt.Sprintf("Operator Hits:  %d\n", c.opHit)
	res += fmt.Sprintf("Operator Miss:  %d", c.opMiss)
	return res
}
