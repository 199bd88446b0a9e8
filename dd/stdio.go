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
	"bufio"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
)

// Print returns a one-line description of node n.
func (b *BDD) Print(n Node) string {
	if n == nil {
		return "Error (nil node)"
	}
	switch {
	case *n < 0:
		return "Error"
	case *n >= len(b.nodes):
		return fmt.Sprintf("Error (%d not a valid index)", *n)
	case b.nodes[*n].low == -1:
		return fmt.Sprintf("Error (node %d[%d] undefined)", *n, b.nodes[*n].level)
	case *n == 0:
		return "False"
	case *n == 1:
		return "True"
	case b.isterminal(*n):
		return fmt.Sprintf("%g", b.nodes[*n].value)
	}
	return fmt.Sprintf("(%d[%d] ? %d : %d)", *n, b.nodes[*n].level, b.nodes[*n].low, b.nodes[*n].high)
}

// Fprint outputs a textual representation of the diagram with root n, one line
// per node.
func (b *BDD) Fprint(w io.Writer, n Node) error {
	if err := b.checkptr(n); err != nil {
		fmt.Fprintf(w, "ERROR: %s\n", err)
		return err
	}
	if *n == 0 {
		fmt.Fprintln(w, "False")
		return nil
	}
	if *n == 1 {
		fmt.Fprintln(w, "True")
		return nil
	}
	fmt.Fprintf(w, "node: %d\n", *n)
	tw := tabwriter.NewWriter(w, 0, 0, 0, ' ', 0)
	for _, k := range b.reachable(*n) {
		if b.isterminal(k) {
			fmt.Fprintf(tw, "%d\t[val\t] = \t%g\n", k, b.nodes[k].value)
			continue
		}
		fmt.Fprintf(tw, "%d\t[%d\t] ? \t%d\t : %d\n", k, b.nodes[k].level, b.nodes[k].low, b.nodes[k].high)
	}
	return tw.Flush()
}

// reachable returns the sorted list of non-constant nodes reachable from n.
func (b *BDD) reachable(n int) []int {
	cnodes := b.markcount(n)
	nodes := make([]int, 0, cnodes)
	for i := 2; i < len(b.nodes); i++ {
		if b.ismarked(i) {
			b.unmarknode(i)
			nodes = append(nodes, i)
		}
	}
	sort.Ints(nodes)
	return nodes
}

// PrintDot writes a graph-like description of the diagrams with roots n...
// using the DOT format. We do not draw arcs that go to the constant false.
// Parameter name gives the label of each variable level; it may be nil.
func (b *BDD) PrintDot(w io.Writer, name func(int) string, n ...Node) error {
	for _, v := range n {
		if err := b.checkptr(v); err != nil {
			return err
		}
		b.markrec(*v)
	}
	nodes := []int{}
	for i := 2; i < len(b.nodes); i++ {
		if b.ismarked(i) {
			b.unmarknode(i)
			nodes = append(nodes, i)
		}
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph G {")
	fmt.Fprintln(bw, "1 [shape=box, label=\"1\", style=filled, height=0.3, width=0.3];")
	for _, v := range nodes {
		if b.isterminal(v) {
			fmt.Fprintf(bw, "%d [shape=box, label=\"%g\", style=filled, height=0.3, width=0.3];\n", v, b.nodes[v].value)
			continue
		}
		lbl := fmt.Sprintf("%d", b.nodes[v].level)
		if name != nil {
			lbl = name(int(b.nodes[v].level))
		}
		fmt.Fprintf(bw, "%d %s\n", v, dotlabel(v, lbl))
		if b.nodes[v].low != 0 {
			fmt.Fprintf(bw, "%d -> %d [style=dotted];\n", v, b.nodes[v].low)
		}
		if b.nodes[v].high != 0 {
			fmt.Fprintf(bw, "%d -> %d [style=filled];\n", v, b.nodes[v].high)
		}
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func dotlabel(a int, b string) string {
	return fmt.Sprintf(`[label=<
	<FONT POINT-SIZE="20">%s</FONT>
	<FONT POINT-SIZE="10">[%d]</FONT>
>];`, b, a)
}
