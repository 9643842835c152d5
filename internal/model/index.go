package model

import "golang.org/x/net/html"

// Index is the pre-order numbering over a cleaned tag tree (spec.md §4.1
// "Indexing"). It is the only stable name used by later stages, so rather
// than mutating the DOM with a visible attribute, it is kept as a side
// table keyed by node pointer — valid for as long as the tree is not
// re-parsed, which matches the pipeline's per-page, discard-after-use
// lifecycle (spec.md §3 "Lifecycles").
type Index struct {
	byNode   map[*html.Node]int
	byOrdinal []*html.Node
}

// NewIndex walks root in document (pre-)order and assigns scraperIndex
// 0,1,2,... to every element node.
func NewIndex(root *html.Node) *Index {
	idx := &Index{byNode: map[*html.Node]int{}}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			idx.byNode[n] = len(idx.byOrdinal)
			idx.byOrdinal = append(idx.byOrdinal, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return idx
}

// Of returns the scraperIndex for n, and false if n was never indexed
// (e.g. it was created after indexing, such as a synthetic image tag).
func (idx *Index) Of(n *html.Node) (int, bool) {
	i, ok := idx.byNode[n]
	return i, ok
}

// Node returns the node for a given scraperIndex.
func (idx *Index) Node(i int) *html.Node {
	if i < 0 || i >= len(idx.byOrdinal) {
		return nil
	}
	return idx.byOrdinal[i]
}

// Len is the number of indexed (element) nodes.
func (idx *Index) Len() int {
	return len(idx.byOrdinal)
}
