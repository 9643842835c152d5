package blockfinder

import (
	"fmt"

	"golang.org/x/net/html"
)

// xpath returns n's path from the document root as a slice of segments,
// each "tagName" or "tagName[k]" when n has same-named siblings (1-indexed,
// matching get_xpath). Built root-to-leaf for easy prefix comparison in
// distance.
func xpath(n *html.Node) []string {
	var segments []string
	for n.Parent != nil {
		tagCount := 0
		tagNumber := 1
		for sib := n.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
			if sib.Type == html.ElementNode && sib.Data == n.Data {
				tagCount++
				if sib == n {
					tagNumber = tagCount
				}
			}
		}
		seg := n.Data
		if tagCount > 1 {
			seg = fmt.Sprintf("%s[%d]", n.Data, tagNumber)
		}
		segments = append([]string{seg}, segments...)
		n = n.Parent
	}
	return segments
}

// Distance exposes distance for other stages (the pagination handler also
// measures DOM distance, between candidate buttons and a block's parent).
func Distance(a, b *html.Node) int {
	return distance(a, b)
}

// distance is the DOM-distance formula from get_distance. It replicates a
// quirk of the source's Python range loop: when the two paths share their
// entire common prefix without diverging, the loop index lands on the last
// shared position rather than one past it. For two identical paths that
// gives 0+0+1 = 1, and that same-tag case is then set to 0 explicitly.
func distance(a, b *html.Node) int {
	pa := xpath(a)
	pb := xpath(b)

	minLen := len(pa)
	if len(pb) < minLen {
		minLen = len(pb)
	}

	i := 0
	for k := 0; k < minLen; k++ {
		i = k
		if pa[k] != pb[k] {
			break
		}
	}

	da := len(pa) - i - 1
	db := len(pb) - i - 1
	d := da + db + 1

	if d == 1 && minLen > 0 && pa[i] == pb[i] {
		d = 0
	}
	return d
}
