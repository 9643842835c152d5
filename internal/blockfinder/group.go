package blockfinder

import (
	"golang.org/x/net/html"

	"listingscraper/internal/model"
)

// selectLargestGroup clusters blocks by DOM distance (max_tag_distance
// apart) and keeps only the largest cluster, per get_largest_group. A block
// already claimed by an earlier cluster is still added to any later cluster
// within reach and takes that cluster's group id (it also stays in the
// earlier cluster's member list), matching the source's unconditional
// inner-loop reassignment.
func selectLargestGroup(idx *model.Index, blocks []model.Block, maxTagDistance int) []model.Block {
	if len(blocks) == 0 {
		return nil
	}

	groupIDs := make([]int, len(blocks))
	claimed := make([]bool, len(blocks))
	var groups [][]int

	for i := range blocks {
		if claimed[i] {
			continue
		}
		var group []int
		for j := range blocks {
			if distance(blocks[i].Tag, blocks[j].Tag) <= maxTagDistance {
				groupIDs[j] = len(groups)
				claimed[j] = true
				group = append(group, j)
			}
		}
		groups = append(groups, group)
	}

	var longest []int
	for _, g := range groups {
		if len(g) > len(longest) {
			longest = g
		}
	}
	if len(longest) == 0 {
		return nil
	}

	out := make([]model.Block, len(longest))
	for n, j := range longest {
		out[n] = blocks[j]
		out[n].GroupID = groupIDs[j]
	}

	parentTag := findParentBlock(out)
	if parentTag != nil {
		parentIndex, ok := idx.Of(parentTag)
		for n := range out {
			out[n].HasParent = ok
			out[n].ParentIndex = parentIndex
		}
	}

	return out
}

// findParentBlock is find_parent_block: the nearest ancestor of the first
// block whose descendants (by DOM containment) cover every block in the
// group, climbing up when they don't. Falls back to the first block's own
// tag when no such ancestor exists.
func findParentBlock(blocks []model.Block) *html.Node {
	if len(blocks) == 0 {
		return nil
	}
	candidate := blocks[0].Tag.Parent
	for candidate != nil {
		allDescend := true
		for _, b := range blocks {
			if !isAncestor(b.Tag, candidate) {
				allDescend = false
				break
			}
		}
		if allDescend {
			return candidate
		}
		candidate = candidate.Parent
	}
	return blocks[0].Tag
}

func isAncestor(tag, ancestor *html.Node) bool {
	for n := tag.Parent; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}
