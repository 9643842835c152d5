// Package blockfinder implements the Block Finder stage (C3): grouping the
// tagged tag tree into per-record blocks and parsing each block's rule
// values. Grounded on
// original_source/.../element_finder/BlockFinder.py (find_blocks/find_new_blocks).
package blockfinder

import (
	"golang.org/x/net/html"

	"listingscraper/internal/model"
)

// Options bounds one Find call.
type Options struct {
	MaxTagDistance int
	// Fallback runs the fallback pass (spec.md §4.3 "Fallback"): fallback
	// annotations are merged into primary before grouping.
	Fallback bool
	// PrioritizeFirst moves every element sibling of the first candidate
	// block that is not itself a candidate under that block, and makes Find
	// return every parsed block in document order, with no duplicate merging
	// or group selection (spec.md "First-page special case").
	PrioritizeFirst bool
	// RecordAlias carries the detail task's record alias. Find and FindNew
	// do not read it; block selection and parsed aliases ignore it.
	RecordAlias string
}

// Find is the C3 entry point for a single page: soup-to-blocks, move-up,
// optional prioritize-first folding, cull, parse. PrioritizeFirst mirrors
// find_blocks(prioritize_first=True): it stops right after parsing and
// returns blocks in document order, skipping duplicate coalescing and
// largest-group selection — both of which exist to pick one record cluster
// out of a whole catalog page and have no business running over a detail
// page's single target block plus whatever unrelated clusters (e.g. a
// "related vehicles" grid) also carry required attributes. Without this
// gate, selectLargestGroup would hand the detail scraper that unrelated
// cluster instead of parsed[0], the actual target.
func Find(idx *model.Index, root *html.Node, ann model.AnnotationTable, rules []model.AttributeRule, opts Options) []model.Block {
	if opts.Fallback {
		ann.MergeFallbackIntoPrimary()
	}

	required := namesWhere(rules, func(r model.AttributeRule) bool { return r.Required })
	antiAttributes := namesWhere(rules, func(r model.AttributeRule) bool { return r.IsAntiAttribute })

	candidateTags := soupToBlocks(idx, ann, root, required)
	movedTags := moveUpBlocks(idx, ann, candidateTags, required)

	if opts.PrioritizeFirst && len(movedTags) > 0 {
		movedTags = addAllNonBlockChildren(movedTags[0], movedTags)
	}

	culledTags := cullBlocks(idx, ann, movedTags, antiAttributes)
	parsed := parseBlocks(idx, ann, culledTags, rules)

	if opts.PrioritizeFirst {
		return parsed
	}

	unique := mergeDuplicateAliases(parsed)
	return selectLargestGroup(idx, unique, opts.MaxTagDistance)
}

// FindNew runs Find and then drops every block whose alias already appears
// in records, mirroring find_new_blocks's incremental-catalog use.
func FindNew(idx *model.Index, root *html.Node, ann model.AnnotationTable, rules []model.AttributeRule, opts Options, records map[string]model.Block) []model.Block {
	blocks := Find(idx, root, ann, rules, opts)
	var out []model.Block
	for _, b := range blocks {
		if _, seen := records[b.Alias]; !seen {
			out = append(out, b)
		}
	}
	return out
}

func namesWhere(rules []model.AttributeRule, pred func(model.AttributeRule) bool) []string {
	var names []string
	for _, r := range rules {
		if pred(r) {
			names = append(names, r.Name)
		}
	}
	return names
}

// hasRequiredAttributes mirrors has_required_attributes: true when every
// required rule has at least one count anywhere in tag's subtree, counting
// primary and fallback counts as one union set (a fallback-only match still
// qualifies a tag as block-worthy).
func hasRequiredAttributes(idx *model.Index, ann model.AnnotationTable, tag *html.Node, required []string) bool {
	if tag.Type != html.ElementNode {
		return false
	}
	i, ok := idx.Of(tag)
	if !ok {
		return false
	}
	entry, ok := ann[i]
	if !ok {
		return false
	}
	for _, name := range required {
		if entry.Counts[name] == 0 && entry.FallbackCounts[name] == 0 {
			return false
		}
	}
	return true
}

// hasAntiAttributes mirrors has_anti_attributes: true when tag's own
// primary (not fallback) counts include any anti-attribute.
func hasAntiAttributes(idx *model.Index, ann model.AnnotationTable, tag *html.Node, antiAttributes []string) bool {
	if tag.Type != html.ElementNode {
		return false
	}
	i, ok := idx.Of(tag)
	if !ok {
		return false
	}
	entry, ok := ann[i]
	if !ok {
		return false
	}
	for _, name := range antiAttributes {
		if entry.Counts[name] > 0 {
			return true
		}
	}
	return false
}

func soupToBlocks(idx *model.Index, ann model.AnnotationTable, root *html.Node, required []string) []*html.Node {
	queue := []*html.Node{root}
	var blocks []*html.Node

	for len(queue) > 0 {
		tag := queue[0]
		queue = queue[1:]

		isBlock := true
		for c := tag.FirstChild; c != nil; c = c.NextSibling {
			if hasRequiredAttributes(idx, ann, c, required) {
				queue = append(queue, c)
				isBlock = false
			}
		}
		if isBlock {
			blocks = append(blocks, tag)
		}
	}
	return blocks
}

func moveUpBlocks(idx *model.Index, ann model.AnnotationTable, blocks []*html.Node, required []string) []*html.Node {
	if len(blocks) == 1 {
		return blocks
	}
	moved := make([]*html.Node, len(blocks))
	for i, b := range blocks {
		moved[i] = moveUpBlock(idx, ann, b, required)
	}
	return moved
}

// moveUpBlock climbs towards the document root as long as it is its
// parent's only child node, or no required-complete sibling carries a different alias
// (a sibling with no alias, or the same alias, never stops the climb).
func moveUpBlock(idx *model.Index, ann model.AnnotationTable, block *html.Node, required []string) *html.Node {
	for block.Parent != nil {
		if block.Type == html.ElementNode && block.Data == "body" {
			return block
		}
		if countChildren(block.Parent) == 1 {
			block = block.Parent
			continue
		}

		stop := false
		for c := block.Parent.FirstChild; c != nil; c = c.NextSibling {
			if c == block {
				continue
			}
			if !hasRequiredAttributes(idx, ann, c, required) {
				continue
			}
			childAlias, childHasAlias := alias(idx, ann, c)
			blockAlias, blockHasAlias := alias(idx, ann, block)
			if childHasAlias && (!blockHasAlias || childAlias != blockAlias) {
				stop = true
				break
			}
		}
		if stop {
			return block
		}
		block = block.Parent
	}
	return block
}

func countChildren(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}

// alias is get_alias: the first value found for the "alias" rule anywhere
// in tag's subtree.
func alias(idx *model.Index, ann model.AnnotationTable, tag *html.Node) (string, bool) {
	values := findAttributeValues(idx, ann, tag, "alias")
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func cullBlocks(idx *model.Index, ann model.AnnotationTable, tags []*html.Node, antiAttributes []string) []*html.Node {
	if len(antiAttributes) == 0 {
		return tags
	}
	var out []*html.Node
	for _, t := range tags {
		if !hasAntiAttributes(idx, ann, t, antiAttributes) {
			out = append(out, t)
		}
	}
	return out
}

func mergeDuplicateAliases(blocks []model.Block) []model.Block {
	seen := map[string]bool{}
	var out []model.Block
	for _, b := range blocks {
		if seen[b.Alias] {
			continue
		}
		seen[b.Alias] = true
		out = append(out, b)
	}
	return out
}

// addAllNonBlockChildren folds every sibling of block's parent that isn't
// already one of the candidate blocks into block itself, by reparenting it
// as a DOM child — so a later findAttributeValues subtree search over block
// also sees that sibling's annotations. Mirrors add_all_non_block_children.
func addAllNonBlockChildren(block *html.Node, blocks []*html.Node) []*html.Node {
	parent := block.Parent
	if parent == nil {
		return blocks
	}

	isBlock := make(map[*html.Node]bool, len(blocks))
	for _, b := range blocks {
		isBlock[b] = true
	}

	var nonBlockSiblings []*html.Node
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && !isBlock[c] {
			nonBlockSiblings = append(nonBlockSiblings, c)
		}
	}

	for _, sibling := range nonBlockSiblings {
		sibling.Parent.RemoveChild(sibling)
		block.AppendChild(sibling)
	}

	return blocks
}
