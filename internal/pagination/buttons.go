package pagination

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"listingscraper/internal/blockfinder"
)

// textContent concatenates every text node under n, matching the source's
// use of tag.text for matching a button's visible label.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// findLabelMatches returns every element under root whose text equals page
// either as digits or, since the page may have been machine-translated,
// spelled out as a word (find_potential_buttons).
func findLabelMatches(root *html.Node, page int) []*html.Node {
	want := strconv.Itoa(page)
	var matches []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			label := strings.TrimSpace(textContent(n))
			if label == want || looksLikeNumberWords(label, page) {
				matches = append(matches, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return matches
}

// findParentButton climbs from n toward the root looking for an ancestor
// whose tag name is one of paginationTags (an <a> or <button> wrapping a
// plain text label, say), giving up after 5 steps and returning n itself,
// mirroring find_parent_button's bounded climb.
func findParentButton(n *html.Node, paginationTags []string) *html.Node {
	cur := n
	for i := 0; i < 5 && cur != nil; i++ {
		if cur.Type == html.ElementNode && containsFold(paginationTags, cur.Data) {
			return cur
		}
		cur = cur.Parent
	}
	return n
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// hasPaginatorClass checks n and up to levels ancestors for a class in
// classes, matching check_for_paginator_class's search up the selector
// chain rather than requiring the exact button element to carry the class.
func hasPaginatorClass(n *html.Node, classes []string, levels int) bool {
	cur := n
	for i := 0; cur != nil && i <= levels; i++ {
		for _, want := range classList(cur) {
			if containsFold(classes, want) {
				return true
			}
		}
		cur = cur.Parent
	}
	return false
}

// findClosest returns whichever of candidates sits nearest to target in DOM
// distance, falling back to the first candidate when target is nil.
func findClosest(candidates []*html.Node, target *html.Node) *html.Node {
	if len(candidates) == 0 {
		return nil
	}
	if target == nil {
		return candidates[0]
	}
	best := candidates[0]
	bestDist := blockfinder.Distance(best, target)
	for _, c := range candidates[1:] {
		d := blockfinder.Distance(c, target)
		if d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

func dedupeNodes(nodes []*html.Node) []*html.Node {
	seen := make(map[*html.Node]bool, len(nodes))
	out := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
