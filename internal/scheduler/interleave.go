// Package scheduler implements the Scheduler (C7): work assembly
// (interleaving, batching), a bounded worker pool, stacked timeouts, and a
// retry backlog. Grounded on original_source/scraper/main/python/Scheduler.py.
package scheduler

import (
	"sort"

	"listingscraper/internal/model"
)

// Interleave groups tasks by domain and spreads each domain's tasks as
// evenly as possible through the whole list, so one site is never hit many
// times in a row. Mirrors reorder_locale_configurations: the largest group
// becomes the spine, the rest are recursively interleaved among themselves
// and then woven into the spine's gaps.
func Interleave(tasks []model.ScrapeTask) []model.ScrapeTask {
	return interleaveGroups(groupByDomain(tasks))
}

type domainGroup struct {
	domain string
	tasks  []model.ScrapeTask
}

// groupByDomain preserves first-occurrence domain order, matching the
// source's dict-insertion-order iteration.
func groupByDomain(tasks []model.ScrapeTask) []domainGroup {
	var order []string
	byDomain := map[string][]model.ScrapeTask{}
	for _, t := range tasks {
		if _, seen := byDomain[t.Domain]; !seen {
			order = append(order, t.Domain)
		}
		byDomain[t.Domain] = append(byDomain[t.Domain], t)
	}
	groups := make([]domainGroup, 0, len(order))
	for _, d := range order {
		groups = append(groups, domainGroup{domain: d, tasks: byDomain[d]})
	}
	return groups
}

func interleaveGroups(groups []domainGroup) []model.ScrapeTask {
	if len(groups) == 0 {
		return nil
	}

	sorted := sortByCountDesc(groups)
	spine := append([]model.ScrapeTask{}, sorted[0].tasks...)
	rest := sorted[1:]
	if len(rest) == 0 {
		return spine
	}

	other := interleaveGroups(rest)

	r := len(spine)
	n := len(other)
	denom := maxInt(1, r-1)
	floorSplit := maxInt(1, n/denom)
	remainder := n - floorSplit*(r-1)
	splitValue := floorSplit
	if remainder > 0 {
		splitValue++
	}

	reordered := append([]model.ScrapeTask{}, spine...)
	splitCount, nextIndex, recordsAdded := 1, 1, 0

	for _, item := range other {
		if recordsAdded >= splitValue {
			if remainder > 0 && splitCount == remainder {
				splitValue--
			}
			nextIndex++
			splitCount++
			recordsAdded = 0
		}
		reordered = insertAt(reordered, nextIndex, item)
		recordsAdded++
		nextIndex++
	}

	return reordered
}

// sortByCountDesc sorts a copy of groups by descending task count, stable
// on ties so the first-inserted domain of equal size wins the spine.
func sortByCountDesc(groups []domainGroup) []domainGroup {
	sorted := append([]domainGroup{}, groups...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].tasks) > len(sorted[j].tasks)
	})
	return sorted
}

func insertAt(s []model.ScrapeTask, i int, v model.ScrapeTask) []model.ScrapeTask {
	if i >= len(s) {
		return append(s, v)
	}
	s = append(s, model.ScrapeTask{})
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
