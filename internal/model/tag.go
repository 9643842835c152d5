package model

// TagAnnotations is the side-table entry for one tag, keyed elsewhere by
// ScraperIndex. It replaces the source's practice of stashing JSON blobs on
// DOM attributes (scraper-data/scraper-fallback/scraper-counts): see
// SPEC_FULL.md §9 "Dynamic annotation map on DOM nodes".
type TagAnnotations struct {
	// Data and Fallback map rule name to every raw matched value found at
	// exactly this tag (not its descendants).
	Data     map[string][]string
	Fallback map[string][]string

	// Counts and FallbackCounts are the per-rule count of annotations in
	// this tag's entire subtree (this tag plus every descendant).
	Counts         map[string]int
	FallbackCounts map[string]int
}

// NewTagAnnotations returns an entry with all maps initialized empty.
func NewTagAnnotations() *TagAnnotations {
	return &TagAnnotations{
		Data:           map[string][]string{},
		Fallback:       map[string][]string{},
		Counts:         map[string]int{},
		FallbackCounts: map[string]int{},
	}
}

// AddData records a primary-set match for rule at this tag and raises this
// tag's count; the ancestors' counts are raised by the caller.
func (a *TagAnnotations) AddData(rule, value string) {
	a.Data[rule] = append(a.Data[rule], value)
	a.Counts[rule]++
}

// AddFallback records a fallback-set match for rule at this tag and raises
// this tag's fallback count; the ancestors' counts are raised by the caller.
func (a *TagAnnotations) AddFallback(rule, value string) {
	a.Fallback[rule] = append(a.Fallback[rule], value)
	a.FallbackCounts[rule]++
}

// HasAnyCount reports whether this tag's subtree carries any annotation at
// all, primary or fallback — the prune test in Block Finder step 1.
func (a *TagAnnotations) HasAnyCount() bool {
	return len(a.Counts) > 0 || len(a.FallbackCounts) > 0
}

// AnnotationTable is the full side-table for one page, indexed by
// scraperIndex. Owned by the tagger, read by the block finder.
type AnnotationTable map[int]*TagAnnotations

// Get returns the entry for index, creating it if absent.
func (t AnnotationTable) Get(index int) *TagAnnotations {
	e, ok := t[index]
	if !ok {
		e = NewTagAnnotations()
		t[index] = e
	}
	return e
}

// MergeFallbackIntoPrimary promotes every fallback annotation to primary,
// used when a page yields too few primary blocks (spec.md §4.3 "Fallback").
func (t AnnotationTable) MergeFallbackIntoPrimary() {
	for _, entry := range t {
		for rule, values := range entry.Fallback {
			entry.Data[rule] = append(entry.Data[rule], values...)
		}
		for rule, count := range entry.FallbackCounts {
			entry.Counts[rule] += count
		}
		entry.Fallback = map[string][]string{}
		entry.FallbackCounts = map[string]int{}
	}
}
