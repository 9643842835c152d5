package scheduler

import (
	"testing"

	"listingscraper/internal/model"
)

func task(domain, id string) model.ScrapeTask {
	return model.ScrapeTask{Domain: domain, URL: id}
}

func TestInterleaveSpreadsThreeDomains(t *testing.T) {
	tasks := []model.ScrapeTask{
		task("a", "a1"), task("a", "a2"), task("a", "a3"),
		task("b", "b1"), task("b", "b2"),
		task("c", "c1"),
	}

	got := Interleave(tasks)
	want := []string{"a1", "b1", "c1", "a2", "b2", "a3"}

	if len(got) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].URL != w {
			t.Fatalf("position %d: got %q, want %q (full: %v)", i, got[i].URL, w, urlsOf(got))
		}
	}
}

func TestInterleavePreservesAllTasksAndCounts(t *testing.T) {
	tasks := []model.ScrapeTask{
		task("x", "x1"), task("x", "x2"), task("x", "x3"), task("x", "x4"),
		task("y", "y1"),
	}
	got := Interleave(tasks)
	if len(got) != len(tasks) {
		t.Fatalf("expected %d tasks, got %d", len(tasks), len(got))
	}
	counts := map[string]int{}
	for _, tk := range got {
		counts[tk.Domain]++
	}
	if counts["x"] != 4 || counts["y"] != 1 {
		t.Fatalf("expected counts x=4 y=1, got %v", counts)
	}
}

func TestInterleaveSingleDomainIsUnchanged(t *testing.T) {
	tasks := []model.ScrapeTask{task("only", "o1"), task("only", "o2")}
	got := Interleave(tasks)
	if len(got) != 2 || got[0].URL != "o1" || got[1].URL != "o2" {
		t.Fatalf("expected single-domain tasks unchanged, got %v", urlsOf(got))
	}
}

func urlsOf(tasks []model.ScrapeTask) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.URL
	}
	return out
}
