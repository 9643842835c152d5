package scheduler

import (
	"testing"

	"listingscraper/internal/model"
)

func proxyTask(domain, url string, useProxy bool) model.ScrapeTask {
	return model.ScrapeTask{Domain: domain, URL: url, Configuration: model.Configuration{UseProxy: useProxy}}
}

func TestAssignProxiesRoundRobinsPerDomain(t *testing.T) {
	proxies := []model.Proxy{{Host: "p0"}, {Host: "p1"}, {Host: "p2"}}
	tasks := []model.ScrapeTask{
		proxyTask("a", "a1", true),
		proxyTask("a", "a2", true),
		proxyTask("a", "a3", true),
		proxyTask("b", "b1", true),
		proxyTask("b", "b2", true),
	}

	got := AssignProxies(tasks, proxies, 0)
	want := []string{"p0", "p1", "p2", "p0", "p1"}
	for i, w := range want {
		if got[i].Proxy == nil || got[i].Proxy.Host != w {
			t.Fatalf("task %d: expected proxy %q, got %+v", i, w, got[i].Proxy)
		}
	}
}

func TestAssignProxiesOffsetsByRunID(t *testing.T) {
	proxies := []model.Proxy{{Host: "p0"}, {Host: "p1"}}
	tasks := []model.ScrapeTask{proxyTask("a", "a1", true), proxyTask("a", "a2", true)}

	got := AssignProxies(tasks, proxies, 1)
	if got[0].Proxy.Host != "p1" || got[1].Proxy.Host != "p0" {
		t.Fatalf("expected run offset to shift proxy assignment, got %+v / %+v", got[0].Proxy, got[1].Proxy)
	}
}

func TestAssignProxiesSkipsTasksWithoutUseProxy(t *testing.T) {
	proxies := []model.Proxy{{Host: "p0"}}
	tasks := []model.ScrapeTask{proxyTask("a", "a1", false)}

	got := AssignProxies(tasks, proxies, 0)
	if got[0].Proxy != nil {
		t.Fatalf("expected no proxy assigned, got %+v", got[0].Proxy)
	}
}

func TestBatchSplitsIntoCeilBatches(t *testing.T) {
	tasks := make([]model.ScrapeTask, 5)
	for i := range tasks {
		tasks[i] = model.ScrapeTask{Domain: "d", URL: string(rune('a' + i))}
	}

	batches := Batch(tasks, 2, 4, nil)
	if len(batches) != 3 {
		t.Fatalf("expected ceil(5/2)=3 batches, got %d", len(batches))
	}

	total := 0
	for _, b := range batches {
		total += len(b.Tasks)
	}
	if total != len(tasks) {
		t.Fatalf("expected all %d tasks distributed, got %d", len(tasks), total)
	}
}

func TestBatchAssignsWindowedBatchID(t *testing.T) {
	// pool capacity 2, batch size 1 -> batchCount = ceil(6/1) = 6.
	// Window size = batchSize*poolCapacity = 2 tasks per p-iteration.
	// p=0: i=0 -> batch min(5,0%2+0)=0; i=1 -> batch min(5,1%2+0)=1
	// p=1: i=0 -> batch min(5,0%2+2)=2; i=1 -> batch min(5,1%2+2)=3
	// p=2: i=0 -> batch min(5,0%2+4)=4; i=1 -> batch min(5,1%2+4)=5
	tasks := make([]model.ScrapeTask, 6)
	for i := range tasks {
		tasks[i] = model.ScrapeTask{Domain: "d", URL: string(rune('a' + i))}
	}

	batches := Batch(tasks, 1, 2, nil)
	if len(batches) != 6 {
		t.Fatalf("expected 6 batches, got %d", len(batches))
	}
	for i, b := range batches {
		if len(b.Tasks) != 1 {
			t.Fatalf("batch %d: expected exactly 1 task, got %d", i, len(b.Tasks))
		}
		if b.Tasks[0].URL != string(rune('a'+i)) {
			t.Fatalf("batch %d: expected task %q, got %q", i, string(rune('a'+i)), b.Tasks[0].URL)
		}
	}
}

func TestBatchPinsProxyFromFirstProxiedTask(t *testing.T) {
	proxies := []model.Proxy{{Host: "p0"}, {Host: "p1"}}
	tasks := []model.ScrapeTask{
		proxyTask("a", "a1", false),
		proxyTask("a", "a2", false),
	}
	assigned := AssignProxies(tasks, proxies, 0)
	// Neither task uses a proxy, so batches should carry none.
	batches := Batch(assigned, 2, 1, proxies)
	if batches[0].Proxy != nil {
		t.Fatalf("expected no proxy pinned, got %+v", batches[0].Proxy)
	}

	withProxy := []model.ScrapeTask{
		proxyTask("a", "a1", true),
		proxyTask("a", "a2", true),
	}
	assigned = AssignProxies(withProxy, proxies, 0)
	batches = Batch(assigned, 2, 1, proxies)
	if batches[0].Proxy == nil || batches[0].Proxy.Host != "p0" {
		t.Fatalf("expected batch to pin proxy p0, got %+v", batches[0].Proxy)
	}
}
