package scheduler

import "listingscraper/internal/model"

// AssignProxies gives every UseProxy task a round-robin proxy, offset by
// runID so the same task draws a different proxy on successive runs, and
// restarts the counter at the start of each domain's run of tasks. Mirrors
// get_locale_configurations' proxy_index reset per domain. Call this before
// Interleave, on tasks still grouped contiguously by domain.
func AssignProxies(tasks []model.ScrapeTask, proxies []model.Proxy, runID int64) []model.ScrapeTask {
	if len(proxies) == 0 {
		return tasks
	}
	out := make([]model.ScrapeTask, len(tasks))
	copy(out, tasks)

	var lastDomain string
	seenAny := false
	proxyIndex := 0
	for i := range out {
		if !seenAny || out[i].Domain != lastDomain {
			lastDomain = out[i].Domain
			proxyIndex = 0
			seenAny = true
		}
		if out[i].Configuration.UseProxy {
			idx := (int64(proxyIndex) + runID) % int64(len(proxies))
			if idx < 0 {
				idx += int64(len(proxies))
			}
			px := proxies[idx]
			out[i].Proxy = &px
			proxyIndex++
		}
	}
	return out
}

// Batch partitions tasks into batchCount = ceil(len(tasks)/batchSize)
// batches, assigning task i of the p-th window of batchSize*poolCapacity
// tasks to batch
// min(batchCount-1, i mod poolCapacity + p*poolCapacity). The first task in
// a batch that already carries a proxy (assigned by AssignProxies) pins
// that batch's shared proxy via round-robin over the proxy pool. Mirrors
// batch_scraper_configurations.
func Batch(tasks []model.ScrapeTask, batchSize, poolCapacity int, proxies []model.Proxy) []model.Batch {
	if len(tasks) == 0 {
		return nil
	}
	batchSize = maxInt(1, batchSize)
	poolCapacity = maxInt(1, poolCapacity)

	batchCount := len(tasks) / batchSize
	if len(tasks)%batchSize > 0 {
		batchCount++
	}

	batches := make([]model.Batch, batchCount)
	windowSize := batchSize * poolCapacity
	proxyID := 0

	for p := 0; p <= batchCount/poolCapacity; p++ {
		start := p * windowSize
		if start >= len(tasks) {
			break
		}
		end := minInt(start+windowSize, len(tasks))

		for i, tk := range tasks[start:end] {
			batchID := minInt(batchCount-1, i%poolCapacity+p*poolCapacity)
			batches[batchID].Tasks = append(batches[batchID].Tasks, tk)

			if tk.Proxy != nil && batches[batchID].Proxy == nil && len(proxies) > 0 {
				px := proxies[proxyID%len(proxies)]
				batches[batchID].Proxy = &px
				proxyID++
			}
		}
	}
	return batches
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
