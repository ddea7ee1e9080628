package usagelog

import (
	"context"
	"runtime"
	"sort"
	"sync"
)

// ScanResult is the admitted event set for a batch run plus per-file stats.
type ScanResult struct {
	Events     []Event
	Files      []FileStats
	Duplicates int64
}

// Scan reads all files on a worker pool, one task per file. The deduper is
// the only structure shared across workers. Events come back time-sorted so
// downstream grouping sees a deterministic order.
func Scan(ctx context.Context, files []string, dedup *Deduper) ScanResult {
	if dedup == nil {
		dedup = NewDeduper()
	}
	before := dedup.Duplicates()

	workers := runtime.GOMAXPROCS(0)
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	type fileResult struct {
		events []Event
		stats  FileStats
	}

	jobs := make(chan string)
	results := make(chan fileResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				events, stats := ReadFile(path, dedup)
				results <- fileResult{events: events, stats: stats}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range files {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(results)

	var out ScanResult
	for res := range results {
		out.Events = append(out.Events, res.events...)
		out.Files = append(out.Files, res.stats)
	}
	sort.Slice(out.Files, func(i, j int) bool { return out.Files[i].Path < out.Files[j].Path })
	SortByTime(out.Events)
	out.Duplicates = dedup.Duplicates() - before

	logf("scan_done", "files=%d events=%d duplicates=%d", len(out.Files), len(out.Events), out.Duplicates)
	return out
}
