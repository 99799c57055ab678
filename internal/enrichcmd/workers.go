package enrichcmd

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bszwed/linkmark/models"
)

// itemResult is the outcome of enriching one bookmark.
type itemResult struct {
	Bookmark    models.Bookmark
	Update      models.ProposedUpdate
	Outcome     models.FetchOutcome
	Err         error
	Skipped     bool
	SkipReason  string
	RateLimited bool
}

// processFunc handles one bookmark.
type processFunc func(ctx context.Context, bm models.Bookmark) itemResult

// runBatch processes bookmarks with a bounded worker pool. When any item
// reports rate limiting, scheduling stops: in-flight items finish, queued
// items are dropped, and the partial results are returned in input order.
func runBatch(ctx context.Context, process processFunc, links []models.Bookmark, workers int) []itemResult {
	if workers <= 1 {
		return runSequential(ctx, process, links)
	}

	type indexed struct {
		pos int
		bm  models.Bookmark
	}

	jobs := make(chan indexed)
	results := make(map[int]itemResult, len(links))
	var mu sync.Mutex
	var wg sync.WaitGroup
	stop := make(chan struct{})
	var stopOnce sync.Once

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res := process(ctx, job.bm)
				mu.Lock()
				results[job.pos] = res
				mu.Unlock()
				if res.RateLimited {
					stopOnce.Do(func() { close(stop) })
				}
			}
		}()
	}

feed:
	for i, bm := range links {
		select {
		case <-stop:
			break feed
		case <-ctx.Done():
			break feed
		case jobs <- indexed{pos: i, bm: bm}:
		}
	}
	close(jobs)
	wg.Wait()

	ordered := make([]itemResult, 0, len(results))
	for i := range links {
		if res, ok := results[i]; ok {
			ordered = append(ordered, res)
		}
	}
	return ordered
}

func runSequential(ctx context.Context, process processFunc, links []models.Bookmark) []itemResult {
	var out []itemResult
	for _, bm := range links {
		if ctx.Err() != nil {
			break
		}
		res := process(ctx, bm)
		out = append(out, res)
		if res.RateLimited {
			break
		}
	}
	return out
}

// batchSummary aggregates one run for the trailing report.
type batchSummary struct {
	processed   int
	updated     int
	skipped     int
	failed      int
	rateLimited bool
}

// report prints one line per item and a trailing summary.
func report(results []itemResult, dryRun bool) batchSummary {
	var s batchSummary
	for _, res := range results {
		printItem(res, dryRun)
		s.processed++
		switch {
		case res.Err != nil:
			s.failed++
		case res.Skipped:
			s.skipped++
		default:
			s.updated++
		}
		if res.RateLimited {
			s.rateLimited = true
		}
	}

	verb := "updated"
	if dryRun {
		verb = "would update"
	}
	fmt.Printf("\n%s %d, skipped %d, failed %d (of %d)\n", verb, s.updated, s.skipped, s.failed, s.processed)
	return s
}

func printItem(res itemResult, dryRun bool) {
	fmt.Println(formatItem(res, dryRun))
}

func formatItem(res itemResult, dryRun bool) string {
	prefix := fmt.Sprintf("[%d] %s", res.Bookmark.ID, res.Bookmark.URL)
	switch {
	case res.Err != nil:
		return fmt.Sprintf("%s -> failed: %v", prefix, res.Err)
	case res.Skipped:
		return fmt.Sprintf("%s -> skipped (%s)", prefix, res.SkipReason)
	default:
		verb := "updated"
		if dryRun {
			verb = "would update"
		}
		if res.RateLimited {
			// Enriched from metadata only; the transcript never arrived.
			verb += ", transcript rate-limited"
		}
		return fmt.Sprintf("%s -> %s (%s)", prefix, verb, describeChanges(res.Update))
	}
}

func describeChanges(u models.ProposedUpdate) string {
	var parts []string
	if u.NameChanged {
		parts = append(parts, "title")
	}
	if u.URLChanged {
		parts = append(parts, "url")
	}
	if u.DescriptionChanged {
		parts = append(parts, "description")
	}
	if len(u.AddTags) > 0 {
		parts = append(parts, fmt.Sprintf("+%d tags", len(u.AddTags)))
	}
	if u.CollectionID != 0 {
		parts = append(parts, "collection")
	}
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, ", ")
}
