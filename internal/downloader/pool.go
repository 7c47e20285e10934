// internal/downloader/pool.go
package downloader

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// DownloadAll fetches jobs with Concurrency workers and returns one result
// per job, ordered by index. Jobs not started before ctx ends are reported
// with ctx's error.
func (d *Downloader) DownloadAll(ctx context.Context, jobs []Job) []Result {
	if len(jobs) == 0 {
		return []Result{}
	}
	logger := zerolog.Ctx(ctx)

	queue := make(chan Job)
	results := make(chan Result, len(jobs))

	var wg sync.WaitGroup
	for w := 1; w <= d.opts.Concurrency && w <= len(jobs); w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Debug().Int("worker_id", id).Msg("Worker started")
			for job := range queue {
				results <- d.Download(ctx, job)
			}
		}(w)
	}

	// Send jobs to workers
	for i, job := range jobs {
		select {
		case queue <- job:
			continue
		case <-ctx.Done():
		}
		for _, skipped := range jobs[i:] {
			results <- Result{Job: skipped, Err: ctx.Err()}
		}
		break
	}
	close(queue)

	wg.Wait()
	close(results)

	all := make([]Result, 0, len(jobs))
	for r := range results {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Job.Index < all[j].Job.Index })
	return all
}
