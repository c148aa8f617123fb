package jobs

import "sync"

// Runner executes fire-and-forget background jobs. Spawn returns
// immediately and keeps no handle: completion is observed only through the
// shared cells a job writes. There is no queue, no priority, and no
// cancellation; once spawned a job runs to completion on its own goroutine,
// concurrently with the UI and with any other jobs still in flight.
type Runner struct {
	wg sync.WaitGroup
}

// NewRunner creates a runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Spawn schedules job for concurrent execution and returns immediately.
func (r *Runner) Spawn(job func()) {
	if job == nil {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		job()
	}()
}

// Wait blocks until every job spawned so far has returned. Tests use it
// for determinism; jobs never wait on each other.
func (r *Runner) Wait() {
	r.wg.Wait()
}
