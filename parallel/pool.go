// Package parallel runs batch jobs on a fixed number of workers.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Job is one unit of work. A non-nil error counts the job as failed.
type Job func() error

// Stats are the outcome counters of a pool.
type Stats struct {
	Succeeded uint64
	Failed    uint64
}

func (s Stats) Total() uint64 {
	return s.Succeeded + s.Failed
}

// Pool runs jobs on numWorkers goroutines. With a single worker jobs run
// synchronously on the caller.
type Pool struct {
	wg        sync.WaitGroup
	work      chan Job
	closeWork func()
	succeeded atomic.Uint64
	failed    atomic.Uint64
}

func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &Pool{
		closeWork: func() {},
	}

	if numWorkers > 1 {
		pool.work = make(chan Job, numWorkers)
		for range numWorkers {
			pool.wg.Go(func() {
				for job := range pool.work {
					pool.run(job)
				}
			})
		}
		pool.closeWork = sync.OnceFunc(func() { close(pool.work) })
	}

	return pool
}

func (p *Pool) run(job Job) {
	if err := job(); err != nil {
		p.failed.Add(1)
		return
	}
	p.succeeded.Add(1)
}

// Do queues job. It must not be called after Wait.
func (p *Pool) Do(job Job) {
	if p.work == nil {
		p.run(job)
		return
	}
	p.work <- job
}

// Wait stops accepting jobs, waits for the queued ones and returns the
// counters.
func (p *Pool) Wait() Stats {
	p.closeWork()
	p.wg.Wait()
	return Stats{
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
	}
}
