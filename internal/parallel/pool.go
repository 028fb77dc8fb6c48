// Package parallel provides the worker pool used for submitting
// independent render passes concurrently.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a pool of goroutines for parallel pass submission.
//
// The pool distributes work items across multiple workers, each with
// their own queue. Workers steal from other queues when their own is
// empty, which balances load when some passes record far more work than
// others.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool

	// next selects the queue for the next Submit, round-robin.
	next atomic.Uint64
}

// NewWorkerPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used. Workers start
// immediately and wait for work.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

// Submit queues work for execution. Blocks if every queue is full.
// Submitting to a closed pool is a no-op.
func (p *WorkerPool) Submit(work func()) {
	if work == nil || !p.running.Load() {
		return
	}
	idx := int(p.next.Add(1)) % p.workers
	select {
	case p.workQueues[idx] <- work:
	case <-p.done:
	}
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int { return p.workers }

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool) IsRunning() bool { return p.running.Load() }

// Close stops the pool after draining queued work. It is safe to call
// Close more than once.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]
	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue)
			return

		case work := <-myQueue:
			if work != nil {
				work()
			}

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
			} else {
				select {
				case <-p.done:
					p.drainQueue(myQueue)
					return
				case work := <-myQueue:
					if work != nil {
						work()
					}
				}
			}
		}
	}
}

// steal attempts to take work from another worker's queue.
func (p *WorkerPool) steal(self int) func() {
	for i := 1; i < p.workers; i++ {
		victim := (self + i) % p.workers
		select {
		case work := <-p.workQueues[victim]:
			return work
		default:
		}
	}
	return nil
}

// drainQueue executes all remaining queued work.
func (p *WorkerPool) drainQueue(queue chan func()) {
	for {
		select {
		case work := <-queue:
			if work != nil {
				work()
			}
		default:
			return
		}
	}
}
