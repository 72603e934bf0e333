// Package parallel runs batches of indexed jobs on a fixed pool of worker
// goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultNumWorkers is the default number of worker goroutines.
const DefaultNumWorkers = 0 // 0 means use runtime.GOMAXPROCS(0)

// Dispatcher manages a pool of worker goroutines. Workers are started by
// the first Submit and run until Close.
type Dispatcher struct {
	numWorkers int

	mu      sync.Mutex
	work    sync.Cond
	queue   []*Batch
	running bool
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher with numWorkers workers.
func NewDispatcher(numWorkers int) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	d := &Dispatcher{numWorkers: numWorkers}
	d.work.L = &d.mu
	return d
}

// NumWorkers returns the number of worker goroutines.
func (d *Dispatcher) NumWorkers() int {
	return d.numWorkers
}

// Submit queues jobs 0..n-1 and returns immediately. Each job calls fn
// with its index.
func (d *Dispatcher) Submit(n int, fn func(i int) error) *Batch {
	b := newBatch(n, fn)
	if n == 0 {
		return b
	}

	d.mu.Lock()
	if !d.running {
		d.running = true
		d.stopped = false
		d.wg.Add(d.numWorkers)
		for i := 0; i < d.numWorkers; i++ {
			go d.worker()
		}
	}
	d.queue = append(d.queue, b)
	d.mu.Unlock()
	d.work.Broadcast()
	return b
}

// next claims the next job, waiting for one if the queue is empty. It
// returns nil when the dispatcher is stopped.
func (d *Dispatcher) next() (*Batch, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.queue) == 0 {
		if d.stopped {
			return nil, 0
		}
		d.work.Wait()
	}
	b := d.queue[0]
	i := b.claimed
	b.claimed++
	if b.claimed == b.n {
		d.queue[0] = nil
		d.queue = d.queue[1:]
	}
	return b, i
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		b, i := d.next()
		if b == nil {
			return
		}
		b.run(i)
	}
}

// Close waits for queued jobs to finish and shuts the workers down. The
// dispatcher restarts on the next Submit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()
	d.work.Broadcast()
	d.wg.Wait()

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}
