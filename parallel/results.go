package parallel

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrCanceled is the result of a job skipped because its batch was
	// canceled before the job started.
	ErrCanceled = errors.New("parallel: job canceled")

	// ErrTimedOut is returned by Wait when the timeout expires first.
	ErrTimedOut = errors.New("parallel: timed out")
)

// A Batch is a set of jobs submitted together. Results are kept in index
// order.
type Batch struct {
	fn      func(int) error
	n       int
	claimed int // guarded by the dispatcher

	mu        sync.Mutex
	remaining int
	errs      []error
	canceled  bool
	done      chan struct{}
}

func newBatch(n int, fn func(int) error) *Batch {
	b := &Batch{fn: fn, n: n, remaining: n, errs: make([]error, n), done: make(chan struct{})}
	if n == 0 {
		close(b.done)
	}
	return b
}

func (b *Batch) run(i int) {
	b.mu.Lock()
	canceled := b.canceled
	b.mu.Unlock()

	var err error
	if canceled {
		err = ErrCanceled
	} else {
		err = b.fn(i)
	}

	b.mu.Lock()
	b.errs[i] = err
	b.remaining--
	if b.remaining == 0 {
		close(b.done)
	}
	b.mu.Unlock()
}

// Len returns the number of jobs in the batch.
func (b *Batch) Len() int {
	return b.n
}

// Cancel makes jobs that have not started yet fail with ErrCanceled.
// Running jobs are not interrupted.
func (b *Batch) Cancel() {
	b.mu.Lock()
	b.canceled = true
	b.mu.Unlock()
}

// Done returns a channel that is closed when every job has finished.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait waits for every job to finish, or until timeout has passed if it is
// positive. It returns ErrTimedOut on timeout, leaving the batch running;
// otherwise the errors of the failed jobs, in index order.
func (b *Batch) Wait(timeout time.Duration) error {
	select {
	case <-b.done:
		return b.Err()
	default:
	}
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-b.done:
		case <-t.C:
			return ErrTimedOut
		}
	} else {
		<-b.done
	}
	return b.Err()
}

// Err returns the errors of the jobs that have finished, in index order.
// A single error is returned as is.
func (b *Batch) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result *multierror.Error
	var first error
	for _, err := range b.errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		result = multierror.Append(result, err)
	}
	if result != nil && len(result.Errors) == 1 {
		return first
	}
	return result.ErrorOrNil()
}

// Results returns the result of every job in index order. Jobs that have
// not finished report nil.
func (b *Batch) Results() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]error(nil), b.errs...)
}
