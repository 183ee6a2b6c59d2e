package lookup

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// DefaultMinChunk is the smallest number of query points handed to a worker.
const DefaultMinChunk = 256

// workers is the process-wide default for evaluation parallelism.
var workers atomic.Int32

func init() {
	SetWorkers(runtime.NumCPU())
}

// SetWorkers sets the default maximum number of goroutines used to evaluate
// query points. n <= 1 disables parallel evaluation.
func SetWorkers(n int) {
	const maxInt32 = int(^uint32(0) >> 1)

	if n < 1 {
		n = 1
	}

	if n > maxInt32 {
		n = maxInt32
	}

	workers.Store(int32(n))
}

func getWorkers() int {
	n := int(workers.Load())
	if n < 1 {
		return 1
	}

	return n
}

type options struct {
	workers  int
	minChunk int
}

func gatherOptions(opts []Option) options {
	o := options{
		workers:  getWorkers(),
		minChunk: DefaultMinChunk,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.workers < 1 {
		o.workers = 1
	}

	if o.minChunk < 1 {
		o.minChunk = 1
	}

	return o
}

// Option tunes how a call is executed. Options never change results.
type Option func(*options)

// WithWorkers caps the number of goroutines for one call.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithMinChunk sets the smallest number of points evaluated per goroutine.
func WithMinChunk(n int) Option {
	return func(o *options) { o.minChunk = n }
}

// parallelFor splits [0, n) into contiguous chunks of at least minChunk
// points. Chunks never overlap, so each worker owns its output range.
func parallelFor(n int, o options, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}

	if o.workers <= 1 || n <= o.minChunk {
		fn(0, n)
		return
	}

	chunk := max((n+o.workers-1)/o.workers, o.minChunk)

	var wg sync.WaitGroup

	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}

	wg.Wait()
}
