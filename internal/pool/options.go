package pool

import (
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/input-output-hk/blobperf/s3types"
)

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for task lifecycle logs.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBackend selects how admitted tasks are run: a goroutine per task
// (semaphore) or a fixed ants worker pool (workers). Admission waits honour
// the Submit context on both. Default is the semaphore backend.
func WithBackend(backend s3types.PoolBackend) Option {
	return func(p *Pool) {
		if backend != "" {
			p.backend = backend
		}
	}
}

// WithRateLimit caps task starts to rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(p *Pool) {
		if rps <= 0 {
			p.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}
