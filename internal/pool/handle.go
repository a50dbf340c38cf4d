package pool

import (
	"sync"

	"github.com/input-output-hk/blobperf/s3types"
)

// Handle tracks one started task.
type Handle struct {
	task    s3types.TransferTask
	done    chan struct{}
	once    sync.Once
	outcome s3types.Outcome
}

func newHandle(task s3types.TransferTask) *Handle {
	return &Handle{task: task, done: make(chan struct{})}
}

func (h *Handle) finish(o s3types.Outcome) {
	h.once.Do(func() {
		h.outcome = o
		close(h.done)
	})
}

// Task returns the task the handle tracks.
func (h *Handle) Task() s3types.TransferTask {
	return h.task
}

// Done is closed when the task has finished and its permit is released.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task has finished and returns its error.
func (h *Handle) Wait() error {
	<-h.done
	return h.outcome.Err
}

// Outcome returns the task outcome. It is only meaningful after Done is closed.
func (h *Handle) Outcome() s3types.Outcome {
	select {
	case <-h.done:
		return h.outcome
	default:
		return s3types.Outcome{Task: h.task}
	}
}
