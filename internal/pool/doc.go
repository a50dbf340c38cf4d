// Package pool runs transfer tasks under an admission gate.
//
// A Pool admits at most Capacity tasks at a time. Submit blocks the caller
// until a permit is available, starts the task in its own goroutine and
// returns a Handle. Every started task releases its permit exactly once and
// bumps the completion counter exactly once, whether it succeeds, fails or
// panics. Drain is the batch barrier: it returns once every started task has
// finished, with one Outcome per task.
//
// Two admission backends are available: a weighted semaphore that grants
// permits to waiters in FIFO order, and a fixed-size ants worker pool.
package pool
