// Package workflow runs submitted render jobs through narration, captioning,
// footage lookup, composition and rendering.
//
// The Manager is an explicitly constructed component: it owns a queue.Store,
// a set of provider collaborators and a progress.Broadcaster, all injected by
// the caller. A single worker goroutine drains the queue FIFO, one job at a
// time, and processes each job's scenes strictly in order. Every stage
// reports monotonic progress that is persisted to the queue row and fanned
// out to live subscribers.
//
// Queue rows exist only while a job is queued or processing. Once a job
// finishes, the artifact directory decides its status: a rendered file means
// ready, anything else means failed. Jobs left processing by an earlier run
// are failed on Start because they cannot be requeued.
package workflow
