// Package pipeline schedules and executes distillation work items.
//
// The Scheduler owns the FIFO queue of PENDING items and a configurable
// concurrency budget. Whenever the set of pending or active items
// changes it runs a tick: an idempotent pass that starts executors for
// queued items until the budget is filled. Each executor drives exactly
// one item through EXTRACTING and DISTILLING to a terminal status,
// checking the item's cancellation token at stage boundaries and
// threading its context through every network call so a stop request
// aborts in-flight work.
//
// Stops are cooperative but observable immediately: requestStop signals
// the token, writes STOPPED out of band, and the executor's own final
// write never overwrites it.
package pipeline
