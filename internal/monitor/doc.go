// Package monitor runs the poll loop: fetch every watched product, classify
// the readings against stored state, fan notifications out, and record the
// cycle. One cycle at a time; the scheduler skips ticks while a cycle runs.
package monitor
