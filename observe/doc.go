// Package observe provides observability primitives for orchestrated runs.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers wire the observer around the attempt
// package with observe.Run, or plug the structured logger into an
// attempt.Config via AttemptLogger.
package observe
