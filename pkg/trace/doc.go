// Package trace records per-commit timing samples.
//
// A Buffer keeps the most recent samples in a fixed ring and counts commits
// slower than a threshold. Samples can additionally be forwarded to a Sink,
// such as a BoltSink that persists them per surface. Tracing is advisory:
// nothing in the commit pipeline depends on it.
package trace
