package flume

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrNoStartNode is returned when a graph has no start node defined.
	ErrNoStartNode = errors.New("flume: no start node defined")

	// ErrNodeNotFound is returned when a graph edge references a node that
	// was never added.
	ErrNodeNotFound = errors.New("flume: node not found")

	// ErrTooManySteps is returned when a graph traversal exceeds its
	// configured step budget.
	ErrTooManySteps = errors.New("flume: graph step budget exceeded")
)

// Phase identifies the lifecycle step a node error originated from.
type Phase string

// Lifecycle phases.
const (
	PhasePrep Phase = "prep"
	PhaseExec Phase = "exec"
	PhasePost Phase = "post"
)

// ExecutionError wraps an error raised by a node's Prep, Exec, or Post body.
// It carries the node's identity so failures deep inside a composition stay
// attributable.
type ExecutionError struct {
	Node  string
	ID    string
	Phase Phase
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("flume: node %q %s failed: %v", e.Node, e.Phase, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// RetryExhaustedError is returned when every configured attempt failed and
// each failure was eligible for retry. It wraps the last attempt's error.
type RetryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("flume: retry exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// BatchError is returned when the batch machinery itself fails, outside the
// per-item isolation boundary. Item-level failures are never surfaced as
// errors; they become failure-marker results instead.
type BatchError struct {
	Batch string
	Stage string
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("flume: batch %q %s failed: %v", e.Batch, e.Stage, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
