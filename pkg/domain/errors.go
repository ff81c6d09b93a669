package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the registry or store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionBusy is returned when a message arrives for a session that already has a run in flight.
var ErrSessionBusy = errors.New("session is already processing")

// ErrPoolClosed is returned when work is submitted to a worker pool that has been shut down.
var ErrPoolClosed = errors.New("worker pool closed")

// ErrPoolSaturated is returned when the worker pool queue is full.
var ErrPoolSaturated = errors.New("worker pool saturated")

// ErrPanicked wraps a panic recovered from node code or a run.
var ErrPanicked = errors.New("panic recovered")

// ErrEmptyMessage is returned when a user message is blank after sanitization.
var ErrEmptyMessage = errors.New("message is empty")

// GraphConfigurationError reports a malformed graph. It is raised while the
// graph is being built and is never recovered from.
type GraphConfigurationError struct {
	Node   string
	Reason string
}

func (e *GraphConfigurationError) Error() string {
	if e.Node == "" {
		return "graph configuration: " + e.Reason
	}
	return fmt.Sprintf("graph configuration: node %q: %s", e.Node, e.Reason)
}

// NodeExecutionError wraps any failure that escaped a node and aborted the run.
type NodeExecutionError struct {
	Node     string
	Attempts int
	Err      error
}

func (e *NodeExecutionError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("node %q failed after %d attempts: %v", e.Node, e.Attempts, e.Err)
	}
	return fmt.Sprintf("node %q failed: %v", e.Node, e.Err)
}

func (e *NodeExecutionError) Unwrap() error { return e.Err }

// ParseError reports that a structured block could not be extracted from model output.
type ParseError struct {
	Format string
	Input  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// CollaboratorUnavailable reports that an external service (completion, search) failed.
type CollaboratorUnavailable struct {
	Service string
	Err     error
}

func (e *CollaboratorUnavailable) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *CollaboratorUnavailable) Unwrap() error { return e.Err }

// ProviderError is returned by completion adapters on quota, transport or protocol failures.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
