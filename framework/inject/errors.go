package inject

import (
	"errors"
	"strings"
)

// ── Errors ───────────────────────────────────────────────────────────────────

// ErrDestroyed is returned when an operation that would create, resolve, or
// merge is attempted on a container or scope after Destroy.
var ErrDestroyed = errors.New("inject: container destroyed")

// UnknownTagError is returned by Get when no registration for the tag exists,
// neither locally nor anywhere up the scope chain.
type UnknownTagError struct {
	Tag AnyTag
}

func (e *UnknownTagError) Error() string {
	return "inject: no registration for tag " + e.Tag.String()
}

// CycleError is returned when a factory, directly or through intermediaries,
// requests a tag that is already being created on the same resolution path.
//
// Chain holds the loop in resolution order, starting and implicitly ending at
// the repeated tag: a chain of [A, B] means A needed B which needed A again.
type CycleError struct {
	Chain []AnyTag
}

func (e *CycleError) Error() string {
	labels := make([]string, 0, len(e.Chain)+1)
	for _, t := range e.Chain {
		labels = append(labels, t.Label())
	}
	if len(e.Chain) > 0 {
		labels = append(labels, e.Chain[0].Label())
	}
	return "inject: circular dependency: " + strings.Join(labels, " -> ")
}

// CreateError wraps a factory failure with the tag that was being created.
type CreateError struct {
	Tag AnyTag
	Err error
}

func (e *CreateError) Error() string {
	return "inject: creating " + e.Tag.String() + ": " + e.Err.Error()
}

func (e *CreateError) Unwrap() error { return e.Err }

// FinalizeError aggregates every failure observed during a Destroy. All
// finalizers are attempted before it is returned; none is skipped because an
// earlier one failed.
type FinalizeError struct {
	Errors []error
}

func (e *FinalizeError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return "inject: destroy: " + strings.Join(msgs, "; ")
}

func (e *FinalizeError) Unwrap() []error { return e.Errors }

// UnsatisfiedError is returned by Layer.Build when the layer still requires
// tags that nothing provides.
type UnsatisfiedError struct {
	Tags []AnyTag
}

func (e *UnsatisfiedError) Error() string {
	labels := make([]string, 0, len(e.Tags))
	for _, t := range e.Tags {
		labels = append(labels, t.Label())
	}
	return "inject: layer has unsatisfied requirements: " + strings.Join(labels, ", ")
}
