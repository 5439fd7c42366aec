// Package errors provides structured error handling for the fabric core.
//
// Errors that callers are expected to branch on are exposed as sentinels and
// matched with the standard library's errors.Is. Errors that are benign by
// nature (a late commit against a stopped surface, a lookup racing a surface
// teardown) are reported to the global ErrorHandler and then swallowed by the
// component that observed them.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Sentinel errors of the commit pipeline.
var (
	// ErrUnknownComponentType indicates a tree description named a component
	// type that has no registered descriptor.
	ErrUnknownComponentType = stderrors.New("unknown component type")

	// ErrUnknownSurface indicates an operation addressed a surface that is not
	// registered (never started, or already stopped).
	ErrUnknownSurface = stderrors.New("unknown surface")

	// ErrDuplicateSurface indicates a surface identifier was registered twice
	// without being stopped in between.
	ErrDuplicateSurface = stderrors.New("surface already registered")

	// ErrSurfaceAlreadyStopped indicates a commit arrived after its surface
	// was stopped.
	ErrSurfaceAlreadyStopped = stderrors.New("surface already stopped")

	// ErrStaleCommit indicates a commit was computed against a root that is no
	// longer the committed root.
	ErrStaleCommit = stderrors.New("stale commit")

	// ErrDuplicateTagInCommit indicates the same tag appeared more than once
	// in a single new tree.
	ErrDuplicateTagInCommit = stderrors.New("duplicate tag in commit")
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindComponent indicates a component descriptor or props failure.
	KindComponent
	// KindSurface indicates a surface lifecycle failure.
	KindSurface
	// KindCommit indicates a shadow tree commit failure.
	KindCommit
	// KindDiff indicates the differ rejected a tree.
	KindDiff
	// KindConfig indicates a configuration error.
	KindConfig
	// KindTemplate indicates a UI template parsing failure.
	KindTemplate
	// KindPlatform indicates a host view or native bridge failure.
	KindPlatform
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindComponent:
		return "component"
	case KindSurface:
		return "surface"
	case KindCommit:
		return "commit"
	case KindDiff:
		return "diff"
	case KindConfig:
		return "config"
	case KindTemplate:
		return "template"
	case KindPlatform:
		return "platform"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// FabricError represents a structured error in the fabric core.
type FabricError struct {
	// Op is the operation that failed (e.g., "uimanager.ShadowTree.Commit").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Surface is the surface identifier, if applicable. Zero means unset.
	Surface int32
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *FabricError) Error() string {
	if e.Surface != 0 {
		return fmt.Sprintf("%s [%s] surface=%d: %v", e.Op, e.Kind, e.Surface, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *FabricError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "uimanager.Scheduler.deliver").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// UnknownComponentTypeError carries the component name that could not be
// resolved. It matches ErrUnknownComponentType.
type UnknownComponentTypeError struct {
	ComponentName string
}

func (e *UnknownComponentTypeError) Error() string {
	return fmt.Sprintf("unknown component type %q", e.ComponentName)
}

func (e *UnknownComponentTypeError) Is(target error) bool {
	return target == ErrUnknownComponentType
}

// DuplicateTagError carries the tag that appeared twice in one tree. It
// matches ErrDuplicateTagInCommit.
type DuplicateTagError struct {
	Tag int64
}

func (e *DuplicateTagError) Error() string {
	return fmt.Sprintf("tag %d appears more than once in the new tree", e.Tag)
}

func (e *DuplicateTagError) Is(target error) bool {
	return target == ErrDuplicateTagInCommit
}

// Is reports whether any error in err's tree matches target.
// It forwards to the standard library so callers need a single import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return stderrors.New(text)
}

// ErrorHandler receives errors reported by the fabric core.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *FabricError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
