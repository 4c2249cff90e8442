package vfsmodel

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind enumerates the error kinds of §7. These are kinds, not Go
// error types with distinct behavior beyond identity — a single
// *KindError carries one.
type Kind int

const (
	InvalidURI Kind = iota
	NoSuchEntry
	AlreadyExists
	NotDirectory
	IsDirectory
	ReadOnly
	AccessDenied
	BadKey
	AuthenticationFailed
	FalsePositive
	PersistentFalsePositive
	BusyResource
	CurrentThreadBusy
	ThreadsBusy
	NeedsWriteLock
	NeedsLockRetry
	SyncWarning
	SyncFatal
	CorruptArchive
	IoFailure
)

func (k Kind) String() string {
	names := [...]string{
		"InvalidURI", "NoSuchEntry", "AlreadyExists", "NotDirectory",
		"IsDirectory", "ReadOnly", "AccessDenied", "BadKey",
		"AuthenticationFailed", "FalsePositive", "PersistentFalsePositive",
		"BusyResource", "CurrentThreadBusy", "ThreadsBusy", "NeedsWriteLock",
		"NeedsLockRetry", "SyncWarning", "SyncFatal", "CorruptArchive",
		"IoFailure",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return names[k]
}

// KindError is the kernel's uniform error value: a Kind tag plus an
// optional wrapped cause, compatible with errors.Is/errors.As and
// pkg/errors' Cause() chain.
type KindError struct {
	Kind    Kind
	Message string
	Cause_  error
}

// NewKindError builds a *KindError, matching the errors.Wrapf idiom
// used throughout backend/cache and backend/archive.
func NewKindError(kind Kind, format string, args ...interface{}) *KindError {
	return &KindError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a new *KindError of the given kind.
func Wrap(cause error, kind Kind, format string, args ...interface{}) *KindError {
	return &KindError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause_: cause}
}

func (e *KindError) Error() string {
	if e.Cause_ != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause_)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap lets errors.Is/errors.As traverse the chain.
func (e *KindError) Unwrap() error { return e.Cause_ }

// Cause implements pkg/errors' Causer, for callers that still use
// errors.Cause (matching backend/cache's own mixed errors.Wrapf /
// fmt.Errorf %w usage).
func (e *KindError) Cause() error { return e.Cause_ }

// Is reports whether target is a *KindError with the same Kind,
// enabling errors.Is(err, vfsmodel.NewKindError(vfsmodel.NoSuchEntry, "")).
func (e *KindError) Is(target error) bool {
	other, ok := target.(*KindError)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// Of reports whether err is (or wraps) a *KindError of the given
// kind.
func Of(err error, kind Kind) bool {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind == kind
	}
	return false
}

// Sentinel constructors for the kinds that are control-flow only and
// must never reach user code (§7 propagation policy): FalsePositive,
// NeedsWriteLock, NeedsLockRetry. Named constructors document that
// contract at the call site.

// ErrNeedsWriteLock signals that the current read lock must be
// released and the operation retried while holding the write lock.
func ErrNeedsWriteLock() *KindError {
	return NewKindError(NeedsWriteLock, "operation requires the write lock")
}

// ErrNeedsLockRetry signals a lock-ordering conflict: the caller must
// release all locks it holds and retry the whole operation from the
// top of the decorator stack.
func ErrNeedsLockRetry() *KindError {
	return NewKindError(NeedsLockRetry, "lock order conflict, retry required")
}

// ErrFalsePositive signals that an archive's magic bytes did not
// match; the outer controller must reroute the operation to the
// parent controller, treating the archive as a plain file.
func ErrFalsePositive(cause error) *KindError {
	return Wrap(cause, FalsePositive, "archive contents do not match the driver's format")
}

// ErrPersistentFalsePositive is ErrFalsePositive that
// controller.ParentFallback remembers until the next sync, so repeated
// accesses don't re-probe the bytes.
func ErrPersistentFalsePositive(cause error) *KindError {
	return Wrap(cause, PersistentFalsePositive, "archive contents do not match the driver's format (cached)")
}
