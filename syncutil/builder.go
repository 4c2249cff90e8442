// Package syncutil implements the two-phase sync exception assembly
// of §4.7: warnings and fatal errors accumulate separately across a
// sync run, and the caller sees at most one composite error — a
// SyncWarning if nothing fatal happened, a SyncFatal otherwise.
//
// Grounded on the github.com/pkg/errors Wrap/Cause chaining used
// throughout backend/cache and backend/archive (errors.Wrapf mixed
// with fmt.Errorf("...: %w", err), both present in the teacher) for
// attaching context to an individual failure, combined with the
// standard library's errors.Join (Go 1.20+) to fold many individual
// failures into the single composite §4.7 requires without picking
// one cause arbitrarily over the rest.
package syncutil

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/truevfs/truevfs/vfsmodel"
)

// Builder accumulates sync errors per §4.7's fail/warn/check contract.
type Builder struct {
	warnings []error
	fatal    []error
}

// Warn records cause as non-destructive (e.g. a close-error on a
// forced stream, a timestamp persistence failure) and continues.
func (b *Builder) Warn(cause error) {
	if cause != nil {
		b.warnings = append(b.warnings, cause)
	}
}

// Warnf is Warn with pkg/errors-style formatted context attached.
func (b *Builder) Warnf(cause error, format string, args ...interface{}) {
	if cause != nil {
		b.warnings = append(b.warnings, pkgerrors.Wrapf(cause, format, args...))
	}
}

// Fail records cause as destructive (data may have been lost) and
// returns the current composite so callers that must abort
// immediately can propagate it.
func (b *Builder) Fail(cause error) error {
	if cause != nil {
		b.fatal = append(b.fatal, cause)
	}
	return b.Composite()
}

// Failf is Fail with pkg/errors-style formatted context attached.
func (b *Builder) Failf(cause error, format string, args ...interface{}) error {
	if cause != nil {
		b.fatal = append(b.fatal, pkgerrors.Wrapf(cause, format, args...))
	}
	return b.Composite()
}

// HasFatal reports whether any fatal error has been recorded.
func (b *Builder) HasFatal() bool { return len(b.fatal) > 0 }

// Check returns the composite error if anything was recorded, nil
// otherwise — the "fail/warn/check() throws iff non-empty" contract
// of §4.7.
func (b *Builder) Check() error { return b.Composite() }

// Composite assembles the accumulated errors into at most one
// *vfsmodel.KindError: SyncFatal if any fatal error was recorded
// (fatal errors take precedence, per §7's propagation policy, with
// warnings folded into the same chain so nothing is silently
// dropped), SyncWarning if only warnings were recorded, nil if
// neither.
func (b *Builder) Composite() error {
	switch {
	case len(b.fatal) > 0:
		all := append(append([]error{}, b.fatal...), b.warnings...)
		return vfsmodel.Wrap(errors.Join(all...), vfsmodel.SyncFatal,
			"sync failed with %d fatal and %d warning error(s)", len(b.fatal), len(b.warnings))
	case len(b.warnings) > 0:
		return vfsmodel.Wrap(errors.Join(b.warnings...), vfsmodel.SyncWarning,
			"sync completed with %d warning error(s)", len(b.warnings))
	default:
		return nil
	}
}
