// Package vimperr implements the stable error taxonomy shared by the GVI-GH
// and PGCS engines. Optimization never panics in the hot loop: failures are
// encoded as tagged return values carrying one of the Kind constants below,
// following the recovery rules of the error-handling design: not_positive_definite
// and backtrack failures are handled internally by the optimizers, every
// other kind propagates to the caller together with the last committed
// iterate.
package vimperr

import "fmt"

// Kind is a stable, printable identifier for a class of optimization failure.
type Kind string

const (
	// InvalidCovariance: caller supplied a non-PD matrix where one is required.
	InvalidCovariance Kind = "invalid_covariance"

	// NotPositiveDefinite: an iterate's precision (or an intermediate) lost
	// positive-definiteness during a step; the containing step is rejected.
	NotPositiveDefinite Kind = "not_positive_definite"

	// BoundaryInfeasible: the linear covariance-steering solve cannot match
	// the requested boundary marginals under the current dynamics.
	BoundaryInfeasible Kind = "boundary_infeasible"

	// CurseOfDimensionality: cubature refused because p^d exceeds the cap.
	CurseOfDimensionality Kind = "curse_of_dimensionality"

	// ConvergenceStalled: max_backtrack exceeded with no cost decrease; the
	// optimizer commits the last proposed iterate and returns this as a
	// warning-status result rather than failing outright.
	ConvergenceStalled Kind = "convergence_stalled"

	// IOError: SDF or result-directory access failed.
	IOError Kind = "io_error"
)

// Error is the concrete error type returned by every fallible operation in
// this module. It carries the stable Kind plus an optional snapshot of the
// last iterate that was actually committed before the failure, so callers
// can recover gracefully instead of losing all progress.
type Error struct {
	Kind    Kind
	Message string
	Iterate interface{} // last committed (mu, Lambda) or (K, d) snapshot, if any
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is(err, vimperr.Sentinel(vimperr.InvalidCovariance)) work by
// comparing Kind: any *Error target of the same Kind matches, whatever its
// message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithIterate attaches a last-committed-iterate payload and returns the
// receiver for chaining at the call site, e.g.:
//
//	return vimperr.New(vimperr.NotPositiveDefinite, "step %d", it).WithIterate(last)
func (e *Error) WithIterate(iterate interface{}) *Error {
	e.Iterate = iterate
	return e
}

// Sentinel returns the zero-message *Error for a kind, suitable as an
// errors.Is comparison target.
func Sentinel(kind Kind) *Error { return &Error{Kind: kind} }
