/*
errors.go - Error kinds for the leave workflow

PURPOSE:
  All error kinds callers can branch on, in one place. Domain conditions
  are sentinel errors used with errors.Is; the structured variants carry
  context and Unwrap to their sentinel for errors.As use.

KIND TAXONOMY:
  Domain (caller's input or state is the problem, recoverable):
    ErrInvalidRange, ErrEmptyAllowance, ErrAllowanceExceeded,
    ErrInvalidTransition, ErrNotFound
  Infrastructure (try again later):
    ErrStoreUnavailable, ErrConcurrentModification

  The split matters to the UI layer: domain kinds translate to "fix your
  request", infrastructure kinds to "try again".

SEE ALSO:
  - service.go: where these are produced
  - api/handlers.go: HTTP status mapping
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/crewdesk/leavedesk/datemath"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned for a malformed date span (end before
	// start). Shared with datemath so both layers report the same kind.
	ErrInvalidRange = datemath.ErrInvalidRange

	// ErrEmptyAllowance is returned when submitting with no allowance left.
	ErrEmptyAllowance = errors.New("no leave allowance remaining")

	// ErrAllowanceExceeded is returned when a request spans more days than
	// the owner's remaining allowance at submission time.
	ErrAllowanceExceeded = errors.New("requested days exceed remaining allowance")

	// ErrInvalidTransition is returned when deciding a request that is no
	// longer pending. Approved and Rejected are terminal.
	ErrInvalidTransition = errors.New("request is not pending")

	// ErrNotFound is returned when a referenced profile or request does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable is returned when the persistence layer fails for
	// reasons unrelated to the request's validity.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConcurrentModification is returned by a conditional allowance
	// update that lost a race. The service retries; callers see it only
	// when retries are exhausted.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AllowanceExceededError reports how far a request overshot the allowance.
type AllowanceExceededError struct {
	OwnerID   ProfileID
	Available Days
	Requested Days
}

func (e *AllowanceExceededError) Error() string {
	return fmt.Sprintf("requested %v days but only %v remaining for %s",
		e.Requested, e.Available, e.OwnerID)
}

func (e *AllowanceExceededError) Unwrap() error { return ErrAllowanceExceeded }

// InvalidTransitionError reports the state that blocked a decision.
type InvalidTransitionError struct {
	RequestID RequestID
	Status    RequestStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("request %s is %s, not pending", e.RequestID, e.Status)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's problem rather
// than the system's.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrEmptyAllowance) ||
		errors.Is(err, ErrAllowanceExceeded) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable reports whether the operation might succeed if repeated.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrConcurrentModification)
}
