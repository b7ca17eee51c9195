/*
store.go - Persistence contracts for profiles and requests

PURPOSE:
  Defines what the leave workflow needs from the document store: point
  lookups by id, one filtered scan (pending requests), and per-document
  conditional updates. Implementations exist for SQLite (store/sqlite)
  and in-memory (leave/store).

CONDITIONAL UPDATES:
  The store offers no cross-document transaction between a request's
  status change and the owner's allowance debit; those are two writes.
  Instead, both writes are individually conditional:

  - TransitionRequest only succeeds while the request is still pending,
    making approval exactly-once even under concurrent admins.
  - UpdateAllowance is a compare-and-swap keyed on the previously read
    allowance, so two overlapping approvals can't both debit from the
    same stale value. The loser gets ErrConcurrentModification and the
    service re-reads and retries.

ERROR CONTRACT:
  Missing records surface as ErrNotFound (possibly wrapped). Database
  failures surface wrapped in ErrStoreUnavailable so callers can tell
  "invalid request" from "try again".

SEE ALSO:
  - store/sqlite/sqlite.go: production implementation
  - leave/store/memory.go: in-memory implementation for tests
*/
package leave

import (
	"context"
	"time"
)

// =============================================================================
// PROFILE STORE
// =============================================================================

// ProfileStore persists ProfileAccount records keyed by id.
type ProfileStore interface {
	// GetProfile returns the profile or ErrNotFound.
	GetProfile(ctx context.Context, id ProfileID) (*ProfileAccount, error)

	// SaveProfile upserts the full profile document.
	SaveProfile(ctx context.Context, p *ProfileAccount) error

	// UpdateAllowance sets the remaining allowance to next if and only if
	// it currently equals expect. Returns ErrConcurrentModification when
	// the guard fails, ErrNotFound for an unknown profile.
	UpdateAllowance(ctx context.Context, id ProfileID, expect, next Days) error
}

// =============================================================================
// REQUEST STORE
// =============================================================================

// RequestStore persists LeaveRequest records. Requests are created once,
// transitioned at most once, and never deleted.
type RequestStore interface {
	// CreateRequest persists a new pending request.
	CreateRequest(ctx context.Context, r *LeaveRequest) error

	// GetRequest returns the request or ErrNotFound.
	GetRequest(ctx context.Context, id RequestID) (*LeaveRequest, error)

	// TransitionRequest moves a pending request to a terminal status and
	// records who decided and when. Returns the updated request,
	// ErrNotFound for an unknown id, or InvalidTransitionError when the
	// request already left pending.
	TransitionRequest(ctx context.Context, id RequestID, to RequestStatus, decidedBy ProfileID, at time.Time) (*LeaveRequest, error)

	// ListPending returns all pending requests joined with the requester's
	// display name, in submission (insertion) order.
	ListPending(ctx context.Context) ([]PendingRequest, error)

	// ListByOwner returns all of one employee's requests, newest first.
	ListByOwner(ctx context.Context, owner ProfileID) ([]LeaveRequest, error)
}

// Store is the full persistence surface the service needs.
type Store interface {
	ProfileStore
	RequestStore
}
