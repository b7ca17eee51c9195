/*
service.go - Leave request lifecycle and profile maintenance

PURPOSE:
  Orchestrates the whole workflow:
  1. Profile edits, including the one-time allowance computation when an
     employment start date is first recorded
  2. Request submission with allowance and range validation
  3. Admin decisions moving requests to a terminal status, debiting the
     owner's allowance on approval

REQUEST FLOW:
  submit ──▶ Pending ──approve──▶ Approved (terminal, debits allowance)
			   └──reject───▶ Rejected (terminal)

SUBMISSION CHECKS (in order):
  1. Owner has any allowance left        -> ErrEmptyAllowance
  2. Range is well-formed (end >= start) -> ErrInvalidRange
  3. Inclusive day-count fits allowance  -> AllowanceExceededError
  Holidays and weekends are NOT checked here. Blocked dates are a date
  picker affordance served to the UI (holiday package); the server accepts
  any valid range the client sends.

APPROVAL DEBIT:
  Status transition and allowance debit are two separate document writes;
  the store has no cross-document transaction. The transition is
  conditional on the request still being pending (exactly-once), and the
  debit is a compare-and-swap on the previously read allowance, retried
  on conflict. The debit amount is the same inclusive day-count used at
  submission, and is NOT re-validated against the current allowance: a
  balance can go negative when approvals for overlapping budgets race.

REFRESHED PROJECTION:
  Submit and Decide both return the refreshed pending queue so an admin
  view can re-render without a second round trip or a subscription.

SEE ALSO:
  - store.go: the conditional-update contracts this relies on
  - accrual: the tenure-to-allowance step function
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crewdesk/leavedesk/accrual"
	"github.com/crewdesk/leavedesk/datemath"
)

// debitRetries bounds the CAS retry loop on approval. Conflicts need
// another admin approving the same owner's requests in the same instant,
// so a small bound is plenty.
const debitRetries = 3

// =============================================================================
// SERVICE
// =============================================================================

// Service implements the leave workflow on top of a Store.
type Service struct {
	store   Store
	accrual *accrual.Policy
	log     logrus.FieldLogger

	// now stamps CreatedAt/DecidedAt; injectable for tests.
	now func() time.Time
	// newID mints request ids; injectable for tests.
	newID func() RequestID
}

// NewService wires a Service. policy may be nil, in which case the
// default accrual policy (system clock) is used.
func NewService(store Store, policy *accrual.Policy, log logrus.FieldLogger) *Service {
	if policy == nil {
		policy = &accrual.Policy{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store:   store,
		accrual: policy,
		log:     log,
		now:     time.Now,
		newID:   func() RequestID { return RequestID(uuid.NewString()) },
	}
}

// WithClock overrides the service's timestamp source. For tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Profile returns an employee's profile.
func (s *Service) Profile(ctx context.Context, id ProfileID) (*ProfileAccount, error) {
	return s.store.GetProfile(ctx, id)
}

// =============================================================================
// PROFILE UPDATE - Recompute-once-on-first-set
// =============================================================================

// ProfileUpdate carries the mutable profile fields. Nil means "leave
// unchanged". Identity fields (name, email, role) are not editable here.
type ProfileUpdate struct {
	About     *string
	Languages *string
	ImageURL  *string

	// EmploymentStartDate, when non-nil and non-zero, records or edits
	// the start date. A zero date is ignored: once set, the field never
	// reverts to unset.
	EmploymentStartDate *datemath.Date
}

// UpdateProfile applies an update to a profile. The allowance is
// recomputed from tenure ONLY on the transition from "no start date" to
// "start date set"; the decision is made against the prior stored value,
// not the incoming one, so re-editing an already-set date never touches
// the allowance.
func (s *Service) UpdateProfile(ctx context.Context, id ProfileID, upd ProfileUpdate) (*ProfileAccount, error) {
	prior, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *prior
	if upd.About != nil {
		next.About = *upd.About
	}
	if upd.Languages != nil {
		next.Languages = *upd.Languages
	}
	if upd.ImageURL != nil {
		next.ImageURL = *upd.ImageURL
	}

	if upd.EmploymentStartDate != nil && !upd.EmploymentStartDate.IsZero() {
		firstSet := prior.EmploymentStartDate.IsZero()
		next.EmploymentStartDate = *upd.EmploymentStartDate

		if firstSet {
			allowance := s.accrual.AllowanceFor(next.EmploymentStartDate)
			next.RemainingAllowance = NewDays(allowance)
			s.log.WithFields(logrus.Fields{
				"profile":   id,
				"startedAt": next.EmploymentStartDate,
				"allowance": allowance,
			}).Info("initial allowance computed")
		}
	}

	next.UpdatedAt = s.now()
	if err := s.store.SaveProfile(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit validates and persists a new pending leave request for the
// actor, returning the request together with the refreshed pending queue.
// On any validation failure nothing is written.
func (s *Service) Submit(ctx context.Context, actor Actor, rangeStart, rangeEnd datemath.Date, message string) (*LeaveRequest, []PendingRequest, error) {
	owner, err := s.store.GetProfile(ctx, actor.ID)
	if err != nil {
		return nil, nil, err
	}

	if !owner.RemainingAllowance.IsPositive() {
		return nil, nil, ErrEmptyAllowance
	}

	requested, err := datemath.DayDifference(rangeStart, rangeEnd)
	if err != nil {
		return nil, nil, err
	}

	if NewDays(requested).GreaterThan(owner.RemainingAllowance) {
		return nil, nil, &AllowanceExceededError{
			OwnerID:   owner.ID,
			Available: owner.RemainingAllowance,
			Requested: NewDays(requested),
		}
	}

	request := &LeaveRequest{
		ID:         s.newID(),
		OwnerID:    owner.ID,
		RangeStart: rangeStart,
		RangeEnd:   rangeEnd,
		Message:    message,
		Status:     StatusPending,
		CreatedAt:  s.now(),
	}

	if err := s.store.CreateRequest(ctx, request); err != nil {
		return nil, nil, err
	}

	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, nil, err
	}
	return request, pending, nil
}

// =============================================================================
// PENDING QUEUE
// =============================================================================

// ListPending returns the admin review queue in submission order, each
// entry joined with the requester's display name.
func (s *Service) ListPending(ctx context.Context) ([]PendingRequest, error) {
	return s.store.ListPending(ctx)
}

// ListByOwner returns one employee's request history, newest first.
func (s *Service) ListByOwner(ctx context.Context, owner ProfileID) ([]LeaveRequest, error) {
	return s.store.ListByOwner(ctx, owner)
}

// =============================================================================
// DECIDE
// =============================================================================

// Decide moves a pending request to Approved or Rejected and, on
// approval, debits the owner's allowance by the request's inclusive
// day-count. Returns the updated request and the refreshed pending queue.
func (s *Service) Decide(ctx context.Context, actor Actor, id RequestID, approve bool) (*LeaveRequest, []PendingRequest, error) {
	to := StatusRejected
	if approve {
		to = StatusApproved
	}

	updated, err := s.store.TransitionRequest(ctx, id, to, actor.ID, s.now())
	if err != nil {
		return nil, nil, err
	}

	if approve {
		if err := s.debitAllowance(ctx, updated); err != nil {
			return nil, nil, err
		}
	}

	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, nil, err
	}
	return updated, pending, nil
}

// debitAllowance subtracts the request's day-count from the owner's
// allowance using a compare-and-swap on the value just read. The result
// may be negative; approval does not re-validate against the balance.
func (s *Service) debitAllowance(ctx context.Context, r *LeaveRequest) error {
	debit := NewDays(r.DayCount())

	var lastErr error
	for attempt := 0; attempt < debitRetries; attempt++ {
		owner, err := s.store.GetProfile(ctx, r.OwnerID)
		if err != nil {
			return err
		}

		next := owner.RemainingAllowance.Sub(debit)
		err = s.store.UpdateAllowance(ctx, owner.ID, owner.RemainingAllowance, next)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConcurrentModification) {
			return err
		}

		lastErr = err
		s.log.WithFields(logrus.Fields{
			"profile": r.OwnerID,
			"request": r.ID,
			"attempt": attempt + 1,
		}).Warn("allowance debit lost a race, retrying")
	}
	return fmt.Errorf("allowance debit for request %s: %w", r.ID, lastErr)
}
