/*
Package leave implements the leave-accrual and approval workflow.

PURPOSE:
  This is the core of the system: employee profiles carrying a leave
  allowance, leave requests moving through a pending/approved/rejected
  state machine, and the invariants tying the two together. Everything
  I/O-shaped (HTTP, identity resolution, blob storage) lives outside and
  talks to this package through narrow interfaces.

KEY CONCEPTS IN THIS FILE (types.go):
  - Days: a count of leave days backed by decimal.Decimal
  - ProfileAccount: the employee record (allowance, start date, role)
  - LeaveRequest: a dated request with a terminal-once-decided status
  - Actor: the already-authenticated identity driving an operation

DESIGN PRINCIPLES:
  1. The allowance changes through exactly two paths: the first-time
     employment-start-date set, and an approved request's debit.
  2. Approved and Rejected are terminal. No status ever leaves them.
  3. Identity is consumed, never established: an Actor arrives resolved.

SEE ALSO:
  - service.go: the operations and their invariants
  - errors.go: the error kinds callers branch on
  - store.go: persistence contracts
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/crewdesk/leavedesk/datemath"
)

// =============================================================================
// DAYS - Leave-day quantity
// =============================================================================

// Days is a count of leave days. Counts are integral today, but the
// decimal representation means a future half-day policy won't introduce
// float drift into balances.
type Days struct {
	Value decimal.Decimal
}

func NewDays(n int) Days {
	return Days{Value: decimal.NewFromInt(int64(n))}
}

func ParseDays(s string) (Days, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Days{}, err
	}
	return Days{Value: d}, nil
}

func (d Days) Add(other Days) Days        { return Days{Value: d.Value.Add(other.Value)} }
func (d Days) Sub(other Days) Days        { return Days{Value: d.Value.Sub(other.Value)} }
func (d Days) IsNegative() bool           { return d.Value.IsNegative() }
func (d Days) IsZero() bool               { return d.Value.IsZero() }
func (d Days) IsPositive() bool           { return d.Value.IsPositive() }
func (d Days) GreaterThan(other Days) bool { return d.Value.GreaterThan(other.Value) }
func (d Days) LessThan(other Days) bool   { return d.Value.LessThan(other.Value) }
func (d Days) Equal(other Days) bool      { return d.Value.Equal(other.Value) }
func (d Days) Int() int                   { return int(d.Value.IntPart()) }
func (d Days) String() string             { return d.Value.String() }

// =============================================================================
// IDENTIFIERS & ROLES
// =============================================================================

type ProfileID string
type RequestID string

type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// Actor is an authenticated identity as resolved by the identity
// collaborator. This package never authenticates; it only consumes the
// resolved id and role.
type Actor struct {
	ID   ProfileID
	Role Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// =============================================================================
// PROFILE ACCOUNT - The employee record
// =============================================================================

// ProfileAccount is the employee record. ID, Name and Email are assigned
// by the identity collaborator and treated as immutable here.
type ProfileAccount struct {
	ID    ProfileID
	Name  string
	Email string
	Role  Role

	About     string
	Languages string
	ImageURL  string

	// EmploymentStartDate is unset (zero) until the employee records it.
	// Once set it never reverts to unset. The FIRST transition from unset
	// to set computes RemainingAllowance from tenure; later edits don't.
	EmploymentStartDate datemath.Date

	// RemainingAllowance changes only via the first start-date set and
	// approved-request debits.
	RemainingAllowance Days

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// LEAVE REQUEST - The request entity
// =============================================================================

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// IsTerminal reports whether a status admits no further transitions.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// LeaveRequest is a request for the inclusive date range
// RangeStart..RangeEnd. OwnerID is a foreign key to a ProfileAccount; the
// request does not own the profile.
type LeaveRequest struct {
	ID      RequestID
	OwnerID ProfileID

	RangeStart datemath.Date
	RangeEnd   datemath.Date
	Message    string

	Status    RequestStatus
	DecidedBy ProfileID  // admin who approved/rejected, empty while pending
	DecidedAt *time.Time // nil while pending

	CreatedAt time.Time
}

// DayCount returns the inclusive day span of the request. The range is
// validated at submission, so a stored request always has a valid span.
func (r *LeaveRequest) DayCount() int {
	n, err := datemath.DayDifference(r.RangeStart, r.RangeEnd)
	if err != nil {
		return 0
	}
	return n
}

// PendingRequest is a LeaveRequest joined with the requester's display
// name, the shape the admin review queue needs.
type PendingRequest struct {
	LeaveRequest
	OwnerName string
}
