/*
Package accrual maps employment tenure to an annual leave allowance.

PURPOSE:
  Encodes the company's seniority brackets as a step function over whole
  years of tenure. The policy is applied exactly once per employee: when an
  employment start date is recorded for the first time. Re-editing an
  already-set start date never retriggers it (see leave.Service.UpdateProfile,
  which owns that rule).

BRACKETS:
  tenure < 1 year   ->  0 days
  1 <= tenure < 3   ->  7 days
  3 <= tenure < 5   -> 14 days
  tenure >= 5       -> 30 days

SEE ALSO:
  - datemath: YearsMonthsDays computes the tenure input
  - leave: applies the policy on first start-date set
*/
package accrual

import (
	"github.com/crewdesk/leavedesk/datemath"
)

// Policy computes initial leave allowances from tenure. Now is the tenure
// reference clock; when nil, datemath.Today is used.
type Policy struct {
	Now func() datemath.Date
}

// InitialAllowance returns the annual leave allowance for a whole number
// of tenure years. Monotonic non-decreasing.
func InitialAllowance(yearsOfTenure int) int {
	switch {
	case yearsOfTenure < 1:
		return 0
	case yearsOfTenure < 3:
		return 7
	case yearsOfTenure < 5:
		return 14
	default:
		return 30
	}
}

// AllowanceFor computes the allowance for an employment start date, using
// the policy's reference clock. Only whole elapsed years count; months and
// days are discarded.
func (p *Policy) AllowanceFor(startedAt datemath.Date) int {
	now := datemath.Today
	if p != nil && p.Now != nil {
		now = p.Now
	}
	years, _, _ := datemath.YearsMonthsDays(startedAt, now())
	return InitialAllowance(years)
}
