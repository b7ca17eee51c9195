/*
Package holiday answers "can this date be selected as a leave day?".

PURPOSE:
  Combines the two kinds of blocked dates: weekends (pure calendar math)
  and public holidays (fetched once per session from an external feed).
  Blocking is ADVISORY: the UI uses it to grey out dates in its picker,
  but request submission deliberately does not re-check it. See the
  design notes before tightening that.

FAIL-OPEN CONTRACT:
  The holiday feed is best-effort. If the fetch fails, the calendar is
  built with an empty holiday set: nothing is blocked beyond weekends,
  the failure is logged, and the caller proceeds normally. A broken feed
  must never take leave submission down with it.

USAGE:
  calendar := holiday.Load(ctx, feed, 2026, logger)
  calendar.IsBlocked(datemath.NewDate(2026, time.January, 1)) // true if fed

SEE ALSO:
  - feed.go: the HTTP feed client
  - datemath: weekend test
*/
package holiday

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/crewdesk/leavedesk/datemath"
)

// =============================================================================
// CALENDAR - Immutable per-session blocked-date set
// =============================================================================

// Calendar holds the non-working dates for a session. Immutable after
// construction; safe for concurrent readers.
type Calendar struct {
	holidays map[datemath.Date]struct{}
}

// NewCalendar builds a calendar from a fixed set of holiday dates.
// Time-of-day on the inputs is discarded.
func NewCalendar(dates []datemath.Date) *Calendar {
	set := make(map[datemath.Date]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return &Calendar{holidays: set}
}

// Empty returns a calendar with no holidays. Weekends are still blocked.
func Empty() *Calendar {
	return NewCalendar(nil)
}

// IsBlocked reports whether a date is ineligible for selection as a leave
// day: a weekend, or a public holiday. Dates compare by calendar day.
func (c *Calendar) IsBlocked(d datemath.Date) bool {
	if datemath.IsWeekend(d) {
		return true
	}
	return c.IsHoliday(d)
}

// IsHoliday reports whether the date is in the holiday set, ignoring
// weekends.
func (c *Calendar) IsHoliday(d datemath.Date) bool {
	_, ok := c.holidays[d]
	return ok
}

// Holidays returns the holiday dates in no particular order.
func (c *Calendar) Holidays() []datemath.Date {
	out := make([]datemath.Date, 0, len(c.holidays))
	for d := range c.holidays {
		out = append(out, d)
	}
	return out
}

// Len returns the number of holidays in the set.
func (c *Calendar) Len() int { return len(c.holidays) }

// =============================================================================
// LOAD - Build a calendar from a feed, fail-open
// =============================================================================

// Load fetches the holiday set for a year and builds a Calendar. A feed
// failure is logged and swallowed: the returned calendar is empty and the
// error is NOT surfaced to the caller.
func Load(ctx context.Context, feed Feed, year int, log logrus.FieldLogger) *Calendar {
	if log == nil {
		log = logrus.StandardLogger()
	}

	dates, err := feed.Fetch(ctx, year)
	if err != nil {
		log.WithError(err).WithField("year", year).
			Warn("holiday feed unavailable, continuing with empty calendar")
		return Empty()
	}

	log.WithFields(logrus.Fields{"year": year, "count": len(dates)}).
		Info("holiday calendar loaded")
	return NewCalendar(dates)
}
