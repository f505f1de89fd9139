// Package duedate holds the date-only arithmetic shared by the scheduler and
// the reminder engine. Every overdue or urgency decision goes through
// DaysUntilDue.
package duedate

import (
	"time"

	"github.com/ukydev/fleet-maintenance/internal/models"
)

const day = 24 * time.Hour

// DateOnly truncates t to midnight of its calendar date, keeping t's location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddMonths advances the calendar date of t by n months.
// Day overflow rolls into the following month (Jan 31 + 1 month is Mar 3 in a
// non-leap year), the same normalisation time.AddDate applies.
func AddMonths(t time.Time, n int) time.Time {
	return DateOnly(t).AddDate(0, n, 0)
}

// DaysUntilDue returns the number of calendar days from now to due.
// Negative means overdue. Time of day is ignored on both sides.
func DaysUntilDue(due, now time.Time) int {
	return int(CalendarDate(due).Sub(CalendarDate(now)) / day)
}

// CalendarDate maps t's calendar date onto UTC midnight. Two instants on the
// same calendar date map to equal values whatever their offsets, and DST
// shifts cannot skew a day count.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Urgency is the read-time projection of a reminder's due state.
type Urgency struct {
	DaysUntilDue      int             `json:"days_until_due"`
	IsOverdue         bool            `json:"is_overdue"`
	EffectivePriority models.Priority `json:"effective_priority"`
}

// ClassifyUrgency derives the overdue flag and the display priority.
// An overdue reminder is always shown as critical; stored is never modified.
func ClassifyUrgency(daysUntilDue int, stored models.Priority) Urgency {
	u := Urgency{
		DaysUntilDue:      daysUntilDue,
		IsOverdue:         daysUntilDue < 0,
		EffectivePriority: stored,
	}
	if u.IsOverdue {
		u.EffectivePriority = models.PriorityCritical
	}
	return u
}
