package dates

import (
	"time"

	"github.com/donsalieri1930/school-bus-api/internal/smserr"
)

// Rules holds the temporal business limits. Values come from configuration;
// zero values are not meaningful, callers always pass a populated struct.
type Rules struct {
	FutureLimitDays int
	MaxRangeDays    int
	CutoffHour      int
	EnforceCutoff   bool
}

type Validator struct {
	rules Rules
	loc   *time.Location
	now   func() time.Time
}

func NewValidator(rules Rules, loc *time.Location, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{rules: rules, loc: loc, now: now}
}

// ValidateSingle rejects dates before today and dates further out than the
// configured future limit. Today itself and today+limit both pass.
func (v *Validator) ValidateSingle(m Match) error {
	today := v.today()
	if m.Date.Before(today) {
		return smserr.DateInPast(m.Text, today.Format("02.01.2006"))
	}
	if m.Date.After(today.AddDate(0, 0, v.rules.FutureLimitDays)) {
		return smserr.DateTooFarInFuture(m.Text, v.rules.FutureLimitDays)
	}
	return nil
}

// ValidateTime rejects a report about today received at or after the cutoff
// hour. Applies to a sole date or the start of a range only; the end of a
// range is exempt.
func (v *Validator) ValidateTime(m Match) error {
	if !v.rules.EnforceCutoff {
		return nil
	}
	now := v.now().In(v.loc)
	if sameDay(m.Date, now) && now.Hour() >= v.rules.CutoffHour {
		return smserr.SentTooLate(v.rules.CutoffHour)
	}
	return nil
}

// ValidateRange checks ordering and maximum length of a two-date range.
// Both endpoints must already have passed ValidateSingle.
func (v *Validator) ValidateRange(start, end Match) error {
	pair := start.Text + " : " + end.Text
	if end.Date.Before(start.Date) {
		return smserr.DateRangeOrder(pair)
	}
	if daysBetween(start.Date, end.Date) > v.rules.MaxRangeDays {
		return smserr.DateRangeTooLong(pair, v.rules.MaxRangeDays)
	}
	return nil
}

func (v *Validator) today() time.Time {
	now := v.now().In(v.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, v.loc)
}

// Expand lists every day from start to end inclusive, strictly increasing.
// Requires end >= start, guaranteed by ValidateRange.
func Expand(start, end time.Time) []time.Time {
	out := make([]time.Time, 0, daysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// daysBetween counts calendar days from a to b. Computed in UTC so DST
// transitions in the civil timezone cannot skew the count.
func daysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au) / (24 * time.Hour))
}
