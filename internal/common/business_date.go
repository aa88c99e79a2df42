package common

import (
	"fmt"
	"time"
)

// businessDateLayout is the wire and storage format for business dates.
const businessDateLayout = "2006-01-02"

// BusinessDate is the calendar date a report logically belongs to, distinct
// from the timestamp of when it was computed. It is always derived in the
// canonical timezone and carries no time or zone component, so it can cross
// process boundaries without being reinterpreted by a local clock.
type BusinessDate string

// BusinessDateOf derives the business date from an instant in the canonical
// timezone. Weekend instants roll back to the preceding Friday: markets are
// closed, so the latest reportable session is the last weekday.
func BusinessDateOf(now time.Time, loc *time.Location) BusinessDate {
	local := now.In(loc)
	for local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		local = local.AddDate(0, 0, -1)
	}
	return BusinessDate(local.Format(businessDateLayout))
}

// ParseBusinessDate parses a YYYY-MM-DD string into a BusinessDate.
func ParseBusinessDate(s string) (BusinessDate, error) {
	if _, err := time.Parse(businessDateLayout, s); err != nil {
		return "", fmt.Errorf("invalid business date %q: %w", s, err)
	}
	return BusinessDate(s), nil
}

// String returns the YYYY-MM-DD representation.
func (d BusinessDate) String() string {
	return string(d)
}

// IsZero reports whether the date is unset.
func (d BusinessDate) IsZero() bool {
	return d == ""
}

// Time returns midnight of the business date in the given location.
// Used to derive fetch windows relative to the date, never to recompute it.
func (d BusinessDate) Time(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(businessDateLayout, string(d), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid business date %q: %w", string(d), err)
	}
	return t, nil
}

// AddDays returns the business date shifted by the given number of calendar
// days. No weekend or holiday awareness; callers use it for fetch windows.
func (d BusinessDate) AddDays(days int) (BusinessDate, error) {
	t, err := d.Time(time.UTC)
	if err != nil {
		return "", err
	}
	return BusinessDate(t.AddDate(0, 0, days).Format(businessDateLayout)), nil
}
