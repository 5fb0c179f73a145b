package jira

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// digitGroups matches runs of decimal digits.
var digitGroups = regexp.MustCompile(`\d+`)

// ParseTimestamp reads a Jira timestamp such as
// "2021-03-04T05:06:07.000+0200" by taking the first six digit groups as
// year, month, day, hour, minute and second. Fractional seconds and the
// zone offset are dropped, and the result is placed in time.Local.
func ParseTimestamp(s string) (time.Time, error) {
	groups := digitGroups.FindAllString(s, 6)
	if len(groups) < 3 {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: too few numeric fields", s)
	}

	var parts [6]int
	for i, g := range groups {
		n, err := strconv.Atoi(g)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
		}
		parts[i] = n
	}
	if parts[1] < 1 || parts[1] > 12 || parts[2] < 1 || parts[2] > 31 {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: date out of range", s)
	}

	return time.Date(
		parts[0], time.Month(parts[1]), parts[2],
		parts[3], parts[4], parts[5], 0, time.Local,
	), nil
}

// ParseDate reads a YYYY-MM-DD release date as midnight local time.
func ParseDate(s string) (time.Time, error) {
	return ParseTimestamp(s + "T00:00:00.000+0000")
}

// FormatDate is the inverse of ParseDate.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// ShiftDate moves a YYYY-MM-DD date later by d. The arithmetic runs on
// UTC midnight so a daylight saving change cannot eat or add a day.
func ShiftDate(date string, d time.Duration) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	utc := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return FormatDate(utc.Add(d)), nil
}

// parseTimestampOrZero is ParseTimestamp for callers that must not fail.
func parseTimestampOrZero(s string) time.Time {
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
