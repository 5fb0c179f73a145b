package jira

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/jissue/internal/source"
)

// undatedRelease is the release date assumed for versions without one, so
// that they order after every dated version.
const undatedRelease = "2121-12-12"

// ReleaseTime returns the parsed release date of v, or the undated
// sentinel when v has none.
func ReleaseTime(v Version) time.Time {
	date := v.ReleaseDate
	if date == "" {
		date = undatedRelease
	}
	t, err := ParseDate(date)
	if err != nil {
		t, _ = ParseDate(undatedRelease)
	}
	return t
}

// SortByReleaseDate orders versions ascending by release date. Versions
// with equal dates keep their relative order.
func SortByReleaseDate(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return ReleaseTime(versions[i]).Before(ReleaseTime(versions[j]))
	})
}

// Unreleased returns the versions not yet released, in their original
// order.
func Unreleased(versions []Version) []Version {
	out := make([]Version, 0, len(versions))
	for _, v := range versions {
		if !v.Released {
			out = append(out, v)
		}
	}
	return out
}

// EarliestUnreleased returns the unreleased version with the earliest
// release date. The second result is false when every version is released.
func EarliestUnreleased(versions []Version) (Version, bool) {
	pending := Unreleased(versions)
	if len(pending) == 0 {
		return Version{}, false
	}
	SortByReleaseDate(pending)
	return pending[0], true
}

// NextUnreleased returns the earliest unreleased version other than the
// one named current.
func NextUnreleased(versions []Version, current string) (Version, bool) {
	others := make([]Version, 0, len(versions))
	for _, v := range versions {
		if v.Name != current {
			others = append(others, v)
		}
	}
	return EarliestUnreleased(others)
}

// FindVersion returns the single version named exactly name. Unlike
// transitions and fields, version names are compared case-sensitively.
func FindVersion(versions []Version, name string) (Version, error) {
	found := -1
	count := 0
	for i, v := range versions {
		if v.Name == name {
			found = i
			count++
		}
	}
	if count != 1 {
		return Version{}, &source.AmbiguousMatchError{Kind: "version", Name: name, Matches: count}
	}
	return versions[found], nil
}

// MatchVersions returns the versions whose names match pattern. The
// pattern is anchored at the start of the name.
func MatchVersions(versions []Version, pattern string) ([]Version, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return nil, fmt.Errorf("compiling version pattern %q: %w", pattern, err)
	}
	var out []Version
	for _, v := range versions {
		if re.MatchString(v.Name) {
			out = append(out, v)
		}
	}
	return out, nil
}

var deltaUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseDelta reads a shift such as "3d", "2w" or "90". The trailing
// unit is one of s, m, h, d, w and defaults to seconds. The sign is
// ignored, so a delta always moves a date later.
func ParseDelta(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("invalid delta string %q", s)
	}
	unit := time.Second
	digits := s
	if u, ok := deltaUnits[s[len(s)-1]]; ok {
		unit = u
		digits = s[:len(s)-1]
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("invalid delta string %q", s)
	}
	if n < 0 {
		n = -n
	}
	return time.Duration(n) * unit, nil
}
