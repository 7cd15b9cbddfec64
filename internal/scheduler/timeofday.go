// Package scheduler holds the pure schedule search engine: time parsing,
// conflict detection and the backtracking generator. Nothing in this package
// performs I/O or keeps state between calls.
package scheduler

import "fmt"

const minutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// InvalidTime is returned for any input that is not a well-formed HH:MM value.
const InvalidTime TimeOfDay = -1

// Valid reports whether t is a real time of day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

// String renders t as HH:MM, or "invalid".
func (t TimeOfDay) String() string {
	if !t.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// ParseTimeOfDay accepts exactly "HH:MM" with a zero-padded 24-hour clock.
func ParseTimeOfDay(raw string) TimeOfDay {
	if len(raw) != 5 || raw[2] != ':' {
		return InvalidTime
	}
	hours, ok := twoDigits(raw[0], raw[1])
	if !ok || hours > 23 {
		return InvalidTime
	}
	minutes, ok := twoDigits(raw[3], raw[4])
	if !ok || minutes > 59 {
		return InvalidTime
	}
	return TimeOfDay(hours*60 + minutes)
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// RangesOverlap reports whether [startA,endA) and [startB,endB) share any
// minute. Unparseable input never overlaps.
func RangesOverlap(startA, endA, startB, endB string) bool {
	return minutesOverlap(
		ParseTimeOfDay(startA), ParseTimeOfDay(endA),
		ParseTimeOfDay(startB), ParseTimeOfDay(endB),
	)
}

func minutesOverlap(startA, endA, startB, endB TimeOfDay) bool {
	if !startA.Valid() || !endA.Valid() || !startB.Valid() || !endB.Valid() {
		return false
	}
	return max(startA, startB) < min(endA, endB)
}
