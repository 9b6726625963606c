package ratelimit

import "time"

// Pure sliding-window arithmetic over attempt histories. Everything in this
// file operates on timestamps only; no clocks, no storage.

// pruneBefore returns the attempts at or after cutoff, preserving order.
func pruneBefore(attempts []Attempt, cutoff time.Time) []Attempt {
	kept := make([]Attempt, 0, len(attempts))
	for _, a := range attempts {
		if !a.Timestamp.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	return kept
}

// countSince returns how many attempts fall at or after cutoff.
func countSince(attempts []Attempt, cutoff time.Time) int {
	n := 0
	for _, a := range attempts {
		if !a.Timestamp.Before(cutoff) {
			n++
		}
	}
	return n
}

// oldest returns the earliest attempt and false when the history is empty.
func oldest(attempts []Attempt) (Attempt, bool) {
	if len(attempts) == 0 {
		return Attempt{}, false
	}
	min := attempts[0]
	for _, a := range attempts[1:] {
		if a.Timestamp.Before(min.Timestamp) {
			min = a
		}
	}
	return min, true
}

// newest returns the latest attempt and false when the history is empty.
func newest(attempts []Attempt) (Attempt, bool) {
	if len(attempts) == 0 {
		return Attempt{}, false
	}
	max := attempts[0]
	for _, a := range attempts[1:] {
		if a.Timestamp.After(max.Timestamp) {
			max = a
		}
	}
	return max, true
}

// hasMatch reports whether any attempt claims the given match.
func hasMatch(attempts []Attempt, matchID string) bool {
	for _, a := range attempts {
		if a.MatchID == matchID {
			return true
		}
	}
	return false
}

// minutesUntil returns the whole minutes from now until t, rounded up.
// Never negative.
func minutesUntil(now, t time.Time) int {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	mins := int(d / time.Minute)
	if d%time.Minute != 0 {
		mins++
	}
	return mins
}
