package quiz

import "time"

// RemainingSeconds computes how many seconds are left in a room's running
// quiz. It returns 0 when the quiz has not started (nil start) or when the
// window has elapsed. Both teacher and student views derive their countdown
// from this single function so they can never disagree.
func RemainingSeconds(now time.Time, start *time.Time, durationMinutes int) int {
	if start == nil {
		return 0
	}
	elapsed := int(now.Sub(*start) / time.Second)
	remaining := durationMinutes*60 - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Extend shifts a quiz start time forward by the given minutes, which
// increases the remaining time by minutes*60 at the instant of extension.
// This is the only extension mechanism: it composes with elapsed-time math
// and needs no knowledge of prior duration edits.
func Extend(start time.Time, minutes int) time.Time {
	return start.Add(time.Duration(minutes) * time.Minute)
}
