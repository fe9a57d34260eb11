// Package retry holds the backoff policy as a pure function so the
// dispatch worker and its tests share one source of truth for delays.
package retry

import "time"

// BaseDelay is the delay before the first retry doubles from.
const BaseDelay = 60 * time.Second

// Backoff returns the delay before retry number n, with n starting at 1
// for the first retry: BaseDelay * 2^n. There is no jitter and no upper
// cap; with the default attempt ceiling of 5 the largest delay stays
// bounded in practice.
func Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return BaseDelay << n
}

// Next decides what follows a failed delivery attempt. attempts is the
// count including the attempt that just failed. It returns the delay
// before the next attempt and false, or zero and true when attempts
// have been exhausted and the record must terminate as failed.
func Next(attempts, maxAttempts int) (time.Duration, bool) {
	if attempts >= maxAttempts {
		return 0, true
	}
	return Backoff(attempts), false
}
