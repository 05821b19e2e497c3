package models

import "time"

// RateLimitBucket is one fixed-window counter. Count is never negative and
// never decremented; it resets to zero exactly at the window boundary by
// replacing the row's window.
type RateLimitBucket struct {
	Key           string
	WindowStart   time.Time
	Count         int
	Limit         int
	WindowSeconds int
}
