package subscription

import (
	"math"
	"time"
)

// Derived is the authoritative status computed from dates at read time.
type Derived struct {
	Status      Status
	DaysLeft    int
	ProgressPct int
}

// Derive classifies a subscription from (stored status, dates, now). It is a
// pure function: safe for any number of concurrent readers, never mutates the
// subscription.
//
// Cancelled is terminal and overrides the date math. A DaysLeft of exactly 0
// is still inside the active/expiring-soon window (end-of-day semantics);
// only a negative remainder means expired.
func Derive(sub Subscription, now time.Time, thresholdDays int) Derived {
	d := Derived{
		DaysLeft:    daysLeft(sub.EndAt, now),
		ProgressPct: progress(sub.StartAt, sub.EndAt, now),
	}

	switch {
	case sub.Status == StatusCancelled:
		d.Status = StatusCancelled
	case d.DaysLeft < 0:
		d.Status = StatusExpired
	case sub.CredentialID == nil:
		d.Status = StatusPending
	case d.DaysLeft <= thresholdDays:
		d.Status = StatusExpiringSoon
	default:
		d.Status = StatusActive
	}
	return d
}

// View pairs the derived values with the record for API responses.
func View(sub Subscription, now time.Time, thresholdDays int) StatusView {
	d := Derive(sub, now, thresholdDays)
	return StatusView{
		SubscriptionID: sub.ID,
		Status:         d.Status,
		StoredStatus:   sub.Status,
		DaysLeft:       d.DaysLeft,
		ProgressPct:    d.ProgressPct,
		StartAt:        sub.StartAt,
		EndAt:          sub.EndAt,
	}
}

// NextWindow computes the end date after renewing for months. Remaining paid
// time is never discarded: a live subscription extends from its current end,
// an expired one restarts from now.
func NextWindow(currentEnd, now time.Time, months int) time.Time {
	base := currentEnd
	if now.After(currentEnd) {
		base = now
	}
	return base.AddDate(0, months, 0)
}

func daysLeft(end, now time.Time) int {
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

func progress(start, end, now time.Time) int {
	if !now.Before(end) {
		return 100
	}
	total := end.Sub(start)
	if total <= 0 {
		return 100
	}
	elapsed := now.Sub(start)
	pct := int(math.Round(float64(elapsed) / float64(total) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
