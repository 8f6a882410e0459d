package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func withCredential() *string {
	id := "cred-1"
	return &id
}

func TestDeriveClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sub       Subscription
		threshold int
		want      Status
	}{
		{
			name: "active well before end",
			sub: Subscription{
				Status: StatusActive, CredentialID: withCredential(),
				StartAt: now.AddDate(0, 0, -10), EndAt: now.AddDate(0, 0, 60),
			},
			threshold: 30,
			want:      StatusActive,
		},
		{
			name: "expiring soon inside threshold",
			sub: Subscription{
				Status: StatusActive, CredentialID: withCredential(),
				StartAt: now.AddDate(0, 0, -40), EndAt: now.AddDate(0, 0, 5),
			},
			threshold: 30,
			want:      StatusExpiringSoon,
		},
		{
			name: "same dates outside reseller threshold stay active",
			sub: Subscription{
				Status: StatusActive, CredentialID: withCredential(),
				StartAt: now.AddDate(0, 0, -40), EndAt: now.AddDate(0, 0, 15),
			},
			threshold: 7,
			want:      StatusActive,
		},
		{
			name: "stale stored active past end is expired",
			sub: Subscription{
				Status: StatusActive, CredentialID: withCredential(),
				StartAt: now.AddDate(0, 0, -60), EndAt: now.AddDate(0, 0, -2),
			},
			threshold: 30,
			want:      StatusExpired,
		},
		{
			name: "no credential is pending",
			sub: Subscription{
				Status:  StatusPending,
				StartAt: now, EndAt: now.AddDate(0, 1, 0),
			},
			threshold: 30,
			want:      StatusPending,
		},
		{
			name: "cancelled is terminal regardless of dates",
			sub: Subscription{
				Status: StatusCancelled, CredentialID: withCredential(),
				StartAt: now.AddDate(0, 0, -10), EndAt: now.AddDate(0, 0, 60),
			},
			threshold: 30,
			want:      StatusCancelled,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Derive(tc.sub, now, tc.threshold).Status)
		})
	}
}

func TestDeriveDaysLeftAndProgress(t *testing.T) {
	t.Parallel()

	sub := Subscription{
		Status:       StatusActive,
		CredentialID: withCredential(),
		StartAt:      now.AddDate(0, 0, -40),
		EndAt:        now.AddDate(0, 0, 5),
	}
	d := Derive(sub, now, 30)

	assert.Equal(t, StatusExpiringSoon, d.Status)
	assert.Equal(t, 5, d.DaysLeft)
	assert.Equal(t, 89, d.ProgressPct) // 40 of 45 days elapsed
}

func TestDeriveEndOfDaySemantics(t *testing.T) {
	t.Parallel()

	sub := Subscription{Status: StatusActive, CredentialID: withCredential(), StartAt: now.AddDate(0, -1, 0)}

	// a few hours past end: zero days left, still inside the window
	sub.EndAt = now.Add(-6 * time.Hour)
	d := Derive(sub, now, 7)
	assert.Equal(t, 0, d.DaysLeft)
	assert.Equal(t, StatusExpiringSoon, d.Status)
	assert.Equal(t, 100, d.ProgressPct)

	// more than a day past end: expired
	sub.EndAt = now.Add(-30 * time.Hour)
	d = Derive(sub, now, 7)
	assert.Equal(t, -1, d.DaysLeft)
	assert.Equal(t, StatusExpired, d.Status)
}

func TestDeriveIsPure(t *testing.T) {
	t.Parallel()

	sub := Subscription{
		Status:       StatusActive,
		CredentialID: withCredential(),
		StartAt:      now.AddDate(0, 0, -40),
		EndAt:        now.AddDate(0, 0, 5),
	}
	before := sub
	first := Derive(sub, now, 30)
	second := Derive(sub, now, 30)

	assert.Equal(t, first, second)
	assert.Equal(t, before, sub)
}

func TestNextWindowExtendsNeverTruncates(t *testing.T) {
	t.Parallel()

	end := now.AddDate(0, 0, 20)
	got := NextWindow(end, now, 2)
	assert.Equal(t, end.AddDate(0, 2, 0), got)
}

func TestNextWindowReactivatesFromNow(t *testing.T) {
	t.Parallel()

	end := now.AddDate(0, -2, 0)
	got := NextWindow(end, now, 3)
	assert.Equal(t, now.AddDate(0, 3, 0), got)
}

func TestProgressClamped(t *testing.T) {
	t.Parallel()

	sub := Subscription{
		Status:       StatusActive,
		CredentialID: withCredential(),
		StartAt:      now.Add(2 * time.Hour), // not started yet
		EndAt:        now.AddDate(0, 1, 0),
	}
	d := Derive(sub, now, 30)
	assert.Equal(t, 0, d.ProgressPct)
}
