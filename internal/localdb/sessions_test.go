package localdb

import (
	"errors"
	"testing"
	"time"

	"github.com/nantokaworks/challenge-wheel/internal/types"
)

func TestGetOrCreateSession_OnePerDay(t *testing.T) {
	newTestDB(t)

	morning := time.Date(2025, 3, 1, 9, 0, 0, 0, time.Local)
	evening := time.Date(2025, 3, 1, 22, 30, 0, 0, time.Local)
	nextDay := time.Date(2025, 3, 2, 0, 1, 0, 0, time.Local)

	s1, err := GetOrCreateSession(morning)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s2, err := GetOrCreateSession(evening)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s3, err := GetOrCreateSession(nextDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s1.ID != s2.ID {
		t.Fatalf("same day must share a session: got=%s and %s", s1.ID, s2.ID)
	}
	if s1.ID == s3.ID {
		t.Fatalf("different days must not share a session")
	}
}

func TestSessionStats(t *testing.T) {
	newTestDB(t)

	day := time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local)
	session, err := GetOrCreateSession(day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, amount := range []float64{5.00, 10.00, 2.50} {
		d := types.Donation{ChallengeTitle: "Test", Amount: amount, Date: day}
		if err := InsertDonation(session.ID, &d); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	stats, err := GetSessionStats(session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Challenges != 3 {
		t.Fatalf("challenge count mismatch: got=%d want=3", stats.Challenges)
	}
	if stats.Amount != 17.50 {
		t.Fatalf("amount mismatch: got=%.2f want=17.50", stats.Amount)
	}
}

func TestLifetimeStats_SpansSessions(t *testing.T) {
	newTestDB(t)

	day1 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local)
	day2 := time.Date(2025, 3, 2, 12, 0, 0, 0, time.Local)

	s1, _ := GetOrCreateSession(day1)
	s2, _ := GetOrCreateSession(day2)

	InsertDonation(s1.ID, &types.Donation{ChallengeTitle: "A", Amount: 5, Date: day1})
	InsertDonation(s2.ID, &types.Donation{ChallengeTitle: "B", Amount: 10, Date: day2})

	lifetime, err := GetLifetimeStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lifetime.Challenges != 2 || lifetime.Amount != 15 {
		t.Fatalf("lifetime stats mismatch: got=%+v", lifetime)
	}

	day1Stats, err := GetSessionStats(s1.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day1Stats.Challenges != 1 || day1Stats.Amount != 5 {
		t.Fatalf("session stats mismatch: got=%+v", day1Stats)
	}
}

func TestDeleteDonation(t *testing.T) {
	newTestDB(t)

	day := time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local)
	session, _ := GetOrCreateSession(day)

	d := types.Donation{ChallengeTitle: "Test", Amount: 5, Date: day}
	if err := InsertDonation(session.ID, &d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := DeleteDonation(d.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := DeleteDonation(d.ID); !errors.Is(err, ErrDonationNotFound) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClearSessionDonations_LeavesOtherSessions(t *testing.T) {
	newTestDB(t)

	day1 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local)
	day2 := time.Date(2025, 3, 2, 12, 0, 0, 0, time.Local)
	s1, _ := GetOrCreateSession(day1)
	s2, _ := GetOrCreateSession(day2)

	InsertDonation(s1.ID, &types.Donation{ChallengeTitle: "A", Amount: 5, Date: day1})
	InsertDonation(s2.ID, &types.Donation{ChallengeTitle: "B", Amount: 10, Date: day2})

	if err := ClearSessionDonations(s1.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lifetime, err := GetLifetimeStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lifetime.Challenges != 1 || lifetime.Amount != 10 {
		t.Fatalf("lifetime stats mismatch after clear: got=%+v", lifetime)
	}
}
