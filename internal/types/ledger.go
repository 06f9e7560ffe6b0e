package types

import "time"

// Donation is a monetary penalty record created when a challenge fails.
// Immutable once created except for deletion.
type Donation struct {
	ID             string    `json:"id" db:"id"`
	ChallengeTitle string    `json:"challenge_title" db:"challenge_title"` // snapshot, not a reference
	Amount         float64   `json:"amount" db:"amount"`
	Date           time.Time `json:"date" db:"date"`
}

// Session groups the donations of one calendar day.
type Session struct {
	ID        string     `json:"id" db:"id"`
	Date      time.Time  `json:"date" db:"date"`
	Donations []Donation `json:"donations"`
}

// Stats is a derived sum/count aggregate over donations.
type Stats struct {
	Amount     float64 `json:"amount"`
	Challenges int     `json:"challenges"`
}
