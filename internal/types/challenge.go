package types

import "time"

// ChallengeType は挑戦の勝敗判定方式
type ChallengeType string

const (
	// ChallengeTypeCollect completes when progress reaches the target.
	ChallengeTypeCollect ChallengeType = "collect"
	// ChallengeTypeSurvive is governed by the timer alone (target is 0).
	ChallengeTypeSurvive ChallengeType = "survive"
	// ChallengeTypeMax fails when progress exceeds the target.
	ChallengeTypeMax ChallengeType = "max"
)

// Valid reports whether t is a known challenge type.
func (t ChallengeType) Valid() bool {
	switch t {
	case ChallengeTypeCollect, ChallengeTypeSurvive, ChallengeTypeMax:
		return true
	}
	return false
}

// Challenge is a reusable mini-game template owned by exactly one wheel.
// Super status is not part of the template; it is rolled per spin.
type Challenge struct {
	ID        string        `json:"id" db:"id"`
	Title     string        `json:"title" db:"title"`
	Image     string        `json:"image" db:"image"` // icon glyph (emoji)
	Type      ChallengeType `json:"type" db:"type"`
	Target    int           `json:"target" db:"target"`
	TimeLimit int           `json:"time_limit" db:"time_limit"` // seconds
}

// Wheel is a named, ordered pool of challenge templates.
type Wheel struct {
	ID         string      `json:"id" db:"id"`
	Name       string      `json:"name" db:"name"`
	Challenges []Challenge `json:"challenges"`
	IsActive   bool        `json:"is_active"`
}

// ActiveChallenge is the single live attempt currently in progress.
type ActiveChallenge struct {
	Challenge     Challenge `json:"challenge"`
	StartTime     time.Time `json:"start_time"`
	Progress      int       `json:"progress"`
	IsPaused      bool      `json:"is_paused"`
	TimeRemaining int       `json:"time_remaining"` // seconds
	IsSuper       bool      `json:"is_super"`
}
