package localdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"github.com/nantokaworks/challenge-wheel/internal/types"
	"go.uber.org/zap"
)

var ErrDonationNotFound = errors.New("donation not found")

// DayKey truncates a timestamp to its calendar-day key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// GetOrCreateSession returns the session covering t's calendar day,
// creating and persisting it on first use.
func GetOrCreateSession(t time.Time) (*types.Session, error) {
	db := GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	day := DayKey(t)

	var s types.Session
	err := db.QueryRow(`SELECT id, date FROM sessions WHERE day = ?`, day).Scan(&s.ID, &s.Date)
	if err == sql.ErrNoRows {
		id, gerr := gonanoid.New()
		if gerr != nil {
			return nil, fmt.Errorf("failed to generate session id: %w", gerr)
		}
		if _, ierr := db.Exec(`INSERT INTO sessions (id, day, date) VALUES (?, ?, ?)`, id, day, t); ierr != nil {
			logger.Error("Failed to insert session", zap.Error(ierr), zap.String("day", day))
			return nil, fmt.Errorf("failed to insert session: %w", ierr)
		}
		logger.Info("Session created", zap.String("session_id", id), zap.String("day", day))
		return &types.Session{ID: id, Date: t, Donations: []types.Donation{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	donations, err := GetSessionDonations(s.ID)
	if err != nil {
		return nil, err
	}
	s.Donations = donations
	return &s, nil
}

// GetSessionDonations returns a session's donations, oldest first.
func GetSessionDonations(sessionID string) ([]types.Donation, error) {
	db := GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := db.Query(`
		SELECT id, challenge_title, amount, created_at
		FROM donations
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		logger.Error("Failed to query donations", zap.Error(err), zap.String("session_id", sessionID))
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	donations := []types.Donation{}
	for rows.Next() {
		var d types.Donation
		if err := rows.Scan(&d.ID, &d.ChallengeTitle, &d.Amount, &d.Date); err != nil {
			logger.Error("Failed to scan donation", zap.Error(err))
			continue
		}
		donations = append(donations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate donations: %w", err)
	}

	return donations, nil
}

// InsertDonation appends a donation to a session. An empty id is assigned
// a nanoid.
func InsertDonation(sessionID string, d *types.Donation) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	if d.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate donation id: %w", err)
		}
		d.ID = id
	}
	if d.Date.IsZero() {
		d.Date = time.Now()
	}

	_, err := db.Exec(`
		INSERT INTO donations (id, session_id, challenge_title, amount, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, d.ID, sessionID, d.ChallengeTitle, d.Amount, d.Date)
	if err != nil {
		logger.Error("Failed to insert donation", zap.Error(err), zap.String("session_id", sessionID))
		return fmt.Errorf("failed to insert donation: %w", err)
	}

	return nil
}

// DeleteDonation removes a donation from whichever session holds it.
func DeleteDonation(id string) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	res, err := db.Exec(`DELETE FROM donations WHERE id = ?`, id)
	if err != nil {
		logger.Error("Failed to delete donation", zap.Error(err), zap.String("donation_id", id))
		return fmt.Errorf("failed to delete donation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDonationNotFound
	}
	return nil
}

// ClearSessionDonations removes every donation of one session.
func ClearSessionDonations(sessionID string) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := db.Exec(`DELETE FROM donations WHERE session_id = ?`, sessionID)
	if err != nil {
		logger.Error("Failed to clear session donations", zap.Error(err), zap.String("session_id", sessionID))
		return fmt.Errorf("failed to clear session donations: %w", err)
	}
	return nil
}

// GetAllSessions returns every session with its donations, oldest session
// first.
func GetAllSessions() ([]types.Session, error) {
	db := GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := db.Query(`SELECT id, date FROM sessions ORDER BY day ASC`)
	if err != nil {
		logger.Error("Failed to query sessions", zap.Error(err))
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []types.Session{}
	for rows.Next() {
		var s types.Session
		if err := rows.Scan(&s.ID, &s.Date); err != nil {
			logger.Error("Failed to scan session", zap.Error(err))
			continue
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	for i := range sessions {
		donations, err := GetSessionDonations(sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Donations = donations
	}

	return sessions, nil
}

// GetSessionStats returns the sum/count aggregate of one session.
func GetSessionStats(sessionID string) (types.Stats, error) {
	db := GetDB()
	if db == nil {
		return types.Stats{}, fmt.Errorf("database not initialized")
	}

	var stats types.Stats
	err := db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM donations
		WHERE session_id = ?
	`, sessionID).Scan(&stats.Amount, &stats.Challenges)
	if err != nil {
		return types.Stats{}, fmt.Errorf("failed to compute session stats: %w", err)
	}
	return stats, nil
}

// GetLifetimeStats returns the sum/count aggregate across all sessions.
func GetLifetimeStats() (types.Stats, error) {
	db := GetDB()
	if db == nil {
		return types.Stats{}, fmt.Errorf("database not initialized")
	}

	var stats types.Stats
	err := db.QueryRow(`SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM donations`).Scan(&stats.Amount, &stats.Challenges)
	if err != nil {
		return types.Stats{}, fmt.Errorf("failed to compute lifetime stats: %w", err)
	}
	return stats, nil
}
