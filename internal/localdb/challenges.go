package localdb

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"github.com/nantokaworks/challenge-wheel/internal/types"
	"go.uber.org/zap"
)

// MinTimeLimitSeconds is the shortest accepted challenge time limit.
const MinTimeLimitSeconds = 30

var ErrTimeLimitTooShort = fmt.Errorf("time limit must be at least %d seconds", MinTimeLimitSeconds)

// GetWheelChallenges returns a wheel's challenges in list order.
func GetWheelChallenges(wheelID string) ([]types.Challenge, error) {
	db := GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := db.Query(`
		SELECT id, title, image, type, target, time_limit
		FROM challenges
		WHERE wheel_id = ?
		ORDER BY position ASC
	`, wheelID)
	if err != nil {
		logger.Error("Failed to query challenges", zap.Error(err), zap.String("wheel_id", wheelID))
		return nil, fmt.Errorf("failed to query challenges: %w", err)
	}
	defer rows.Close()

	challenges := []types.Challenge{}
	for rows.Next() {
		var c types.Challenge
		if err := rows.Scan(&c.ID, &c.Title, &c.Image, &c.Type, &c.Target, &c.TimeLimit); err != nil {
			logger.Error("Failed to scan challenge", zap.Error(err))
			continue
		}
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate challenges: %w", err)
	}

	return challenges, nil
}

// AddChallengeToWheel appends a challenge template to a wheel.
// An empty id is assigned a nanoid.
func AddChallengeToWheel(wheelID string, c *types.Challenge) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	if c.TimeLimit < MinTimeLimitSeconds {
		return ErrTimeLimitTooShort
	}

	var exists int
	if err := db.QueryRow(`SELECT COUNT(*) FROM wheels WHERE id = ?`, wheelID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check wheel: %w", err)
	}
	if exists == 0 {
		return ErrWheelNotFound
	}

	if c.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate challenge id: %w", err)
		}
		c.ID = id
	}

	_, err := db.Exec(`
		INSERT INTO challenges (id, wheel_id, title, image, type, target, time_limit, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM challenges WHERE wheel_id = ?))
	`, c.ID, wheelID, c.Title, c.Image, string(c.Type), c.Target, c.TimeLimit, wheelID)
	if err != nil {
		logger.Error("Failed to insert challenge", zap.Error(err), zap.String("wheel_id", wheelID))
		return fmt.Errorf("failed to insert challenge: %w", err)
	}

	return nil
}

// UpdateWheelChallenge rewrites a challenge template in place.
func UpdateWheelChallenge(wheelID string, c types.Challenge) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	if c.TimeLimit < MinTimeLimitSeconds {
		return ErrTimeLimitTooShort
	}

	res, err := db.Exec(`
		UPDATE challenges
		SET title = ?, image = ?, type = ?, target = ?, time_limit = ?
		WHERE id = ? AND wheel_id = ?
	`, c.Title, c.Image, string(c.Type), c.Target, c.TimeLimit, c.ID, wheelID)
	if err != nil {
		logger.Error("Failed to update challenge", zap.Error(err), zap.String("challenge_id", c.ID))
		return fmt.Errorf("failed to update challenge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChallengeNotFound
	}
	return nil
}

// DeleteChallengeFromWheel removes a challenge template from a wheel.
func DeleteChallengeFromWheel(wheelID, challengeID string) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	res, err := db.Exec(`DELETE FROM challenges WHERE id = ? AND wheel_id = ?`, challengeID, wheelID)
	if err != nil {
		logger.Error("Failed to delete challenge", zap.Error(err), zap.String("challenge_id", challengeID))
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChallengeNotFound
	}
	return nil
}
