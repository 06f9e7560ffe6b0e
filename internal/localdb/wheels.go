package localdb

import (
	"database/sql"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"github.com/nantokaworks/challenge-wheel/internal/types"
	"go.uber.org/zap"
)

const activeWheelKey = "ACTIVE_WHEEL_ID"

var (
	ErrWheelNotFound     = errors.New("wheel not found")
	ErrChallengeNotFound = errors.New("challenge not found")
)

// GetAllWheels returns every wheel with its challenges, in creation order.
// The IsActive flag reflects the current active wheel id.
func GetAllWheels() ([]types.Wheel, error) {
	db := GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := db.Query(`SELECT id, name FROM wheels ORDER BY position ASC, created_at ASC`)
	if err != nil {
		logger.Error("Failed to query wheels", zap.Error(err))
		return nil, fmt.Errorf("failed to query wheels: %w", err)
	}
	defer rows.Close()

	wheels := []types.Wheel{}
	for rows.Next() {
		var w types.Wheel
		if err := rows.Scan(&w.ID, &w.Name); err != nil {
			logger.Error("Failed to scan wheel", zap.Error(err))
			continue
		}
		wheels = append(wheels, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wheels: %w", err)
	}

	activeID, err := GetActiveWheelID()
	if err != nil {
		return nil, err
	}

	for i := range wheels {
		challenges, err := GetWheelChallenges(wheels[i].ID)
		if err != nil {
			return nil, err
		}
		wheels[i].Challenges = challenges
		wheels[i].IsActive = wheels[i].ID == activeID
	}

	return wheels, nil
}

// GetWheel returns one wheel with its challenges.
func GetWheel(id string) (*types.Wheel, error) {
	db := GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var w types.Wheel
	err := db.QueryRow(`SELECT id, name FROM wheels WHERE id = ?`, id).Scan(&w.ID, &w.Name)
	if err == sql.ErrNoRows {
		return nil, ErrWheelNotFound
	}
	if err != nil {
		logger.Error("Failed to get wheel", zap.Error(err), zap.String("wheel_id", id))
		return nil, fmt.Errorf("failed to get wheel: %w", err)
	}

	challenges, err := GetWheelChallenges(w.ID)
	if err != nil {
		return nil, err
	}
	w.Challenges = challenges

	activeID, err := GetActiveWheelID()
	if err == nil {
		w.IsActive = w.ID == activeID
	}

	return &w, nil
}

// InsertWheel creates a wheel. An empty id is assigned a nanoid.
// The first wheel in an empty registry becomes the active wheel.
func InsertWheel(w *types.Wheel) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	if w.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate wheel id: %w", err)
		}
		w.ID = id
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM wheels`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count wheels: %w", err)
	}

	_, err := db.Exec(`
		INSERT INTO wheels (id, name, position)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM wheels))
	`, w.ID, w.Name)
	if err != nil {
		logger.Error("Failed to insert wheel", zap.Error(err), zap.String("name", w.Name))
		return fmt.Errorf("failed to insert wheel: %w", err)
	}

	for i := range w.Challenges {
		if err := AddChallengeToWheel(w.ID, &w.Challenges[i]); err != nil {
			return err
		}
	}

	if count == 0 {
		if err := setStateValue(activeWheelKey, w.ID); err != nil {
			return err
		}
		w.IsActive = true
	}

	logger.Info("Wheel created", zap.String("wheel_id", w.ID), zap.String("name", w.Name))
	return nil
}

// UpdateWheel renames a wheel.
func UpdateWheel(id, name string) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	res, err := db.Exec(`UPDATE wheels SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		logger.Error("Failed to update wheel", zap.Error(err), zap.String("wheel_id", id))
		return fmt.Errorf("failed to update wheel: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrWheelNotFound
	}
	return nil
}

// DeleteWheel removes a wheel and its challenges. If it was the active
// wheel, the first remaining wheel becomes active; with no wheels left the
// active id is cleared.
func DeleteWheel(id string) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	res, err := db.Exec(`DELETE FROM wheels WHERE id = ?`, id)
	if err != nil {
		logger.Error("Failed to delete wheel", zap.Error(err), zap.String("wheel_id", id))
		return fmt.Errorf("failed to delete wheel: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrWheelNotFound
	}

	activeID, err := getStateValue(activeWheelKey)
	if err != nil {
		return err
	}
	if activeID == id {
		next := ""
		err := db.QueryRow(`SELECT id FROM wheels ORDER BY position ASC, created_at ASC LIMIT 1`).Scan(&next)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to pick next active wheel: %w", err)
		}
		if err := setStateValue(activeWheelKey, next); err != nil {
			return err
		}
		logger.Info("Active wheel reassigned", zap.String("deleted", id), zap.String("active", next))
	}

	return nil
}

// GetActiveWheelID returns the active wheel id. A stale id (deleted wheel)
// falls back to the first remaining wheel and is persisted; an empty
// registry yields "".
func GetActiveWheelID() (string, error) {
	db := GetDB()
	if db == nil {
		return "", fmt.Errorf("database not initialized")
	}

	activeID, err := getStateValue(activeWheelKey)
	if err != nil {
		return "", err
	}

	if activeID != "" {
		var exists int
		if err := db.QueryRow(`SELECT COUNT(*) FROM wheels WHERE id = ?`, activeID).Scan(&exists); err != nil {
			return "", fmt.Errorf("failed to check active wheel: %w", err)
		}
		if exists > 0 {
			return activeID, nil
		}
	}

	var first string
	err = db.QueryRow(`SELECT id FROM wheels ORDER BY position ASC, created_at ASC LIMIT 1`).Scan(&first)
	if err == sql.ErrNoRows {
		if activeID != "" {
			_ = setStateValue(activeWheelKey, "")
		}
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve active wheel: %w", err)
	}

	if first != activeID {
		if err := setStateValue(activeWheelKey, first); err != nil {
			return "", err
		}
	}
	return first, nil
}

// SetActiveWheelID marks a wheel as the active one.
func SetActiveWheelID(id string) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	var exists int
	if err := db.QueryRow(`SELECT COUNT(*) FROM wheels WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check wheel: %w", err)
	}
	if exists == 0 {
		return ErrWheelNotFound
	}

	return setStateValue(activeWheelKey, id)
}

// GetActiveWheel returns the active wheel, or ErrWheelNotFound for an empty
// registry.
func GetActiveWheel() (*types.Wheel, error) {
	activeID, err := GetActiveWheelID()
	if err != nil {
		return nil, err
	}
	if activeID == "" {
		return nil, ErrWheelNotFound
	}
	return GetWheel(activeID)
}
