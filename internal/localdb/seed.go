package localdb

import (
	"fmt"

	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"github.com/nantokaworks/challenge-wheel/internal/types"
)

// SeedDefaultData creates the starter wheel on first run. An already
// populated registry is left untouched.
func SeedDefaultData() error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM wheels`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count wheels: %w", err)
	}
	if count > 0 {
		return nil
	}

	wheel := types.Wheel{
		Name: "Standard Challenges",
		Challenges: []types.Challenge{
			{Title: "Sammle 10 Münzen", Image: "🪙", Type: types.ChallengeTypeCollect, Target: 10, TimeLimit: 180},
			{Title: "Überlebe 5 Minuten", Image: "⏰", Type: types.ChallengeTypeSurvive, Target: 0, TimeLimit: 300},
			{Title: "Maximum 3 Tode", Image: "☠️", Type: types.ChallengeTypeMax, Target: 3, TimeLimit: 600},
		},
	}
	if err := InsertWheel(&wheel); err != nil {
		return err
	}

	logger.Info("Seeded default wheel")
	return nil
}
