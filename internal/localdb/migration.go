package localdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"github.com/nantokaworks/challenge-wheel/internal/types"
	"go.uber.org/zap"
)

// Legacy JSON-blob shapes from the pre-sqlite store. Wheels either own
// their challenge objects inline or, in the oldest shape, reference a
// global challenge collection by bare id.
type legacyChallenge struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Image     string `json:"image"`
	Type      string `json:"type"`
	Target    int    `json:"target"`
	TimeLimit int    `json:"timeLimit"`
}

type legacyWheel struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Challenges []json.RawMessage `json:"challenges"`
}

type legacyDonation struct {
	ID             string  `json:"id"`
	ChallengeTitle string  `json:"challengeTitle"`
	Amount         float64 `json:"amount"`
	Date           string  `json:"date"`
}

type legacySession struct {
	ID        string           `json:"id"`
	Date      string           `json:"date"`
	Donations []legacyDonation `json:"donations"`
}

type legacySettings struct {
	DonationAmount    float64           `json:"donationAmount"`
	SuperChance       float64           `json:"superChance"`
	AnimationDuration float64           `json:"animationDuration"`
	Hotkeys           map[string]string `json:"hotkeys"`
	Sounds            struct {
		SpinSoundType     string `json:"spinSoundType"`
		ProgressSoundType string `json:"progressSoundType"`
		WarningSoundType  string `json:"warningSoundType"`
	} `json:"sounds"`
}

// MigrateLegacyStore imports the JSON-blob data of the old storage shape
// into the relational tables and consumes the blobs. Running it again is a
// no-op: imported rows are deleted, and wheels already present in the
// wheels table are never overwritten.
func MigrateLegacyStore() error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	var pending int
	if err := db.QueryRow(`SELECT COUNT(*) FROM legacy_store`).Scan(&pending); err != nil {
		return fmt.Errorf("failed to inspect legacy store: %w", err)
	}
	if pending == 0 {
		return nil
	}

	logger.Info("Migrating legacy store", zap.Int("keys", pending))

	globalChallenges := map[string]legacyChallenge{}
	if raw, err := getLegacyValue("challenges"); err != nil {
		return err
	} else if raw != "" {
		var list []legacyChallenge
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			logger.Warn("Failed to parse legacy challenges, skipping", zap.Error(err))
		} else {
			for _, c := range list {
				globalChallenges[c.ID] = c
			}
		}
	}

	if err := migrateLegacyWheels(db, globalChallenges); err != nil {
		return err
	}
	if err := migrateLegacySessions(db); err != nil {
		return err
	}
	if err := migrateLegacySettings(db); err != nil {
		return err
	}

	if raw, err := getLegacyValue("activeWheelId"); err == nil && raw != "" {
		var id string
		if err := json.Unmarshal([]byte(raw), &id); err != nil {
			id = raw // stored as a plain string in the oldest shape
		}
		var exists int
		if err := db.QueryRow(`SELECT COUNT(*) FROM wheels WHERE id = ?`, id).Scan(&exists); err == nil && exists > 0 {
			if err := setStateValue(activeWheelKey, id); err != nil {
				return err
			}
		}
	}

	if _, err := db.Exec(`DELETE FROM legacy_store`); err != nil {
		return fmt.Errorf("failed to clear legacy store: %w", err)
	}

	logger.Info("Legacy store migration complete")
	return nil
}

func migrateLegacyWheels(db *sql.DB, globalChallenges map[string]legacyChallenge) error {
	raw, err := getLegacyValue("wheels")
	if err != nil || raw == "" {
		return err
	}

	var existing int
	if err := db.QueryRow(`SELECT COUNT(*) FROM wheels`).Scan(&existing); err != nil {
		return fmt.Errorf("failed to count wheels: %w", err)
	}
	if existing > 0 {
		logger.Warn("Wheels table already populated, skipping legacy wheel import")
		return nil
	}

	var wheels []legacyWheel
	if err := json.Unmarshal([]byte(raw), &wheels); err != nil {
		return fmt.Errorf("failed to parse legacy wheels: %w", err)
	}

	for _, lw := range wheels {
		w := types.Wheel{ID: lw.ID, Name: lw.Name}
		for _, entry := range lw.Challenges {
			lc, ok := decodeLegacyChallenge(entry, globalChallenges)
			if !ok {
				continue
			}
			// Hand-edited legacy stores may undercut the UI's minimum.
			if lc.TimeLimit < MinTimeLimitSeconds {
				lc.TimeLimit = MinTimeLimitSeconds
			}
			w.Challenges = append(w.Challenges, types.Challenge{
				ID:        lc.ID,
				Title:     lc.Title,
				Image:     lc.Image,
				Type:      types.ChallengeType(lc.Type),
				Target:    lc.Target,
				TimeLimit: lc.TimeLimit,
			})
		}
		if err := InsertWheel(&w); err != nil {
			return err
		}
	}

	logger.Info("Legacy wheels imported", zap.Int("count", len(wheels)))
	return nil
}

// decodeLegacyChallenge accepts either an inline challenge object or a bare
// id referencing the discarded global collection.
func decodeLegacyChallenge(entry json.RawMessage, globalChallenges map[string]legacyChallenge) (legacyChallenge, bool) {
	var id string
	if err := json.Unmarshal(entry, &id); err == nil {
		lc, ok := globalChallenges[id]
		if !ok {
			logger.Warn("Legacy wheel references unknown challenge id", zap.String("challenge_id", id))
		}
		return lc, ok
	}

	var lc legacyChallenge
	if err := json.Unmarshal(entry, &lc); err != nil {
		logger.Warn("Failed to parse legacy challenge entry", zap.Error(err))
		return legacyChallenge{}, false
	}
	return lc, true
}

func migrateLegacySessions(db *sql.DB) error {
	raw, err := getLegacyValue("sessions")
	if err != nil || raw == "" {
		return err
	}

	var existing int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&existing); err != nil {
		return fmt.Errorf("failed to count sessions: %w", err)
	}
	if existing > 0 {
		logger.Warn("Sessions table already populated, skipping legacy session import")
		return nil
	}

	var sessions []legacySession
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return fmt.Errorf("failed to parse legacy sessions: %w", err)
	}

	imported := 0
	for _, ls := range sessions {
		date := parseLegacyTime(ls.Date)
		session, err := GetOrCreateSession(date)
		if err != nil {
			return err
		}
		for _, ld := range ls.Donations {
			d := types.Donation{
				ID:             ld.ID,
				ChallengeTitle: ld.ChallengeTitle,
				Amount:         ld.Amount,
				Date:           parseLegacyTime(ld.Date),
			}
			if err := InsertDonation(session.ID, &d); err != nil {
				return err
			}
			imported++
		}
	}

	logger.Info("Legacy sessions imported", zap.Int("sessions", len(sessions)), zap.Int("donations", imported))
	return nil
}

func migrateLegacySettings(db *sql.DB) error {
	raw, err := getLegacyValue("settings")
	if err != nil || raw == "" {
		return err
	}

	var ls legacySettings
	if err := json.Unmarshal([]byte(raw), &ls); err != nil {
		logger.Warn("Failed to parse legacy settings, keeping defaults", zap.Error(err))
		return nil
	}

	pairs := map[string]string{}
	if ls.DonationAmount > 0 {
		pairs["DONATION_AMOUNT"] = strconv.FormatFloat(ls.DonationAmount, 'f', 2, 64)
	}
	if ls.SuperChance >= 0 && ls.SuperChance <= 100 {
		pairs["SUPER_CHANCE"] = strconv.Itoa(int(ls.SuperChance))
	}
	if ls.AnimationDuration > 0 {
		pairs["ANIMATION_DURATION"] = strconv.FormatFloat(ls.AnimationDuration, 'f', 1, 64)
	}
	if ls.Sounds.SpinSoundType != "" {
		pairs["SPIN_SOUND_TYPE"] = ls.Sounds.SpinSoundType
	}
	if ls.Sounds.ProgressSoundType != "" {
		pairs["PROGRESS_SOUND_TYPE"] = ls.Sounds.ProgressSoundType
	}
	if ls.Sounds.WarningSoundType != "" {
		pairs["WARNING_SOUND_TYPE"] = ls.Sounds.WarningSoundType
	}

	hotkeyKeys := map[string]string{
		"spinWheel":       "HOTKEY_SPIN_WHEEL",
		"progressUp":      "HOTKEY_PROGRESS_UP",
		"progressDown":    "HOTKEY_PROGRESS_DOWN",
		"challengeFailed": "HOTKEY_CHALLENGE_FAILED",
		"pauseResume":     "HOTKEY_PAUSE_RESUME",
	}
	for action, key := range hotkeyKeys {
		if combo, ok := ls.Hotkeys[action]; ok && combo != "" {
			pairs[key] = combo
		}
	}

	for key, value := range pairs {
		_, err := db.Exec(`
			INSERT INTO settings (key, value, setting_type, is_required, updated_at)
			VALUES (?, ?, 'normal', false, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, key, value)
		if err != nil {
			return fmt.Errorf("failed to import legacy setting %s: %w", key, err)
		}
	}

	logger.Info("Legacy settings imported", zap.Int("count", len(pairs)))
	return nil
}

func getLegacyValue(key string) (string, error) {
	db := GetDB()
	if db == nil {
		return "", fmt.Errorf("database not initialized")
	}

	var value string
	err := db.QueryRow(`SELECT value FROM legacy_store WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read legacy %s: %w", key, err)
	}
	return value, nil
}

func parseLegacyTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Now()
}
