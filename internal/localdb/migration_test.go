package localdb

import (
	"database/sql"
	"testing"

	"github.com/nantokaworks/challenge-wheel/internal/types"
)

func putLegacy(t *testing.T, db *sql.DB, key, value string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO legacy_store (key, value) VALUES (?, ?)`, key, value); err != nil {
		t.Fatalf("failed to insert legacy blob %s: %v", key, err)
	}
}

func TestMigrateLegacyStore_InlineChallenges(t *testing.T) {
	db := newTestDB(t)

	putLegacy(t, db, "wheels", `[
		{"id":"w1","name":"Altes Rad","challenges":[
			{"id":"c1","title":"Sammle 5 Sterne","image":"⭐","type":"collect","target":5,"timeLimit":120}
		]}
	]`)
	putLegacy(t, db, "activeWheelId", `"w1"`)

	if err := MigrateLegacyStore(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wheel, err := GetWheel("w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wheel.Name != "Altes Rad" {
		t.Fatalf("wheel name mismatch: got=%s", wheel.Name)
	}
	if len(wheel.Challenges) != 1 {
		t.Fatalf("challenge count mismatch: got=%d want=1", len(wheel.Challenges))
	}
	c := wheel.Challenges[0]
	if c.Type != types.ChallengeTypeCollect || c.Target != 5 || c.TimeLimit != 120 {
		t.Fatalf("challenge mismatch: got=%+v", c)
	}

	activeID, err := GetActiveWheelID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if activeID != "w1" {
		t.Fatalf("active wheel mismatch: got=%s want=w1", activeID)
	}
}

func TestMigrateLegacyStore_ClampsShortTimeLimits(t *testing.T) {
	db := newTestDB(t)

	putLegacy(t, db, "wheels", `[
		{"id":"w1","name":"Altes Rad","challenges":[
			{"id":"c1","title":"Handbearbeitet","type":"survive","target":0,"timeLimit":5}
		]}
	]`)

	if err := MigrateLegacyStore(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wheel, err := GetWheel("w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wheel.Challenges) != 1 {
		t.Fatalf("challenge count mismatch: got=%d want=1", len(wheel.Challenges))
	}
	if wheel.Challenges[0].TimeLimit != MinTimeLimitSeconds {
		t.Fatalf("time limit not clamped: got=%d want=%d", wheel.Challenges[0].TimeLimit, MinTimeLimitSeconds)
	}
}

func TestMigrateLegacyStore_BareIDReferences(t *testing.T) {
	db := newTestDB(t)

	// Oldest shape: wheels reference a global challenge collection by id.
	putLegacy(t, db, "challenges", `[
		{"id":"g1","title":"Global A","type":"survive","target":0,"timeLimit":300},
		{"id":"g2","title":"Global B","type":"max","target":3,"timeLimit":600}
	]`)
	putLegacy(t, db, "wheels", `[
		{"id":"w1","name":"Rad","challenges":["g1","g2","g-missing"]}
	]`)

	if err := MigrateLegacyStore(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wheel, err := GetWheel("w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The dangling reference is dropped, the rest are inlined.
	if len(wheel.Challenges) != 2 {
		t.Fatalf("challenge count mismatch: got=%d want=2", len(wheel.Challenges))
	}
	if wheel.Challenges[0].Title != "Global A" || wheel.Challenges[1].Title != "Global B" {
		t.Fatalf("challenge titles mismatch: got=%+v", wheel.Challenges)
	}
}

func TestMigrateLegacyStore_SessionsAndSettings(t *testing.T) {
	db := newTestDB(t)

	putLegacy(t, db, "sessions", `[
		{"id":"s1","date":"2024-06-01T18:00:00Z","donations":[
			{"id":"d1","challengeTitle":"Sammle 10 Münzen","amount":5,"date":"2024-06-01T18:30:00Z"},
			{"id":"d2","challengeTitle":"Maximum 3 Tode","amount":10,"date":"2024-06-01T19:00:00Z"}
		]}
	]`)
	putLegacy(t, db, "settings", `{
		"donationAmount": 7.5,
		"superChance": 25,
		"animationDuration": 4,
		"hotkeys": {"spinWheel": "F9"},
		"sounds": {"spinSoundType": "chime"}
	}`)

	if err := MigrateLegacyStore(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lifetime, err := GetLifetimeStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lifetime.Challenges != 2 || lifetime.Amount != 15 {
		t.Fatalf("lifetime stats mismatch: got=%+v", lifetime)
	}

	for key, want := range map[string]string{
		"DONATION_AMOUNT":    "7.50",
		"SUPER_CHANCE":       "25",
		"ANIMATION_DURATION": "4.0",
		"HOTKEY_SPIN_WHEEL":  "F9",
		"SPIN_SOUND_TYPE":    "chime",
	} {
		var got string
		if err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&got); err != nil {
			t.Fatalf("setting %s not imported: %v", key, err)
		}
		if got != want {
			t.Fatalf("setting %s mismatch: got=%s want=%s", key, got, want)
		}
	}
}

func TestMigrateLegacyStore_Idempotent(t *testing.T) {
	db := newTestDB(t)

	putLegacy(t, db, "wheels", `[{"id":"w1","name":"Rad","challenges":[]}]`)

	if err := MigrateLegacyStore(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 消費済みブロブは削除される
	var pending int
	if err := db.QueryRow(`SELECT COUNT(*) FROM legacy_store`).Scan(&pending); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pending != 0 {
		t.Fatalf("legacy store not consumed: %d rows left", pending)
	}

	if err := MigrateLegacyStore(); err != nil {
		t.Fatalf("second run must be a no-op: %v", err)
	}

	wheels, err := GetAllWheels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wheels) != 1 {
		t.Fatalf("wheel count mismatch after rerun: got=%d want=1", len(wheels))
	}
}

func TestMigrateLegacyStore_DoesNotOverwritePopulatedTables(t *testing.T) {
	db := newTestDB(t)

	existing := mustInsertWheel(t, "Bestehendes Rad")

	putLegacy(t, db, "wheels", `[{"id":"w1","name":"Altes Rad","challenges":[]}]`)

	if err := MigrateLegacyStore(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wheels, err := GetAllWheels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wheels) != 1 || wheels[0].ID != existing.ID {
		t.Fatalf("existing wheels must win over legacy import: got=%+v", wheels)
	}
}

func TestSeedDefaultData(t *testing.T) {
	newTestDB(t)

	if err := SeedDefaultData(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wheels, err := GetAllWheels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wheels) != 1 {
		t.Fatalf("wheel count mismatch: got=%d want=1", len(wheels))
	}
	if wheels[0].Name != "Standard Challenges" {
		t.Fatalf("wheel name mismatch: got=%s", wheels[0].Name)
	}
	if len(wheels[0].Challenges) != 3 {
		t.Fatalf("challenge count mismatch: got=%d want=3", len(wheels[0].Challenges))
	}
	if !wheels[0].IsActive {
		t.Fatalf("seeded wheel should be active")
	}

	// 既にホイールがある場合は何もしない
	if err := SeedDefaultData(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wheels, _ = GetAllWheels()
	if len(wheels) != 1 {
		t.Fatalf("seed must not duplicate: got=%d wheels", len(wheels))
	}
}
