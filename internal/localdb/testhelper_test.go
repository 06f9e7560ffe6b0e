package localdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nantokaworks/challenge-wheel/internal/types"
)

// newTestDB opens a fresh database in a temp dir and tears it down with
// the test.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	DBClient = nil
	db, err := SetupDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to setup test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		DBClient = nil
	})
	return db
}

func mustInsertWheel(t *testing.T, name string, challenges ...types.Challenge) *types.Wheel {
	t.Helper()

	w := &types.Wheel{Name: name}
	if err := InsertWheel(w); err != nil {
		t.Fatalf("failed to insert wheel %q: %v", name, err)
	}
	for i := range challenges {
		if err := AddChallengeToWheel(w.ID, &challenges[i]); err != nil {
			t.Fatalf("failed to add challenge %q: %v", challenges[i].Title, err)
		}
	}
	w.Challenges = challenges
	return w
}

func testChallenge(title string, typ types.ChallengeType, target, timeLimit int) types.Challenge {
	return types.Challenge{
		Title:     title,
		Type:      typ,
		Target:    target,
		TimeLimit: timeLimit,
	}
}
