package localdb

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"go.uber.org/zap"
)

var DBClient *sql.DB

// SetupDB opens (or creates) the sqlite database and ensures the schema.
func SetupDB(dbPath string) (*sql.DB, error) {
	if DBClient != nil {
		return DBClient, nil
	}

	// WALモードとBusy Timeoutを設定（Race Condition対策）
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	// SQLiteは単一ライターなので接続プールを1に制限
	db.SetMaxOpenConns(1)

	DBClient = db

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		setting_type TEXT NOT NULL DEFAULT 'normal',
		is_required BOOLEAN NOT NULL DEFAULT false,
		description TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS wheels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create wheels table: %w", err)
	}

	// challenges are owned inline by their wheel; deleting a wheel removes them.
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS challenges (
		id TEXT PRIMARY KEY,
		wheel_id TEXT NOT NULL,
		title TEXT NOT NULL,
		image TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		target INTEGER NOT NULL DEFAULT 0,
		time_limit INTEGER NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (wheel_id) REFERENCES wheels(id) ON DELETE CASCADE
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenges table: %w", err)
	}

	// one session row per calendar day, keyed by the local date string.
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		day TEXT NOT NULL UNIQUE,
		date TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS donations (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		challenge_title TEXT NOT NULL,
		amount REAL NOT NULL,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create donations table: %w", err)
	}

	if _, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_donations_session ON donations(session_id)`); err != nil {
		logger.Warn("Failed to create donations index", zap.Error(err))
	}

	// legacy_store holds the JSON blobs of the pre-sqlite storage shape.
	// Rows are consumed (and deleted) by MigrateLegacyStore.
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS legacy_store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create legacy_store table: %w", err)
	}

	return db, nil
}

// GetDB は現在のデータベース接続を返します
func GetDB() *sql.DB {
	return DBClient
}

// getStateValue reads an internal state entry from the settings table.
// Missing keys return "" without error.
func getStateValue(key string) (string, error) {
	db := GetDB()
	if db == nil {
		return "", fmt.Errorf("database not initialized")
	}

	var value string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func setStateValue(key, value string) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := db.Exec(`
		INSERT INTO settings (key, value, setting_type, is_required, updated_at)
		VALUES (?, ?, 'state', false, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
