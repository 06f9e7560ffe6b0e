package settings

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"go.uber.org/zap"
)

type SettingType string

const (
	SettingTypeNormal SettingType = "normal"
	// SettingTypeState marks internal bookkeeping entries (active wheel id
	// etc.) that are hidden from the settings UI.
	SettingTypeState SettingType = "state"
)

type Setting struct {
	Key         string      `json:"key"`
	Value       string      `json:"value"`
	Type        SettingType `json:"type"`
	Required    bool        `json:"required"`
	Description string      `json:"description"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type SettingsManager struct {
	db *sql.DB
}

func NewSettingsManager(db *sql.DB) *SettingsManager {
	return &SettingsManager{db: db}
}

// 設定の定義
var DefaultSettings = map[string]Setting{
	// 寄付設定
	"DONATION_AMOUNT": {
		Key: "DONATION_AMOUNT", Value: "5.00", Type: SettingTypeNormal, Required: true,
		Description: "Base donation amount per failed challenge",
	},
	"SUPER_CHANCE": {
		Key: "SUPER_CHANCE", Value: "10", Type: SettingTypeNormal, Required: true,
		Description: "Super challenge probability in percent (0-100)",
	},

	// 演出設定
	"ANIMATION_DURATION": {
		Key: "ANIMATION_DURATION", Value: "3.0", Type: SettingTypeNormal, Required: false,
		Description: "Wheel spin animation duration in seconds",
	},
	"RESULT_DISPLAY_DURATION": {
		Key: "RESULT_DISPLAY_DURATION", Value: "10", Type: SettingTypeNormal, Required: false,
		Description: "How long the result overlay stays visible (seconds)",
	},

	// サウンド設定
	"SPIN_SOUND_TYPE": {
		Key: "SPIN_SOUND_TYPE", Value: "ambient", Type: SettingTypeNormal, Required: false,
		Description: "Sound played while the wheel spins",
	},
	"PROGRESS_SOUND_TYPE": {
		Key: "PROGRESS_SOUND_TYPE", Value: "beep", Type: SettingTypeNormal, Required: false,
		Description: "Sound played on progress changes",
	},
	"WARNING_SOUND_TYPE": {
		Key: "WARNING_SOUND_TYPE", Value: "warning", Type: SettingTypeNormal, Required: false,
		Description: "Sound played when the timer runs low",
	},

	// ホットキー設定
	"HOTKEY_SPIN_WHEEL": {
		Key: "HOTKEY_SPIN_WHEEL", Value: "F1", Type: SettingTypeNormal, Required: false,
		Description: "Global hotkey: spin the active wheel",
	},
	"HOTKEY_PROGRESS_UP": {
		Key: "HOTKEY_PROGRESS_UP", Value: "F2", Type: SettingTypeNormal, Required: false,
		Description: "Global hotkey: increment progress",
	},
	"HOTKEY_PROGRESS_DOWN": {
		Key: "HOTKEY_PROGRESS_DOWN", Value: "F3", Type: SettingTypeNormal, Required: false,
		Description: "Global hotkey: decrement progress",
	},
	"HOTKEY_CHALLENGE_FAILED": {
		Key: "HOTKEY_CHALLENGE_FAILED", Value: "F4", Type: SettingTypeNormal, Required: false,
		Description: "Global hotkey: fail the running challenge",
	},
	"HOTKEY_PAUSE_RESUME": {
		Key: "HOTKEY_PAUSE_RESUME", Value: "F5", Type: SettingTypeNormal, Required: false,
		Description: "Global hotkey: pause or resume the timer",
	},

	// サーバー設定
	"SERVER_PORT": {
		Key: "SERVER_PORT", Value: "8080", Type: SettingTypeNormal, Required: false,
		Description: "Web server port for the OBS overlay",
	},
	"OVERLAY_DEBUG_ENABLED": {
		Key: "OVERLAY_DEBUG_ENABLED", Value: "false", Type: SettingTypeNormal, Required: false,
		Description: "Enable debug panel in overlay",
	},

	// ウィンドウ設定
	"WINDOW_X": {
		Key: "WINDOW_X", Value: "", Type: SettingTypeNormal, Required: false,
		Description: "Main window X position",
	},
	"WINDOW_Y": {
		Key: "WINDOW_Y", Value: "", Type: SettingTypeNormal, Required: false,
		Description: "Main window Y position",
	},
	"WINDOW_WIDTH": {
		Key: "WINDOW_WIDTH", Value: "1400", Type: SettingTypeNormal, Required: false,
		Description: "Main window width",
	},
	"WINDOW_HEIGHT": {
		Key: "WINDOW_HEIGHT", Value: "900", Type: SettingTypeNormal, Required: false,
		Description: "Main window height",
	},
	"OVERLAY_SCREEN_INDEX": {
		Key: "OVERLAY_SCREEN_INDEX", Value: "0", Type: SettingTypeNormal, Required: false,
		Description: "Screen index the overlay window covers",
	},
}

// GetSetting returns the stored value for key, falling back to the default.
func (sm *SettingsManager) GetSetting(key string) (string, error) {
	var value string
	err := sm.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		if defaultSetting, exists := DefaultSettings[key]; exists {
			return defaultSetting.Value, nil
		}
		return "", fmt.Errorf("setting not found: %s", key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting validates and stores one value.
func (sm *SettingsManager) SetSetting(key, value string) error {
	if err := ValidateSetting(key, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	settingType := SettingTypeNormal
	required := false
	description := ""
	if def, exists := DefaultSettings[key]; exists {
		settingType = def.Type
		required = def.Required
		description = def.Description
	}

	_, err := sm.db.Exec(`
		INSERT INTO settings (key, value, setting_type, is_required, description, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, string(settingType), required, description)
	if err != nil {
		logger.Error("Failed to set setting", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// GetAllSettings returns every known setting, DB values merged over
// defaults. Internal state entries are excluded.
func (sm *SettingsManager) GetAllSettings() (map[string]Setting, error) {
	rows, err := sm.db.Query(`
		SELECT key, value, setting_type, is_required, COALESCE(description, ''), updated_at
		FROM settings
		WHERE setting_type != 'state'
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := map[string]Setting{}
	for rows.Next() {
		var s Setting
		var settingType string
		if err := rows.Scan(&s.Key, &s.Value, &settingType, &s.Required, &s.Description, &s.UpdatedAt); err != nil {
			logger.Error("Failed to scan setting", zap.Error(err))
			continue
		}
		s.Type = SettingType(settingType)
		settings[s.Key] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settings: %w", err)
	}

	// DBにない設定はデフォルト値で補完
	for key, defaultSetting := range DefaultSettings {
		if _, exists := settings[key]; !exists {
			settings[key] = defaultSetting
		}
	}

	return settings, nil
}

// InitializeDefaultSettings writes defaults for keys not yet present.
func (sm *SettingsManager) InitializeDefaultSettings() error {
	for key, setting := range DefaultSettings {
		var existingKey string
		if err := sm.db.QueryRow("SELECT key FROM settings WHERE key = ?", key).Scan(&existingKey); err == nil {
			continue
		}
		if err := sm.SetSetting(key, setting.Value); err != nil {
			return fmt.Errorf("failed to initialize setting %s: %w", key, err)
		}
	}
	return nil
}

// バリデーション
func ValidateSetting(key, value string) error {
	switch key {
	case "DONATION_AMOUNT":
		if val, err := strconv.ParseFloat(value, 64); err != nil || val < 0 {
			return fmt.Errorf("must be a non-negative amount")
		}
	case "SUPER_CHANCE":
		if val, err := strconv.Atoi(value); err != nil || val < 0 || val > 100 {
			return fmt.Errorf("must be integer between 0 and 100")
		}
	case "ANIMATION_DURATION":
		if val, err := strconv.ParseFloat(value, 64); err != nil || val < 0 || val > 60 {
			return fmt.Errorf("must be between 0 and 60 seconds")
		}
	case "RESULT_DISPLAY_DURATION":
		if val, err := strconv.Atoi(value); err != nil || val < 1 || val > 120 {
			return fmt.Errorf("must be integer between 1 and 120 seconds")
		}
	case "SERVER_PORT":
		if val, err := strconv.Atoi(value); err != nil || val < 1 || val > 65535 {
			return fmt.Errorf("must be a valid port number")
		}
	case "OVERLAY_SCREEN_INDEX":
		if val, err := strconv.Atoi(value); err != nil || val < 0 {
			return fmt.Errorf("must be a non-negative integer")
		}
	case "OVERLAY_DEBUG_ENABLED":
		if value != "true" && value != "false" {
			return fmt.Errorf("must be 'true' or 'false'")
		}
	}
	return nil
}
