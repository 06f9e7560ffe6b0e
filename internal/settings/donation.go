package settings

import (
	"strconv"
	"time"
)

// DonationSettings is the typed view the challenge engine consumes.
type DonationSettings struct {
	BaseAmount            float64
	SuperChance           int // percent, 0-100
	AnimationDuration     time.Duration
	ResultDisplayDuration time.Duration
}

// GetDonationSettings resolves the engine-facing settings. Unparseable
// stored values fall back to the defaults.
func (sm *SettingsManager) GetDonationSettings() DonationSettings {
	ds := DonationSettings{
		BaseAmount:            5.00,
		SuperChance:           10,
		AnimationDuration:     3 * time.Second,
		ResultDisplayDuration: 10 * time.Second,
	}

	if v, err := sm.GetSetting("DONATION_AMOUNT"); err == nil {
		if amount, perr := strconv.ParseFloat(v, 64); perr == nil && amount >= 0 {
			ds.BaseAmount = amount
		}
	}
	if v, err := sm.GetSetting("SUPER_CHANCE"); err == nil {
		if chance, perr := strconv.Atoi(v); perr == nil && chance >= 0 && chance <= 100 {
			ds.SuperChance = chance
		}
	}
	if v, err := sm.GetSetting("ANIMATION_DURATION"); err == nil {
		if secs, perr := strconv.ParseFloat(v, 64); perr == nil && secs >= 0 {
			ds.AnimationDuration = time.Duration(secs * float64(time.Second))
		}
	}
	if v, err := sm.GetSetting("RESULT_DISPLAY_DURATION"); err == nil {
		if secs, perr := strconv.Atoi(v); perr == nil && secs > 0 {
			ds.ResultDisplayDuration = time.Duration(secs) * time.Second
		}
	}

	return ds
}

// HotkeyActions maps logical hotkey actions to their settings keys, in a
// stable order.
var HotkeyActions = []struct {
	Action string
	Key    string
}{
	{"spinWheel", "HOTKEY_SPIN_WHEEL"},
	{"progressUp", "HOTKEY_PROGRESS_UP"},
	{"progressDown", "HOTKEY_PROGRESS_DOWN"},
	{"challengeFailed", "HOTKEY_CHALLENGE_FAILED"},
	{"pauseResume", "HOTKEY_PAUSE_RESUME"},
}

// GetHotkeys returns the current action -> key-combo bindings.
func (sm *SettingsManager) GetHotkeys() map[string]string {
	bindings := map[string]string{}
	for _, entry := range HotkeyActions {
		if v, err := sm.GetSetting(entry.Key); err == nil {
			bindings[entry.Action] = v
		}
	}
	return bindings
}
