package hotkeys

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nantokaworks/challenge-wheel/internal/engine"
	"github.com/nantokaworks/challenge-wheel/internal/settings"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"go.uber.org/zap"
)

// Action is one of the five logical hotkey actions.
type Action string

const (
	ActionSpinWheel       Action = "spinWheel"
	ActionProgressUp      Action = "progressUp"
	ActionProgressDown    Action = "progressDown"
	ActionChallengeFailed Action = "challengeFailed"
	ActionPauseResume     Action = "pauseResume"
)

var ErrUnknownAction = errors.New("unknown hotkey action")

var keyPattern = regexp.MustCompile(`^(F([1-9]|1[0-9]|2[0-4])|[A-Z0-9]|Space|Tab|Escape|Up|Down|Left|Right|Plus|Minus)$`)

var modifiers = map[string]bool{
	"Ctrl":    true,
	"Control": true,
	"Alt":     true,
	"Shift":   true,
	"Super":   true,
	"Cmd":     true,
}

// Dispatcher routes hotkey actions into the challenge engine and manages
// the persisted bindings. The desktop shell registers the OS-level
// shortcuts from the persisted set and calls Dispatch on press.
type Dispatcher struct {
	engine   *engine.Engine
	settings *settings.SettingsManager
}

func NewDispatcher(e *engine.Engine, sm *settings.SettingsManager) *Dispatcher {
	return &Dispatcher{engine: e, settings: sm}
}

// Dispatch executes the engine operation bound to the action. Engine
// usage-guard rejections are returned so the shell can show a notice;
// missing-instance operations are silent no-ops.
func (d *Dispatcher) Dispatch(action Action) error {
	logger.Debug("Hotkey dispatched", zap.String("action", string(action)))

	switch action {
	case ActionSpinWheel:
		return d.engine.SpinActiveWheel()
	case ActionProgressUp:
		d.engine.AdjustProgress(1)
	case ActionProgressDown:
		d.engine.AdjustProgress(-1)
	case ActionChallengeFailed:
		d.engine.Fail()
	case ActionPauseResume:
		d.engine.TogglePause()
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	return nil
}

// Bindings returns the current action -> key-combo map.
func (d *Dispatcher) Bindings() map[Action]string {
	bindings := map[Action]string{}
	for action, combo := range d.settings.GetHotkeys() {
		bindings[Action(action)] = combo
	}
	return bindings
}

// Rebind replaces the full binding set atomically: every combo is
// validated before any is persisted, mirroring the shell's
// unregister-all-then-re-register contract. Actions missing from the map
// keep their current binding.
func (d *Dispatcher) Rebind(bindings map[Action]string) error {
	keys := map[Action]string{}
	for _, entry := range settings.HotkeyActions {
		keys[Action(entry.Action)] = entry.Key
	}

	for action, combo := range bindings {
		if _, ok := keys[action]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownAction, action)
		}
		if err := ValidateCombo(combo); err != nil {
			return fmt.Errorf("invalid binding for %s: %w", action, err)
		}
	}

	for action, combo := range bindings {
		if err := d.settings.SetSetting(keys[action], combo); err != nil {
			return err
		}
	}

	logger.Info("Hotkey bindings updated", zap.Int("count", len(bindings)))
	return nil
}

// ValidateCombo checks a key-combo string: zero or more modifiers joined
// with '+', ending in a single key ("F1", "Ctrl+Shift+S").
func ValidateCombo(combo string) error {
	parts := strings.Split(strings.TrimSpace(combo), "+")
	if len(parts) == 0 || parts[0] == "" {
		return errors.New("empty key combo")
	}

	for _, part := range parts[:len(parts)-1] {
		if !modifiers[part] {
			return fmt.Errorf("unknown modifier %q", part)
		}
	}

	key := parts[len(parts)-1]
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}
