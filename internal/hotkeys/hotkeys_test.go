package hotkeys

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/nantokaworks/challenge-wheel/internal/engine"
	"github.com/nantokaworks/challenge-wheel/internal/ledger"
	"github.com/nantokaworks/challenge-wheel/internal/localdb"
	"github.com/nantokaworks/challenge-wheel/internal/settings"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	localdb.DBClient = nil
	db, err := localdb.SetupDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to setup test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		localdb.DBClient = nil
	})

	sm := settings.NewSettingsManager(db)
	eng := engine.New(nil, ledger.New(), sm, engine.Options{})
	t.Cleanup(eng.Stop)
	return NewDispatcher(eng, sm)
}

func TestDispatch_UnknownAction(t *testing.T) {
	d := newTestDispatcher(t)

	if err := d.Dispatch("doesNotExist"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDispatch_SpinSurfacesEngineError(t *testing.T) {
	d := newTestDispatcher(t)

	// empty registry: no active wheel
	if err := d.Dispatch(ActionSpinWheel); !errors.Is(err, localdb.ErrWheelNotFound) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDispatch_InstanceActionsAreSilentWithoutChallenge(t *testing.T) {
	d := newTestDispatcher(t)

	for _, action := range []Action{ActionProgressUp, ActionProgressDown, ActionChallengeFailed, ActionPauseResume} {
		if err := d.Dispatch(action); err != nil {
			t.Fatalf("action %s should be a silent no-op: %v", action, err)
		}
	}
}

func TestBindings_Defaults(t *testing.T) {
	d := newTestDispatcher(t)

	bindings := d.Bindings()
	want := map[Action]string{
		ActionSpinWheel:       "F1",
		ActionProgressUp:      "F2",
		ActionProgressDown:    "F3",
		ActionChallengeFailed: "F4",
		ActionPauseResume:     "F5",
	}
	for action, combo := range want {
		if bindings[action] != combo {
			t.Fatalf("binding mismatch for %s: got=%s want=%s", action, bindings[action], combo)
		}
	}
}

func TestRebind_Persists(t *testing.T) {
	d := newTestDispatcher(t)

	err := d.Rebind(map[Action]string{
		ActionSpinWheel:   "Ctrl+Shift+S",
		ActionPauseResume: "Space",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bindings := d.Bindings()
	if bindings[ActionSpinWheel] != "Ctrl+Shift+S" {
		t.Fatalf("binding mismatch: got=%s", bindings[ActionSpinWheel])
	}
	if bindings[ActionPauseResume] != "Space" {
		t.Fatalf("binding mismatch: got=%s", bindings[ActionPauseResume])
	}
	// untouched actions keep their defaults
	if bindings[ActionProgressUp] != "F2" {
		t.Fatalf("binding mismatch: got=%s", bindings[ActionProgressUp])
	}
}

func TestRebind_AllOrNothing(t *testing.T) {
	d := newTestDispatcher(t)

	err := d.Rebind(map[Action]string{
		ActionSpinWheel:  "F9",
		ActionProgressUp: "NotAKey",
	})
	if err == nil {
		t.Fatalf("invalid combo must reject the batch")
	}

	// the valid half of the batch must not have been applied
	if got := d.Bindings()[ActionSpinWheel]; got != "F1" {
		t.Fatalf("partial rebind applied: got=%s want=F1", got)
	}
}

func TestRebind_UnknownAction(t *testing.T) {
	d := newTestDispatcher(t)

	if err := d.Rebind(map[Action]string{"noSuchAction": "F6"}); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateCombo(t *testing.T) {
	valid := []string{"F1", "F24", "A", "7", "Space", "Escape", "Ctrl+S", "Ctrl+Shift+F5", "Cmd+Up"}
	for _, combo := range valid {
		if err := ValidateCombo(combo); err != nil {
			t.Fatalf("combo %q should be valid: %v", combo, err)
		}
	}

	invalid := []string{"", "F25", "ctrl+S", "Ctrl+", "Foo+S", "a", "Ctrl+Shift"}
	for _, combo := range invalid {
		if err := ValidateCombo(combo); err == nil {
			t.Fatalf("combo %q should be invalid", combo)
		}
	}
}
