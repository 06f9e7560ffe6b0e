package webserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nantokaworks/challenge-wheel/internal/engine"
	"github.com/nantokaworks/challenge-wheel/internal/hotkeys"
	"github.com/nantokaworks/challenge-wheel/internal/localdb"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"go.uber.org/zap"
)

// handleChallengeState returns the current engine state and, when a
// challenge is running, its live snapshot.
func handleChallengeState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, active := deps.Engine.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"state":     state,
		"challenge": active,
	})
}

// writeEngineError maps engine guard errors to HTTP statuses
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrChallengeActive),
		errors.Is(err, engine.ErrWheelSpinning),
		errors.Is(err, engine.ErrShowingResult):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrNoChallenges),
		errors.Is(err, localdb.ErrWheelNotFound):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Error("Failed to spin wheel", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to spin wheel")
	}
}

func handleChallengeSpin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		WheelID string `json:"wheel_id"`
	}
	// Body is optional; an empty body spins the active wheel.
	_ = json.NewDecoder(r.Body).Decode(&req)

	var err error
	if req.WheelID != "" {
		err = deps.Engine.Spin(req.WheelID)
	} else {
		err = deps.Engine.SpinActiveWheel()
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"state": string(deps.Engine.State())})
}

func handleChallengeProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Delta == 0 {
		http.Error(w, "Delta must not be zero", http.StatusBadRequest)
		return
	}

	deps.Engine.AdjustProgress(req.Delta)

	state, active := deps.Engine.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"state":     state,
		"challenge": active,
	})
}

func handleChallengePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	deps.Engine.TogglePause()

	state, active := deps.Engine.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"state":     state,
		"challenge": active,
	})
}

func handleChallengeFail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	deps.Engine.Fail()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"state": string(deps.Engine.State())})
}

func handleChallengeComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	deps.Engine.Complete()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"state": string(deps.Engine.State())})
}

// handleHotkeyDispatch lets the frontend route captured key presses to
// their configured actions.
func handleHotkeyDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := deps.Hotkeys.Dispatch(hotkeys.Action(req.Action)); err != nil {
		if errors.Is(err, hotkeys.ErrUnknownAction) {
			http.Error(w, "Unknown action", http.StatusBadRequest)
			return
		}
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"state": string(deps.Engine.State())})
}
