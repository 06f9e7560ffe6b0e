package webserver

import (
	"encoding/json"
	"net/http"

	"github.com/nantokaworks/challenge-wheel/internal/hotkeys"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"go.uber.org/zap"
)

// handleSettings handles GET (all settings) and PUT (partial update).
func handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		all, err := deps.Settings.GetAllSettings()
		if err != nil {
			logger.Error("Failed to get settings", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "Failed to get settings")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": all,
		})

	case http.MethodPut:
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if len(req) == 0 {
			http.Error(w, "No settings provided", http.StatusBadRequest)
			return
		}

		for key, value := range req {
			if err := deps.Settings.SetSetting(key, value); err != nil {
				logger.Warn("Rejected setting update", zap.String("key", key), zap.Error(err))
				writeJSONError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		all, err := deps.Settings.GetAllSettings()
		if err != nil {
			logger.Error("Failed to get settings", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "Failed to get settings")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": all,
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHotkeys handles GET and PUT for the hotkey bindings.
func handleHotkeys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": deps.Hotkeys.Bindings(),
		})

	case http.MethodPut:
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		bindings := make(map[hotkeys.Action]string, len(req))
		for action, combo := range req {
			bindings[hotkeys.Action(action)] = combo
		}

		// Rebind is all-or-nothing, a single bad combo rejects the batch.
		if err := deps.Hotkeys.Rebind(bindings); err != nil {
			logger.Warn("Rejected hotkey update", zap.Error(err))
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": deps.Hotkeys.Bindings(),
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
