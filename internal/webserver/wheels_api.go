package webserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nantokaworks/challenge-wheel/internal/localdb"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"github.com/nantokaworks/challenge-wheel/internal/types"
	"go.uber.org/zap"
)

// handleWheels handles GET and POST for the wheel list
func handleWheels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		handleGetWheels(w, r)
	case http.MethodPost:
		handleCreateWheel(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func handleGetWheels(w http.ResponseWriter, r *http.Request) {
	wheels, err := localdb.GetAllWheels()
	if err != nil {
		logger.Error("Failed to get wheels", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to get wheels")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": wheels,
	})
}

func handleCreateWheel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Wheel name is required", http.StatusBadRequest)
		return
	}

	wheel := &types.Wheel{Name: req.Name}
	if err := localdb.InsertWheel(wheel); err != nil {
		logger.Error("Failed to create wheel", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to create wheel")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(wheel)
}

// handleActiveWheel handles GET and PUT for the active wheel selection
func handleActiveWheel(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		wheel, err := localdb.GetActiveWheel()
		if err != nil {
			if errors.Is(err, localdb.ErrWheelNotFound) {
				writeJSONError(w, http.StatusNotFound, "No wheels configured")
				return
			}
			logger.Error("Failed to get active wheel", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "Failed to get active wheel")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(wheel)

	case http.MethodPut:
		var req struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := localdb.SetActiveWheelID(req.ID); err != nil {
			if errors.Is(err, localdb.ErrWheelNotFound) {
				writeJSONError(w, http.StatusNotFound, "Wheel not found")
				return
			}
			logger.Error("Failed to set active wheel", zap.Error(err), zap.String("wheel_id", req.ID))
			writeJSONError(w, http.StatusInternalServerError, "Failed to set active wheel")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"active_wheel_id": req.ID})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleWheelByPath routes /api/wheels/{id} and /api/wheels/{id}/challenges[/{challengeID}]
func handleWheelByPath(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/wheels/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		http.Error(w, "Wheel ID required", http.StatusBadRequest)
		return
	}
	wheelID := pathParts[0]

	if len(pathParts) >= 2 && pathParts[1] == "challenges" {
		challengeID := ""
		if len(pathParts) >= 3 {
			challengeID = pathParts[2]
		}
		handleWheelChallenges(w, r, wheelID, challengeID)
		return
	}

	switch r.Method {
	case http.MethodGet:
		handleGetWheel(w, r, wheelID)
	case http.MethodPut:
		handleUpdateWheel(w, r, wheelID)
	case http.MethodDelete:
		handleDeleteWheel(w, r, wheelID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func handleGetWheel(w http.ResponseWriter, r *http.Request, wheelID string) {
	wheel, err := localdb.GetWheel(wheelID)
	if err != nil {
		if errors.Is(err, localdb.ErrWheelNotFound) {
			writeJSONError(w, http.StatusNotFound, "Wheel not found")
			return
		}
		logger.Error("Failed to get wheel", zap.Error(err), zap.String("wheel_id", wheelID))
		writeJSONError(w, http.StatusInternalServerError, "Failed to get wheel")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wheel)
}

func handleUpdateWheel(w http.ResponseWriter, r *http.Request, wheelID string) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Wheel name is required", http.StatusBadRequest)
		return
	}

	if err := localdb.UpdateWheel(wheelID, req.Name); err != nil {
		if errors.Is(err, localdb.ErrWheelNotFound) {
			writeJSONError(w, http.StatusNotFound, "Wheel not found")
			return
		}
		logger.Error("Failed to update wheel", zap.Error(err), zap.String("wheel_id", wheelID))
		writeJSONError(w, http.StatusInternalServerError, "Failed to update wheel")
		return
	}

	handleGetWheel(w, r, wheelID)
}

func handleDeleteWheel(w http.ResponseWriter, r *http.Request, wheelID string) {
	if err := localdb.DeleteWheel(wheelID); err != nil {
		if errors.Is(err, localdb.ErrWheelNotFound) {
			writeJSONError(w, http.StatusNotFound, "Wheel not found")
			return
		}
		logger.Error("Failed to delete wheel", zap.Error(err), zap.String("wheel_id", wheelID))
		writeJSONError(w, http.StatusInternalServerError, "Failed to delete wheel")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleWheelChallenges handles the nested challenge collection of a wheel
func handleWheelChallenges(w http.ResponseWriter, r *http.Request, wheelID, challengeID string) {
	switch {
	case r.Method == http.MethodGet && challengeID == "":
		challenges, err := localdb.GetWheelChallenges(wheelID)
		if err != nil {
			logger.Error("Failed to get challenges", zap.Error(err), zap.String("wheel_id", wheelID))
			writeJSONError(w, http.StatusInternalServerError, "Failed to get challenges")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": challenges,
		})

	case r.Method == http.MethodPost && challengeID == "":
		handleAddChallenge(w, r, wheelID)

	case r.Method == http.MethodPut && challengeID != "":
		handleUpdateChallenge(w, r, wheelID, challengeID)

	case r.Method == http.MethodDelete && challengeID != "":
		if err := localdb.DeleteChallengeFromWheel(wheelID, challengeID); err != nil {
			if errors.Is(err, localdb.ErrChallengeNotFound) {
				writeJSONError(w, http.StatusNotFound, "Challenge not found")
				return
			}
			logger.Error("Failed to delete challenge", zap.Error(err), zap.String("challenge_id", challengeID))
			writeJSONError(w, http.StatusInternalServerError, "Failed to delete challenge")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func decodeChallenge(r *http.Request) (*types.Challenge, error) {
	var c types.Challenge
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return nil, errors.New("invalid request body")
	}
	if strings.TrimSpace(c.Title) == "" {
		return nil, errors.New("challenge title is required")
	}
	if !c.Type.Valid() {
		return nil, errors.New("challenge type must be collect, survive or max")
	}
	if c.Target < 0 {
		return nil, errors.New("target must not be negative")
	}
	if c.TimeLimit < localdb.MinTimeLimitSeconds {
		return nil, localdb.ErrTimeLimitTooShort
	}
	return &c, nil
}

func handleAddChallenge(w http.ResponseWriter, r *http.Request, wheelID string) {
	c, err := decodeChallenge(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := localdb.AddChallengeToWheel(wheelID, c); err != nil {
		if errors.Is(err, localdb.ErrWheelNotFound) {
			writeJSONError(w, http.StatusNotFound, "Wheel not found")
			return
		}
		logger.Error("Failed to add challenge", zap.Error(err), zap.String("wheel_id", wheelID))
		writeJSONError(w, http.StatusInternalServerError, "Failed to add challenge")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

func handleUpdateChallenge(w http.ResponseWriter, r *http.Request, wheelID, challengeID string) {
	c, err := decodeChallenge(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.ID = challengeID

	if err := localdb.UpdateWheelChallenge(wheelID, *c); err != nil {
		if errors.Is(err, localdb.ErrChallengeNotFound) {
			writeJSONError(w, http.StatusNotFound, "Challenge not found")
			return
		}
		logger.Error("Failed to update challenge", zap.Error(err), zap.String("challenge_id", challengeID))
		writeJSONError(w, http.StatusInternalServerError, "Failed to update challenge")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}
