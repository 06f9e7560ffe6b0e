package webserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nantokaworks/challenge-wheel/internal/localdb"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"go.uber.org/zap"
)

// handleStats returns today's session totals and lifetime totals.
func handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, lifetime, err := deps.Ledger.Stats()
	if err != nil {
		logger.Error("Failed to get stats", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to get stats")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"session": session,
		"total":   lifetime,
	})
}

// handleDonations returns all sessions with their donations, oldest
// session first.
func handleDonations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions, err := deps.Ledger.Sessions()
	if err != nil {
		logger.Error("Failed to get donation history", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to get donation history")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": sessions,
	})
}

// handleDonationByPath handles DELETE /api/donations/{id}
func handleDonationByPath(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/donations/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "Donation ID required", http.StatusBadRequest)
		return
	}

	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := deps.Ledger.DeleteDonation(id); err != nil {
		if errors.Is(err, localdb.ErrDonationNotFound) {
			writeJSONError(w, http.StatusNotFound, "Donation not found")
			return
		}
		logger.Error("Failed to delete donation", zap.Error(err), zap.String("donation_id", id))
		writeJSONError(w, http.StatusInternalServerError, "Failed to delete donation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDonationsExport streams the full history as a CSV download.
func handleDonationsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filename := fmt.Sprintf("spenden-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := deps.Ledger.ExportCSV(w); err != nil {
		// Headers already sent, just log
		logger.Error("Failed to export donations", zap.Error(err))
	}
}

// handleSessionReset clears today's session donations.
func handleSessionReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := deps.Ledger.ResetTodaySession(); err != nil {
		logger.Error("Failed to reset session", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to reset session")
		return
	}

	session, lifetime, err := deps.Ledger.Stats()
	if err != nil {
		logger.Error("Failed to get stats after reset", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to get stats")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"session": session,
		"total":   lifetime,
	})
}
