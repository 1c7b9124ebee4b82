package http

import (
	"log/slog"
	"net/http"

	"monetra/internal/core"
	"monetra/internal/currency"
)

type settingsResponse struct {
	core.AppSettings
	CurrencySymbol string `json:"currencySymbol"`
}

// handleSettings reads and updates the user preference record. PUT accepts
// a partial record and shallow-merges it.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.settingsPayload())
	case http.MethodPut:
		s.updateSettings(w, r)
	default:
		w.Header().Set("Allow", "GET, PUT")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch core.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.settings.Update(r.Context(), patch); err != nil {
		slog.ErrorContext(r.Context(), "Settings update failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	writeJSON(w, http.StatusOK, s.settingsPayload())
}

func (s *Server) settingsPayload() settingsResponse {
	current := s.settings.Settings()
	return settingsResponse{
		AppSettings:    current,
		CurrencySymbol: currency.Symbol(current.Currency),
	}
}
