package http

import (
	"net/http"
	"time"
)

type summaryResponse struct {
	TotalIncome  float64 `json:"totalIncome"`
	TotalExpense float64 `json:"totalExpense"`
	NetBalance   float64 `json:"netBalance"`
	Currency     string  `json:"currency"`
}

// handleSummary returns cache-wide totals in the display currency.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	conv := s.converter()
	target := s.displayCurrency(r)

	resp := summaryResponse{
		TotalIncome:  s.ledger.TotalIncome(conv, target),
		TotalExpense: s.ledger.TotalExpense(conv, target),
		NetBalance:   s.ledger.Balance(conv, target),
		Currency:     s.reportedCurrency(target),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, s.ledger.CategorySummary(s.converter(), s.displayCurrency(r)))
}

func (s *Server) handleWeeklyTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, s.ledger.WeeklyTrend(s.converter(), s.displayCurrency(r)))
}

// handleReport assembles the full report payload. The period label defaults
// to the current month.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = time.Now().Format("January 2006")
	}

	writeJSON(w, http.StatusOK, s.ledger.BuildReport(period, s.converter(), s.displayCurrency(r)))
}

// reportedCurrency mirrors the conversion policy: without a converter or an
// explicit target, amounts stay in the ledger base.
func (s *Server) reportedCurrency(target string) string {
	if s.rates == nil || target == "" {
		return s.ledger.BaseCurrency()
	}
	return target
}
