package http

import (
	"context"
	"net/http"
	"time"

	"spendwise/internal/auth"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/services"
)

const readyTimeout = 3 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the store answers. Without a store that can
// be pinged the server is always ready, since callers get sample data.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.deps.Health.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Recurring.List(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var in services.NewRecurringInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	rec, persisted, err := s.deps.Recurring.Create(r.Context(), auth.UserFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{Record: rec, Persisted: persisted})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthParams(r, core.DateOf(s.deps.Clock.Now()))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	view, err := s.deps.Expenses.ListMonth(r.Context(), auth.UserFromContext(r.Context()), year, month)
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in services.NewExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	e, persisted, err := s.deps.Expenses.Create(r.Context(), auth.UserFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{Record: e, Persisted: persisted})
}

// handleExportExpenses downloads one month of expenses as CSV.
func (s *Server) handleExportExpenses(w http.ResponseWriter, r *http.Request) {
	now := s.deps.Clock.Now()
	year, month, err := parseMonthParams(r, core.DateOf(now))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	view, err := s.deps.Expenses.ListMonth(r.Context(), auth.UserFromContext(r.Context()), year, month)
	if err != nil {
		writeServiceError(w, r, log.OpExport, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+services.ExportFilename(now)+`"`)
	if err := s.deps.Expenses.ExportCSV(w, view.Expenses); err != nil {
		// Headers are gone already; only log.
		log.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Dashboard.Summary(r.Context(), auth.UserFromContext(r.Context()), s.deps.Clock.Now())
	if err != nil {
		writeServiceError(w, r, log.OpSummary, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListTeam(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Team.List(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreateTeamMember(w http.ResponseWriter, r *http.Request) {
	var in services.NewTeamMemberInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	m, persisted, err := s.deps.Team.Create(r.Context(), auth.UserFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{Record: m, Persisted: persisted})
}
