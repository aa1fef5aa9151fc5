package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docpanel-ai/docpanel/internal/config"
	"github.com/docpanel-ai/docpanel/internal/core"
)

// startAnalysisRequest is the body of POST /api/v1/analyses.
type startAnalysisRequest struct {
	Document  string `json:"document" validate:"required"`
	Questions string `json:"questions" validate:"required"`
}

type startAnalysisResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type resultsResponse struct {
	Session core.SessionView `json:"session"`
	Report  *core.Report     `json:"report,omitempty"`
}

type listResponse struct {
	Sessions []core.SessionView `json:"sessions"`
}

func (s *Server) handleStartAnalysis(w http.ResponseWriter, r *http.Request) {
	var req startAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.ErrValidation("INVALID_REQUEST_BODY", "request body must be JSON"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, core.ErrValidation("INVALID_REQUEST", err.Error()))
		return
	}

	qs, err := config.LoadQuestionSet(req.Questions)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := s.controller.StartAnalysis(r.Context(), req.Document, qs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, startAnalysisResponse{
		SessionID: string(id),
		Status:    string(core.SessionStatusActive),
	})
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	views, err := s.controller.List(r.Context(), 100)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Sessions: views})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := core.SessionID(chi.URLParam(r, "id"))

	view, err := s.controller.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleGetResults serves partial results for live and stopped sessions and
// the final report for completed ones. A failed session returns its view
// with error detail rather than an opaque failure.
func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	id := core.SessionID(chi.URLParam(r, "id"))

	report, view, err := s.controller.Results(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{Session: view, Report: report})
}

func (s *Server) handleStopAnalysis(w http.ResponseWriter, r *http.Request) {
	id := core.SessionID(chi.URLParam(r, "id"))

	if err := s.controller.Stop(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"session_id": string(id),
		"status":     "stopping",
	})
}
