package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codestream-ai/codestream/internal/edit"
	"github.com/codestream-ai/codestream/pkg/types"
)

// sendEditRequest handles POST /session/{sessionID}/edit
func (s *Server) sendEditRequest(w http.ResponseWriter, r *http.Request) {
	var req types.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	req.SessionID = chi.URLParam(r, "sessionID")

	handle, err := s.coordinator.SendEditRequest(r.Context(), req)
	switch {
	case errors.Is(err, edit.ErrInvalidRequestShape):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	case errors.Is(err, edit.ErrRequestInFlight):
		writeError(w, http.StatusConflict, ErrCodeRequestInFlight, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"requestID": handle.ID()})
}

// getEditRanges handles GET /edit/ranges?document=
func (s *Server) getEditRanges(w http.ResponseWriter, r *http.Request) {
	ranges := s.coordinator.EditRangesInProgress(r.URL.Query().Get("document"))
	if ranges == nil {
		ranges = []types.DocumentRange{}
	}
	writeJSON(w, http.StatusOK, ranges)
}

// getProgress handles GET /edit/progress
func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coordinator.Progress())
}

// ConfirmRequest is the body for POST /edit/confirm.
type ConfirmRequest struct {
	Document string `json:"document"`
	Accept   bool   `json:"accept"`
}

// confirmEdits handles POST /edit/confirm
func (s *Server) confirmEdits(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Document == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "document is required")
		return
	}

	if err := s.coordinator.ConfirmEdits(r.Context(), req.Document, req.Accept); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getConfig handles GET /config
func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.options.Options())
}

// updateConfig handles PATCH /config
func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	opts := s.options.Options()
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	s.options.SetOptions(opts)
	writeJSON(w, http.StatusOK, s.options.Options())
}
