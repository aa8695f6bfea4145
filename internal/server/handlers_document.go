package server

import (
	"encoding/json"
	"net/http"
)

// OpenDocumentRequest is the body for POST /document.
type OpenDocumentRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// DocumentInfo describes one open document.
type DocumentInfo struct {
	Name    string `json:"name"`
	Version int64  `json:"version"`
}

// listDocuments handles GET /document
func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	names := s.workspace.Names()
	infos := make([]DocumentInfo, 0, len(names))
	for _, name := range names {
		if buf, ok := s.workspace.Buffer(name); ok {
			infos = append(infos, DocumentInfo{Name: name, Version: buf.Version()})
		}
	}
	writeJSON(w, http.StatusOK, infos)
}

// openDocument handles POST /document
func (s *Server) openDocument(w http.ResponseWriter, r *http.Request) {
	var req OpenDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "name is required")
		return
	}

	buf := s.workspace.Open(req.Name, req.Content)
	writeJSON(w, http.StatusOK, DocumentInfo{Name: buf.Name(), Version: buf.Version()})
}

// readDocument handles GET /document/content?name=
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	buf, ok := s.workspace.Buffer(name)
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "document not open")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    buf.Name(),
		"version": buf.Version(),
		"content": buf.Content(),
	})
}

// closeDocument handles DELETE /document?name=
func (s *Server) closeDocument(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "name is required")
		return
	}
	s.workspace.Close(name)
	w.WriteHeader(http.StatusNoContent)
}
