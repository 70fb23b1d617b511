package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var body DocumentInput
	if !s.decodeValidBody(w, r, &body) {
		return
	}
	doc, err := s.service.CreateDocument(r.Context(), caller(r), body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"document": documentPayload(doc)})
}

func (s *HTTPServer) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.GetDocument(r.Context(), caller(r), chi.URLParam(r, "documentId"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": documentDetailPayload(doc)})
}

func (s *HTTPServer) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var body DocumentUpdateInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	doc, err := s.service.UpdateDocument(r.Context(), caller(r), chi.URLParam(r, "documentId"), body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": documentPayload(doc)})
}

func (s *HTTPServer) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteDocument(r.Context(), caller(r), chi.URLParam(r, "documentId")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleListDocumentsByUser(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListDocumentsByUser(r.Context(), caller(r), chi.URLParam(r, "userId"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": documentPayloads(items)})
}

func (s *HTTPServer) handleExportDocument(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.ExportDocument(r.Context(), caller(r), chi.URLParam(r, "documentId"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	w.Header().Set("Content-Type", result.MimeType)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleCreateRevision(w http.ResponseWriter, r *http.Request) {
	var body RevisionInput
	if !s.decodeValidBody(w, r, &body) {
		return
	}
	rev, err := s.service.CreateRevision(r.Context(), caller(r), chi.URLParam(r, "documentId"), body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"revision": revisionPayload(rev)})
}

func (s *HTTPServer) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListRevisions(r.Context(), caller(r), chi.URLParam(r, "documentId"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revisions": revisionSummaryPayloads(items)})
}

func (s *HTTPServer) handleGetRevision(w http.ResponseWriter, r *http.Request) {
	rev, err := s.service.GetRevision(r.Context(), caller(r), chi.URLParam(r, "documentId"), chi.URLParam(r, "revisionId"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revision": revisionPayload(rev)})
}

func (s *HTTPServer) handleDeleteRevision(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteRevision(r.Context(), caller(r), chi.URLParam(r, "documentId"), chi.URLParam(r, "revisionId")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
