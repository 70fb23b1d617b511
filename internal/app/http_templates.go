package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/r-alnz/Docurate-sub000/internal/store"
)

func (s *HTTPServer) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListTemplates(r.Context(), caller(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templatePayloads(items)})
}

func (s *HTTPServer) handleListActiveTemplates(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListActiveTemplates(r.Context(), caller(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templatePayloads(items)})
}

func (s *HTTPServer) handleDecisionTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.service.DecisionTree(r.Context(), caller(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *HTTPServer) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.service.GetTemplate(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	payload := templatePayload(tpl)
	headerURL, footerURL := s.service.TemplateImageURLs(r.Context(), tpl)
	payload["headerImageUrl"] = headerURL
	payload["footerImageUrl"] = footerURL
	writeJSON(w, http.StatusOK, map[string]any{"template": payload})
}

func (s *HTTPServer) handleGetTemplateHeader(w http.ResponseWriter, r *http.Request) {
	header, err := s.service.GetTemplateHeader(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"template": templateHeaderPayload(header)})
}

func (s *HTTPServer) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var body TemplateInput
	if !s.decodeValidBody(w, r, &body) {
		return
	}
	tpl, err := s.service.CreateTemplate(r.Context(), caller(r), body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"template": templatePayload(tpl)})
}

func (s *HTTPServer) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var body TemplateUpdateInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	tpl, err := s.service.UpdateTemplate(r.Context(), caller(r), chi.URLParam(r, "id"), body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"template": templatePayload(tpl)})
}

// Deleting archives the template. The row stays for the documents that were
// instantiated from it.
func (s *HTTPServer) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.service.SetTemplateStatus(r.Context(), caller(r), chi.URLParam(r, "id"), store.StatusInactive); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleRecoverTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.service.SetTemplateStatus(r.Context(), caller(r), chi.URLParam(r, "id"), store.StatusActive); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleSetTemplateImage(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "image file is required", nil)
		return
	}
	defer file.Close()

	url, err := s.service.SetTemplateImage(
		r.Context(),
		caller(r),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "slot"),
		file,
		header.Size,
		header.Header.Get("Content-Type"),
	)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": url})
}
