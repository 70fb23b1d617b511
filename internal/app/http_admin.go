package app

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/r-alnz/Docurate-sub000/internal/search"
	"github.com/r-alnz/Docurate-sub000/internal/store"
)

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers(r.Context(), caller(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(users))
	for _, user := range users {
		payload = append(payload, userPayload(user))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": payload})
}

func (s *HTTPServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body UserInput
	if !s.decodeValidBody(w, r, &body) {
		return
	}
	user, err := s.service.CreateUser(r.Context(), caller(r), body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": userPayload(user)})
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var body UserUpdateInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	user, err := s.service.UpdateUser(r.Context(), caller(r), chi.URLParam(r, "id"), body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": userPayload(user)})
}

func (s *HTTPServer) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeactivateUser(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.service.ListOrganizations(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": organizationPayloads(orgs)})
}

func (s *HTTPServer) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	org, err := s.service.CreateOrganization(r.Context(), body.Name)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"organization": organizationPayload(org)})
}

func (s *HTTPServer) handleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	org, err := s.service.UpdateOrganization(r.Context(), chi.URLParam(r, "id"), body.Name)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organization": organizationPayload(org)})
}

func (s *HTTPServer) handleDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteOrganization(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Bulk import accepts a multipart form with an XLSX roster under "file".
func (s *HTTPServer) handleBulkImport(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "file is required", nil)
		return
	}
	defer file.Close()

	result, err := s.service.BulkImportStudents(r.Context(), caller(r), file)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleCreateRemovalRequest(w http.ResponseWriter, r *http.Request) {
	var body RemovalInput
	if !s.decodeValidBody(w, r, &body) {
		return
	}
	req, err := s.service.CreateRemovalRequest(r.Context(), caller(r), body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"request": removalPayload(req)})
}

func (s *HTTPServer) handleListRemovalRequests(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListRemovalRequests(r.Context(), caller(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": removalPayloads(items)})
}

func (s *HTTPServer) handleSetRemovalRequestStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	req, err := s.service.SetRemovalRequestStatus(r.Context(), caller(r), chi.URLParam(r, "id"), store.RemovalStatus(body.Status))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": removalPayload(req)})
}

func (s *HTTPServer) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		Body    string   `json:"body"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.SendEmail(r.Context(), caller(r), body.To, body.Subject, body.Body); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	filterType := search.ResultType(strings.TrimSpace(r.URL.Query().Get("type")))
	switch filterType {
	case "", search.ResultDocument, search.ResultTemplate:
	default:
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be document or template", nil)
		return
	}
	q := search.Query{
		Text:       strings.TrimSpace(r.URL.Query().Get("q")),
		FilterType: filterType,
		Limit:      20,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		q.Limit = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
			return
		}
		q.Offset = parsed
	}
	writeJSON(w, http.StatusOK, s.service.Search(r.Context(), caller(r), q))
}
