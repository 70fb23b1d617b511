package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/r-alnz/Docurate-sub000/internal/auth"
	"github.com/r-alnz/Docurate-sub000/internal/rbac"
	"github.com/r-alnz/Docurate-sub000/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *zap.Logger
	validate   *validator.Validate
}

func NewHTTPServer(service *Service, corsOrigin string, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		logger:     logger,
		validate:   validator.New(),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withRequestID)
	r.Use(s.withCORS)
	r.Use(s.withLogging)

	r.Get("/api/health", s.handleHealth)
	r.Head("/api/health", s.handleHealth)
	r.Get("/api/ready", s.handleReady)
	r.Head("/api/ready", s.handleReady)

	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/refresh", s.handleRefresh)
	r.Post("/api/auth/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/api/auth/profile", s.handleProfile)
		r.Put("/api/auth/change-password", s.handleChangePassword)

		r.Get("/api/search", s.handleSearch)
		r.Post("/api/email/send", s.handleSendEmail)

		r.Get("/api/templates/active", s.handleListActiveTemplates)
		r.Get("/api/templates/decision-tree", s.handleDecisionTree)
		r.Get("/api/templates/headers/{id}", s.handleGetTemplateHeader)
		r.Get("/api/templates/{id}", s.handleGetTemplate)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAction(rbac.ActionManageTemplates))
			r.Get("/api/templates", s.handleListTemplates)
			r.Post("/api/templates", s.handleCreateTemplate)
			r.Put("/api/templates/{id}", s.handleUpdateTemplate)
			r.Delete("/api/templates/{id}", s.handleDeleteTemplate)
			r.Put("/api/templates/recover/{id}", s.handleRecoverTemplate)
			r.Post("/api/templates/{id}/images/{slot}", s.handleSetTemplateImage)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAction(rbac.ActionUseTemplates))
			r.Post("/api/documents", s.handleCreateDocument)
		})
		r.Get("/api/documents/{documentId}", s.handleGetDocument)
		r.Put("/api/documents/{documentId}", s.handleUpdateDocument)
		r.Delete("/api/documents/{documentId}", s.handleDeleteDocument)
		r.Get("/api/documents/user/{userId}", s.handleListDocumentsByUser)
		r.Post("/api/documents/{documentId}/export", s.handleExportDocument)
		r.Post("/api/documents/{documentId}/revisions", s.handleCreateRevision)
		r.Get("/api/documents/{documentId}/revisions", s.handleListRevisions)
		r.Get("/api/documents/{documentId}/revisions/{revisionId}", s.handleGetRevision)
		r.Delete("/api/documents/{documentId}/revisions/{revisionId}", s.handleDeleteRevision)

		r.Group(func(r chi.Router) {
			r.Use(s.requireRoles(rbac.RoleAdmin, rbac.RoleSuperadmin))
			r.Get("/api/users", s.handleListUsers)
			r.Post("/api/users", s.handleCreateUser)
			r.Put("/api/users/{id}", s.handleUpdateUser)
			r.Delete("/api/users/{id}", s.handleDeactivateUser)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAction(rbac.ActionManageAdmins))
			r.Get("/api/organizations", s.handleListOrganizations)
			r.Post("/api/organizations", s.handleCreateOrganization)
			r.Put("/api/organizations/{id}", s.handleUpdateOrganization)
			r.Delete("/api/organizations/{id}", s.handleDeleteOrganization)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAction(rbac.ActionManageUsers))
			r.Post("/api/import/bulk-import", s.handleBulkImport)
		})

		r.Post("/api/removals/remove-request", s.handleCreateRemovalRequest)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAction(rbac.ActionReviewRemovals))
			r.Get("/api/removals", s.handleListRemovalRequests)
			r.Patch("/api/removals/{id}", s.handleSetRemovalRequestStatus)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}
	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

// Middleware

type requestIDKey struct{}
type callerKey struct{}

func (s *HTTPServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID)))
	})
}

func (s *HTTPServer) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", s.corsOrigin)
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		header.Set("Cache-Control", "no-store")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(writer, r)

		requestID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	})
}

// requireAuth resolves the bearer token to a live account and stores it in
// the request context.
func (s *HTTPServer) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		caller, err := s.service.CallerFromToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
				return
			}
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

func (s *HTTPServer) requireAction(action rbac.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rbac.Can(caller(r).Role, action) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *HTTPServer) requireRoles(roles ...rbac.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := caller(r).Role
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		})
	}
}

func caller(r *http.Request) store.User {
	user, _ := r.Context().Value(callerKey{}).(store.User)
	return user
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// Helpers

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// decodeValidBody decodes and then checks struct validate tags, reporting
// failing fields to the client.
func (s *HTTPServer) decodeValidBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeBody(r, target); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return false
	}
	if err := s.validate.Struct(target); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			fields := make([]string, 0, len(invalid))
			for _, f := range invalid {
				fields = append(fields, f.Field())
			}
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid request fields", fields)
			return false
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body", nil)
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, store.ErrDuplicateEmail) {
		return http.StatusConflict, "CONFLICT", "Email already registered", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
