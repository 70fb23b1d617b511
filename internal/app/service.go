package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/r-alnz/Docurate-sub000/internal/assets"
	"github.com/r-alnz/Docurate-sub000/internal/auth"
	"github.com/r-alnz/Docurate-sub000/internal/config"
	"github.com/r-alnz/Docurate-sub000/internal/credentials"
	"github.com/r-alnz/Docurate-sub000/internal/email"
	"github.com/r-alnz/Docurate-sub000/internal/rbac"
	"github.com/r-alnz/Docurate-sub000/internal/search"
	"github.com/r-alnz/Docurate-sub000/internal/store"
)

// Session is the token pair handed out at login and refresh.
type Session struct {
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
	User         store.User
}

// dataStore is the persistence surface the service depends on. Tests swap
// in a function-field fake.
type dataStore interface {
	Ping(ctx context.Context) error

	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) error
	UpdateUser(ctx context.Context, userID string, update store.UserUpdate) error
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	ListUsers(ctx context.Context, orgID string, roles []rbac.Role) ([]store.User, error)

	GetOrganization(ctx context.Context, orgID string) (store.Organization, error)
	ListOrganizations(ctx context.Context) ([]store.Organization, error)
	CreateOrganization(ctx context.Context, org store.Organization) error
	UpdateOrganization(ctx context.Context, orgID, name string) error
	DeleteOrganization(ctx context.Context, orgID string) error

	GetTemplate(ctx context.Context, templateID string) (store.Template, error)
	ListTemplates(ctx context.Context, filter store.TemplateFilter) ([]store.Template, error)
	ListTemplateHeaders(ctx context.Context, filter store.TemplateFilter) ([]store.TemplateHeader, error)
	CreateTemplate(ctx context.Context, tpl store.Template) error
	UpdateTemplate(ctx context.Context, templateID string, update store.TemplateUpdate) error
	SetTemplateStatus(ctx context.Context, templateID string, status store.Status) error

	CreateDocument(ctx context.Context, doc store.Document) error
	GetDocument(ctx context.Context, documentID string) (store.Document, error)
	GetDocumentDetail(ctx context.Context, documentID string) (store.DocumentDetail, error)
	UpdateDocument(ctx context.Context, documentID, title, content string) error
	DeleteDocument(ctx context.Context, documentID string) error
	ListDocumentsByUser(ctx context.Context, userID string) ([]store.Document, error)

	CreateRevision(ctx context.Context, rev store.Revision) error
	ListRevisions(ctx context.Context, documentID string) ([]store.RevisionSummary, error)
	GetRevision(ctx context.Context, documentID, revisionID string) (store.Revision, error)
	DeleteRevision(ctx context.Context, documentID, revisionID string) error

	CreateRemovalRequest(ctx context.Context, req store.RemovalRequest) error
	GetRemovalRequest(ctx context.Context, requestID string) (store.RemovalRequest, error)
	ListRemovalRequests(ctx context.Context, orgID string) ([]store.RemovalRequest, error)
	SetRemovalRequestStatus(ctx context.Context, requestID string, status store.RemovalStatus) error
}

// sessionStore holds refresh sessions. Redis when configured, otherwise the
// Postgres store serves the same interface.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (string, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	store    dataStore
	sessions sessionStore
	search   *search.Service
	assets   *assets.Store
	email    *email.Service
	logger   *zap.Logger

	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	loginURL   string
}

// Options carries the optional collaborators of the service. Sessions
// defaults to the data store when nil.
type Options struct {
	Sessions sessionStore
	Search   *search.Service
	Assets   *assets.Store
	Email    *email.Service
}

func NewService(cfg config.Config, dstore dataStore, logger *zap.Logger, opts Options) *Service {
	sessions := opts.Sessions
	if sessions == nil {
		if ss, ok := dstore.(sessionStore); ok {
			sessions = ss
		}
	}
	return &Service{
		store:      dstore,
		sessions:   sessions,
		search:     opts.Search,
		assets:     opts.Assets,
		email:      opts.Email,
		logger:     logger,
		jwtSecret:  []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		loginURL:   strings.TrimSuffix(cfg.CORSOrigin, "/") + "/login",
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Login verifies credentials and issues a token pair. Inactive accounts are
// rejected with the same error as bad credentials.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (Session, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if emailAddr == "" || password == "" {
		return Session{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "email and password are required", nil)
	}

	user, err := s.store.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", nil)
	}
	if user.Status != store.StatusActive {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", nil)
	}
	if err := credentials.VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", nil)
	}

	return s.issueSession(ctx, user)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued for the same user.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if refreshToken == "" {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token required", nil)
	}
	hash := auth.HashToken(refreshToken)

	userID, err := s.sessions.LookupRefreshSession(ctx, hash)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil || user.Status != store.StatusActive {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
	}

	if err := s.sessions.RevokeRefreshSession(ctx, hash); err != nil {
		s.logger.Warn("revoke rotated refresh session", zap.Error(err))
	}
	return s.issueSession(ctx, user)
}

// Logout revokes the presented refresh token. Unknown tokens succeed.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	token, err := auth.IssueToken(s.jwtSecret, auth.Claims{
		UserID:           user.ID,
		Role:             string(user.Role),
		Organization:     user.OrganizationID,
		Suborganizations: user.Suborgs,
	}, s.accessTTL)
	if err != nil {
		return Session{}, domainError(http.StatusInternalServerError, "SERVER_ERROR", "Could not issue token", nil)
	}

	refreshToken, refreshHash := auth.NewRefreshToken()
	expiresAt := time.Now().Add(s.refreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, refreshHash, user.ID, expiresAt); err != nil {
		return Session{}, domainError(http.StatusInternalServerError, "SERVER_ERROR", "Could not persist session", nil)
	}

	return Session{
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(s.accessTTL),
		User:         user,
	}, nil
}

// CallerFromToken parses a bearer token and re-fetches the live user record.
// Deleted and deactivated accounts fail resolution even with a valid token.
func (s *Service) CallerFromToken(ctx context.Context, token string) (store.User, error) {
	claims, err := auth.ParseToken(s.jwtSecret, token)
	if err != nil {
		return store.User{}, err
	}
	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return store.User{}, auth.ErrInvalidToken
	}
	if user.Status != store.StatusActive {
		return store.User{}, auth.ErrInvalidToken
	}
	return user, nil
}

// ChangePassword verifies the old password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, caller store.User, oldPassword, newPassword string) error {
	if err := credentials.VerifyPassword(caller.PasswordHash, oldPassword); err != nil {
		return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Current password is incorrect", nil)
	}
	hash, err := credentials.HashPassword(newPassword)
	if err != nil {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	if err := s.store.UpdateUserPassword(ctx, caller.ID, hash); err != nil {
		return err
	}
	return nil
}

// SendEmail relays a message from an authenticated caller through SMTP.
func (s *Service) SendEmail(ctx context.Context, caller store.User, to []string, subject, body string) error {
	if s.email == nil || !s.email.IsConfigured() {
		return domainError(http.StatusServiceUnavailable, "EMAIL_UNAVAILABLE", "Email is not configured", nil)
	}
	if len(to) == 0 || strings.TrimSpace(subject) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "recipients and subject are required", nil)
	}
	if err := s.email.SendEmail(to, subject, body); err != nil {
		s.logger.Error("send email", zap.String("user", caller.ID), zap.Error(err))
		return domainError(http.StatusInternalServerError, "SERVER_ERROR", "Could not send email", nil)
	}
	return nil
}

// Search runs a caller-scoped search. Superadmins search across
// organizations; everyone else is restricted to their own, and students and
// organization users additionally see only their own documents and the
// templates their role can use.
func (s *Service) Search(ctx context.Context, caller store.User, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	if caller.Role != rbac.RoleSuperadmin {
		q.OrganizationID = caller.OrganizationID
	}
	switch caller.Role {
	case rbac.RoleOrganization, rbac.RoleStudent:
		q.UserID = caller.ID
		q.RequiredRole = string(caller.Role)
	default:
		q.UserID = ""
		q.RequiredRole = ""
	}
	return s.search.Search(q)
}
