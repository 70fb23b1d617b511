package app

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/r-alnz/Docurate-sub000/internal/config"
	"github.com/r-alnz/Docurate-sub000/internal/credentials"
	"github.com/r-alnz/Docurate-sub000/internal/pagedoc"
	"github.com/r-alnz/Docurate-sub000/internal/rbac"
	"github.com/r-alnz/Docurate-sub000/internal/store"
)

// fakeStore is an in-memory dataStore and sessionStore. Function fields
// override individual methods where a test needs a failure.
type fakeStore struct {
	mu        sync.Mutex
	users     map[string]store.User
	orgs      map[string]store.Organization
	templates map[string]store.Template
	documents map[string]store.Document
	revisions []store.Revision
	removals  map[string]store.RemovalRequest
	sessions  map[string]fakeSession

	pingFn func(context.Context) error
}

type fakeSession struct {
	userID    string
	expiresAt time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[string]store.User{},
		orgs:      map[string]store.Organization{},
		templates: map[string]store.Template{},
		documents: map[string]store.Document{},
		removals:  map[string]store.RemovalRequest{},
		sessions:  map[string]fakeSession{},
	}
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) CreateUser(ctx context.Context, user store.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return store.ErrDuplicateEmail
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) UpdateUser(ctx context.Context, userID string, update store.UserUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	if update.Email != nil {
		for id, existing := range f.users {
			if id != userID && strings.EqualFold(existing.Email, *update.Email) {
				return store.ErrDuplicateEmail
			}
		}
		user.Email = *update.Email
	}
	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}
	if update.StudentID != nil {
		user.StudentID = *update.StudentID
	}
	if update.Suborgs != nil {
		user.Suborgs = *update.Suborgs
	}
	if update.Status != nil {
		user.Status = *update.Status
	}
	f.users[userID] = user
	return nil
}

func (f *fakeStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	f.users[userID] = user
	return nil
}

func (f *fakeStore) ListUsers(ctx context.Context, orgID string, roles []rbac.Role) ([]store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.User
	for _, user := range f.users {
		if orgID != "" && user.OrganizationID != orgID {
			continue
		}
		if len(roles) > 0 {
			match := false
			for _, role := range roles {
				if user.Role == role {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, user)
	}
	return out, nil
}

func (f *fakeStore) GetOrganization(ctx context.Context, orgID string) (store.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	org, ok := f.orgs[orgID]
	if !ok {
		return store.Organization{}, sql.ErrNoRows
	}
	return org, nil
}

func (f *fakeStore) ListOrganizations(ctx context.Context) ([]store.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Organization
	for _, org := range f.orgs {
		out = append(out, org)
	}
	return out, nil
}

func (f *fakeStore) CreateOrganization(ctx context.Context, org store.Organization) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orgs[org.ID] = org
	return nil
}

func (f *fakeStore) UpdateOrganization(ctx context.Context, orgID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	org, ok := f.orgs[orgID]
	if !ok {
		return sql.ErrNoRows
	}
	org.Name = name
	f.orgs[orgID] = org
	return nil
}

func (f *fakeStore) DeleteOrganization(ctx context.Context, orgID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orgs[orgID]; !ok {
		return sql.ErrNoRows
	}
	delete(f.orgs, orgID)
	return nil
}

func (f *fakeStore) GetTemplate(ctx context.Context, templateID string) (store.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tpl, ok := f.templates[templateID]
	if !ok {
		return store.Template{}, sql.ErrNoRows
	}
	return tpl, nil
}

func matchTemplate(tpl store.Template, filter store.TemplateFilter) bool {
	if filter.OrganizationID != "" && tpl.OrganizationID != filter.OrganizationID {
		return false
	}
	if filter.RequiredRole != "" && tpl.RequiredRole != filter.RequiredRole {
		return false
	}
	if filter.ActiveOnly && tpl.Status != store.StatusActive {
		return false
	}
	return true
}

func (f *fakeStore) ListTemplates(ctx context.Context, filter store.TemplateFilter) ([]store.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Template
	for _, tpl := range f.templates {
		if matchTemplate(tpl, filter) {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (f *fakeStore) ListTemplateHeaders(ctx context.Context, filter store.TemplateFilter) ([]store.TemplateHeader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.TemplateHeader
	for _, tpl := range f.templates {
		if matchTemplate(tpl, filter) {
			out = append(out, store.TemplateHeader{
				ID:             tpl.ID,
				OrganizationID: tpl.OrganizationID,
				Name:           tpl.Name,
				Type:           tpl.Type,
				Subtype:        tpl.Subtype,
				RequiredRole:   tpl.RequiredRole,
				PaperSize:      tpl.PaperSize,
				Margins:        tpl.Margins,
				HeaderImageKey: tpl.HeaderImageKey,
				FooterImageKey: tpl.FooterImageKey,
			})
		}
	}
	return out, nil
}

func (f *fakeStore) CreateTemplate(ctx context.Context, tpl store.Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templates[tpl.ID] = tpl
	return nil
}

func (f *fakeStore) UpdateTemplate(ctx context.Context, templateID string, update store.TemplateUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tpl, ok := f.templates[templateID]
	if !ok {
		return sql.ErrNoRows
	}
	if update.Name != nil {
		tpl.Name = *update.Name
	}
	if update.Type != nil {
		tpl.Type = *update.Type
	}
	if update.Subtype != nil {
		tpl.Subtype = *update.Subtype
	}
	if update.RequiredRole != nil {
		tpl.RequiredRole = *update.RequiredRole
	}
	if update.PaperSize != nil {
		tpl.PaperSize = *update.PaperSize
	}
	if update.Margins != nil {
		tpl.Margins = *update.Margins
	}
	if update.Content != nil {
		tpl.Content = *update.Content
	}
	if update.HeaderImageKey != nil {
		tpl.HeaderImageKey = *update.HeaderImageKey
	}
	if update.FooterImageKey != nil {
		tpl.FooterImageKey = *update.FooterImageKey
	}
	f.templates[templateID] = tpl
	return nil
}

func (f *fakeStore) SetTemplateStatus(ctx context.Context, templateID string, status store.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tpl, ok := f.templates[templateID]
	if !ok {
		return sql.ErrNoRows
	}
	tpl.Status = status
	f.templates[templateID] = tpl
	return nil
}

func (f *fakeStore) CreateDocument(ctx context.Context, doc store.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents[doc.ID] = doc
	return nil
}

func (f *fakeStore) GetDocument(ctx context.Context, documentID string) (store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.documents[documentID]
	if !ok {
		return store.Document{}, sql.ErrNoRows
	}
	return doc, nil
}

func (f *fakeStore) GetDocumentDetail(ctx context.Context, documentID string) (store.DocumentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.documents[documentID]
	if !ok {
		return store.DocumentDetail{}, sql.ErrNoRows
	}
	detail := store.DocumentDetail{Document: doc}
	if tpl, ok := f.templates[doc.TemplateID]; ok {
		detail.TemplateName = tpl.Name
		detail.TemplatePaperSize = tpl.PaperSize
		detail.TemplateMargins = tpl.Margins
	}
	if org, ok := f.orgs[doc.OrganizationID]; ok {
		detail.OrganizationName = org.Name
	}
	if owner, ok := f.users[doc.UserID]; ok {
		detail.OwnerFirstName = owner.FirstName
		detail.OwnerLastName = owner.LastName
	}
	return detail, nil
}

func (f *fakeStore) UpdateDocument(ctx context.Context, documentID, title, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.documents[documentID]
	if !ok {
		return sql.ErrNoRows
	}
	doc.Title = title
	doc.Content = content
	f.documents[documentID] = doc
	return nil
}

func (f *fakeStore) DeleteDocument(ctx context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.documents[documentID]; !ok {
		return sql.ErrNoRows
	}
	delete(f.documents, documentID)
	return nil
}

func (f *fakeStore) ListDocumentsByUser(ctx context.Context, userID string) ([]store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Document
	for _, doc := range f.documents {
		if doc.UserID == userID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateRevision(ctx context.Context, rev store.Revision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revisions = append(f.revisions, rev)
	return nil
}

// ListRevisions returns newest first, matching the Postgres ordering.
func (f *fakeStore) ListRevisions(ctx context.Context, documentID string) ([]store.RevisionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.RevisionSummary
	for i := len(f.revisions) - 1; i >= 0; i-- {
		rev := f.revisions[i]
		if rev.DocumentID == documentID {
			out = append(out, store.RevisionSummary{ID: rev.ID, Name: rev.Name, CreatedAt: rev.CreatedAt})
		}
	}
	return out, nil
}

func (f *fakeStore) GetRevision(ctx context.Context, documentID, revisionID string) (store.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rev := range f.revisions {
		if rev.DocumentID == documentID && rev.ID == revisionID {
			return rev, nil
		}
	}
	return store.Revision{}, sql.ErrNoRows
}

func (f *fakeStore) DeleteRevision(ctx context.Context, documentID, revisionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, rev := range f.revisions {
		if rev.DocumentID == documentID && rev.ID == revisionID {
			f.revisions = append(f.revisions[:i], f.revisions[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeStore) CreateRemovalRequest(ctx context.Context, req store.RemovalRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removals[req.ID] = req
	return nil
}

func (f *fakeStore) GetRemovalRequest(ctx context.Context, requestID string) (store.RemovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.removals[requestID]
	if !ok {
		return store.RemovalRequest{}, sql.ErrNoRows
	}
	return req, nil
}

func (f *fakeStore) ListRemovalRequests(ctx context.Context, orgID string) ([]store.RemovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.RemovalRequest
	for _, req := range f.removals {
		if orgID == "" || req.OrganizationID == orgID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeStore) SetRemovalRequestStatus(ctx context.Context, requestID string, status store.RemovalStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.removals[requestID]
	if !ok {
		return sql.ErrNoRows
	}
	req.Status = status
	f.removals[requestID] = req
	return nil
}

// sessionStore backed by the same maps so login/refresh flows run against
// one fake.

func (f *fakeStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[tokenHash] = fakeSession{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeStore) LookupRefreshSession(ctx context.Context, tokenHash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[tokenHash]
	if !ok || time.Now().After(session.expiresAt) {
		return "", sql.ErrNoRows
	}
	return session.userID, nil
}

func (f *fakeStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tokenHash)
	return nil
}

// Test fixtures

func testConfig() config.Config {
	return config.Config{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		CORSOrigin: "*",
	}
}

func newTestService(fs *fakeStore) *Service {
	return NewService(testConfig(), fs, zap.NewNop(), Options{})
}

func mustHash(password string) string {
	hash, err := credentials.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}

func seedUser(fs *fakeStore, id string, role rbac.Role, orgID string) store.User {
	user := store.User{
		ID:             id,
		Email:          id + "@example.edu",
		PasswordHash:   mustHash("correct horse"),
		Role:           role,
		FirstName:      "Test",
		LastName:       "User",
		OrganizationID: orgID,
		Status:         store.StatusActive,
	}
	if role == rbac.RoleStudent {
		user.StudentID = "2024-" + id
	}
	fs.users[id] = user
	return user
}

func seedOrg(fs *fakeStore, id, name string) store.Organization {
	org := store.Organization{ID: id, Name: name}
	fs.orgs[id] = org
	return org
}

func seedTemplate(fs *fakeStore, id, orgID string, role rbac.Role, status store.Status) store.Template {
	tpl := store.Template{
		ID:             id,
		OrganizationID: orgID,
		Name:           "Template " + id,
		Type:           "Thesis",
		RequiredRole:   role,
		PaperSize:      pagedoc.PaperLetter,
		Margins:        pagedoc.DefaultMargins(),
		Content:        "<p>body</p>",
		Status:         status,
	}
	fs.templates[id] = tpl
	return tpl
}

func seedDocument(fs *fakeStore, id, templateID, orgID, userID string) store.Document {
	doc := store.Document{
		ID:             id,
		TemplateID:     templateID,
		OrganizationID: orgID,
		UserID:         userID,
		Title:          "Document " + id,
		Content:        "<p>draft</p>",
	}
	fs.documents[id] = doc
	return doc
}
