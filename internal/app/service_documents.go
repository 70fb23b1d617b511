package app

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/r-alnz/Docurate-sub000/internal/export"
	"github.com/r-alnz/Docurate-sub000/internal/pagedoc"
	"github.com/r-alnz/Docurate-sub000/internal/rbac"
	"github.com/r-alnz/Docurate-sub000/internal/search"
	"github.com/r-alnz/Docurate-sub000/internal/store"
	"github.com/r-alnz/Docurate-sub000/internal/util"
)

// DocumentInput carries document creation fields. Content defaults to the
// template's content when omitted.
type DocumentInput struct {
	TemplateID string `json:"templateId" validate:"required"`
	Title      string `json:"title" validate:"required"`
	Content    string `json:"content"`
}

// DocumentUpdateInput carries partial document mutations.
type DocumentUpdateInput struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// RevisionInput carries revision creation fields.
type RevisionInput struct {
	Name    string `json:"name"`
	Content string `json:"content" validate:"required"`
}

// errDocForbidden is the uniform ownership failure for document mutations.
func errDocForbidden() error {
	return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

// canReadDocument: the owner always, admins within their organization,
// superadmins everywhere. Mutations stay owner-only regardless of role.
func canReadDocument(caller store.User, doc store.Document) bool {
	if doc.UserID == caller.ID {
		return true
	}
	switch caller.Role {
	case rbac.RoleSuperadmin:
		return true
	case rbac.RoleAdmin:
		return doc.OrganizationID == caller.OrganizationID
	default:
		return false
	}
}

// CreateDocument instantiates a template into a new document owned by the
// caller. The template must be visible to the caller's role.
func (s *Service) CreateDocument(ctx context.Context, caller store.User, input DocumentInput) (store.Document, error) {
	var fields []string
	if strings.TrimSpace(input.Title) == "" {
		fields = append(fields, "title")
	}
	if input.TemplateID == "" {
		fields = append(fields, "templateId")
	}
	if len(fields) > 0 {
		return store.Document{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid document fields", fields)
	}

	tpl, err := s.GetTemplate(ctx, caller, input.TemplateID)
	if err != nil {
		return store.Document{}, err
	}

	content := input.Content
	if content == "" {
		content = tpl.Content
	}

	doc := store.Document{
		ID:             util.NewID("doc"),
		TemplateID:     tpl.ID,
		OrganizationID: caller.OrganizationID,
		UserID:         caller.ID,
		Title:          pagedoc.SanitizeText(input.Title),
		Content:        content,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return store.Document{}, err
	}
	s.indexDocument(doc)
	return doc, nil
}

// GetDocument returns the document with its template print settings and
// owner names resolved.
func (s *Service) GetDocument(ctx context.Context, caller store.User, documentID string) (store.DocumentDetail, error) {
	detail, err := s.store.GetDocumentDetail(ctx, documentID)
	if err != nil {
		return store.DocumentDetail{}, err
	}
	if !canReadDocument(caller, detail.Document) {
		return store.DocumentDetail{}, errDocForbidden()
	}
	return detail, nil
}

// UpdateDocument applies a partial update. Owner only; the revision history
// is written separately by CreateRevision.
func (s *Service) UpdateDocument(ctx context.Context, caller store.User, documentID string, input DocumentUpdateInput) (store.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if doc.UserID != caller.ID {
		return store.Document{}, errDocForbidden()
	}

	title := doc.Title
	if input.Title != nil {
		title = pagedoc.SanitizeText(*input.Title)
		if strings.TrimSpace(title) == "" {
			return store.Document{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid document fields", []string{"title"})
		}
	}
	content := doc.Content
	if input.Content != nil {
		content = *input.Content
	}

	if err := s.store.UpdateDocument(ctx, documentID, title, content); err != nil {
		return store.Document{}, err
	}
	doc.Title = title
	doc.Content = content
	s.indexDocument(doc)
	return doc, nil
}

// DeleteDocument removes a document and, through the schema cascade, its
// revisions. Owner only.
func (s *Service) DeleteDocument(ctx context.Context, caller store.User, documentID string) error {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.UserID != caller.ID {
		return errDocForbidden()
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteDocument(documentID)
	}
	return nil
}

// ListDocumentsByUser lists a user's documents. Callers may list their own;
// admins may list users in their organization; superadmins anyone.
func (s *Service) ListDocumentsByUser(ctx context.Context, caller store.User, userID string) ([]store.Document, error) {
	if userID != caller.ID {
		switch caller.Role {
		case rbac.RoleSuperadmin:
		case rbac.RoleAdmin:
			target, err := s.store.GetUserByID(ctx, userID)
			if err != nil {
				return nil, err
			}
			if target.OrganizationID != caller.OrganizationID {
				return nil, errDocForbidden()
			}
		default:
			return nil, errDocForbidden()
		}
	}
	return s.store.ListDocumentsByUser(ctx, userID)
}

// CreateRevision snapshots document content into the append-only history.
// Owner of the parent document only.
func (s *Service) CreateRevision(ctx context.Context, caller store.User, documentID string, input RevisionInput) (store.Revision, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return store.Revision{}, err
	}
	if doc.UserID != caller.ID {
		return store.Revision{}, errDocForbidden()
	}
	if input.Content == "" {
		return store.Revision{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid revision fields", []string{"content"})
	}

	name := pagedoc.SanitizeText(input.Name)
	if strings.TrimSpace(name) == "" {
		name = "Automatic save"
	}

	rev := store.Revision{
		ID:             util.NewID("rev"),
		DocumentID:     doc.ID,
		UserID:         caller.ID,
		OrganizationID: doc.OrganizationID,
		Name:           name,
		Content:        input.Content,
	}
	if err := s.store.CreateRevision(ctx, rev); err != nil {
		return store.Revision{}, err
	}
	return rev, nil
}

// ListRevisions returns name+timestamp summaries, newest first.
func (s *Service) ListRevisions(ctx context.Context, caller store.User, documentID string) ([]store.RevisionSummary, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.UserID != caller.ID {
		return nil, errDocForbidden()
	}
	return s.store.ListRevisions(ctx, documentID)
}

// GetRevision returns one revision with content, scoped to its parent.
func (s *Service) GetRevision(ctx context.Context, caller store.User, documentID, revisionID string) (store.Revision, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return store.Revision{}, err
	}
	if doc.UserID != caller.ID {
		return store.Revision{}, errDocForbidden()
	}
	return s.store.GetRevision(ctx, documentID, revisionID)
}

// DeleteRevision removes one revision, any position in the history.
func (s *Service) DeleteRevision(ctx context.Context, caller store.User, documentID, revisionID string) error {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.UserID != caller.ID {
		return errDocForbidden()
	}
	return s.store.DeleteRevision(ctx, documentID, revisionID)
}

// ExportDocument renders the document to PDF with its template's paper
// geometry. Owner only.
func (s *Service) ExportDocument(ctx context.Context, caller store.User, documentID string) (*export.Result, error) {
	detail, err := s.store.GetDocumentDetail(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if detail.UserID != caller.ID {
		return nil, errDocForbidden()
	}

	tpl, err := s.store.GetTemplate(ctx, detail.TemplateID)
	if err != nil {
		return nil, err
	}
	headerURL, footerURL := s.TemplateImageURLs(ctx, tpl)

	result, err := export.ExportPDF(export.Request{
		Title:          detail.Title,
		Content:        detail.Content,
		PaperSize:      detail.TemplatePaperSize,
		Margins:        detail.TemplateMargins,
		HeaderImageURL: headerURL,
		FooterImageURL: footerURL,
	})
	if err != nil {
		s.logger.Error("export document", zap.String("document", documentID), zap.Error(err))
		return nil, domainError(http.StatusInternalServerError, "SERVER_ERROR", "Export failed", nil)
	}
	return result, nil
}

func (s *Service) indexDocument(doc store.Document) {
	if s.search == nil {
		return
	}
	s.search.IndexDocument(search.DocumentRecord{
		ID:             doc.ID,
		Title:          doc.Title,
		Content:        doc.Content,
		OrganizationID: doc.OrganizationID,
		UserID:         doc.UserID,
	})
}
