package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/r-alnz/Docurate-sub000/internal/pagedoc"
	"github.com/r-alnz/Docurate-sub000/internal/rbac"
	"github.com/r-alnz/Docurate-sub000/internal/search"
	"github.com/r-alnz/Docurate-sub000/internal/store"
	"github.com/r-alnz/Docurate-sub000/internal/util"
)

// TemplateInput carries template creation fields.
type TemplateInput struct {
	Name         string           `json:"name" validate:"required"`
	Content      string           `json:"content" validate:"required"`
	Type         string           `json:"type" validate:"required"`
	Subtype      string           `json:"subtype"`
	RequiredRole string           `json:"requiredRole" validate:"required"`
	PaperSize    string           `json:"paperSize" validate:"required"`
	Margins      *pagedoc.Margins `json:"margins"`
}

// TemplateUpdateInput carries partial template mutations; nil fields are
// left untouched.
type TemplateUpdateInput struct {
	Name         *string          `json:"name"`
	Content      *string          `json:"content"`
	Type         *string          `json:"type"`
	Subtype      *string          `json:"subtype"`
	RequiredRole *string          `json:"requiredRole"`
	PaperSize    *string          `json:"paperSize"`
	Margins      *pagedoc.Margins `json:"margins"`
}

// templateFilterFor builds the visibility predicate for a caller: admins see
// every template of their organization, organization and student roles see
// only active templates gated to their own role, superadmins see everything.
func templateFilterFor(caller store.User, activeOnly bool) store.TemplateFilter {
	filter := store.TemplateFilter{ActiveOnly: activeOnly}
	if caller.Role != rbac.RoleSuperadmin {
		filter.OrganizationID = caller.OrganizationID
	}
	if caller.Role == rbac.RoleOrganization || caller.Role == rbac.RoleStudent {
		filter.RequiredRole = caller.Role
		filter.ActiveOnly = true
	}
	return filter
}

// templateVisible reports whether a single fetched template passes the same
// predicate as templateFilterFor.
func templateVisible(caller store.User, tpl store.Template) bool {
	switch caller.Role {
	case rbac.RoleSuperadmin:
		return true
	case rbac.RoleAdmin:
		return tpl.OrganizationID == caller.OrganizationID
	default:
		return tpl.OrganizationID == caller.OrganizationID &&
			tpl.RequiredRole == caller.Role &&
			tpl.Status == store.StatusActive
	}
}

// ListTemplates returns every template the caller can manage.
func (s *Service) ListTemplates(ctx context.Context, caller store.User) ([]store.Template, error) {
	return s.store.ListTemplates(ctx, templateFilterFor(caller, false))
}

// ListActiveTemplates returns the templates the caller can instantiate.
func (s *Service) ListActiveTemplates(ctx context.Context, caller store.User) ([]store.Template, error) {
	return s.store.ListTemplates(ctx, templateFilterFor(caller, true))
}

func errTemplateNotFound() error {
	return domainError(http.StatusNotFound, "NOT_FOUND", "Template not found", nil)
}

// GetTemplate returns one template. Templates outside the caller's
// visibility report the same not-found as missing ids, never forbidden.
func (s *Service) GetTemplate(ctx context.Context, caller store.User, templateID string) (store.Template, error) {
	tpl, err := s.store.GetTemplate(ctx, templateID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Template{}, errTemplateNotFound()
	}
	if err != nil {
		return store.Template{}, err
	}
	if !templateVisible(caller, tpl) {
		return store.Template{}, errTemplateNotFound()
	}
	return tpl, nil
}

// GetTemplateHeader returns the content-free projection of one visible
// template.
func (s *Service) GetTemplateHeader(ctx context.Context, caller store.User, templateID string) (store.TemplateHeader, error) {
	tpl, err := s.GetTemplate(ctx, caller, templateID)
	if err != nil {
		return store.TemplateHeader{}, err
	}
	return store.TemplateHeader{
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
	}, nil
}

// CreateTemplate validates and stores a template under the caller's
// organization. Page content is stored byte-exact; only the descriptive
// text fields are sanitized.
func (s *Service) CreateTemplate(ctx context.Context, caller store.User, input TemplateInput) (store.Template, error) {
	var fields []string
	if strings.TrimSpace(input.Name) == "" {
		fields = append(fields, "name")
	}
	if input.Content == "" {
		fields = append(fields, "content")
	}
	if strings.TrimSpace(input.Type) == "" {
		fields = append(fields, "type")
	}
	if !rbac.RequiredRoleValid(input.RequiredRole) {
		fields = append(fields, "requiredRole")
	}
	if !pagedoc.PaperSize(input.PaperSize).Valid() {
		fields = append(fields, "paperSize")
	}
	margins := pagedoc.DefaultMargins()
	if input.Margins != nil {
		if !input.Margins.Valid() {
			fields = append(fields, "margins")
		}
		margins = *input.Margins
	}
	if len(fields) > 0 {
		return store.Template{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid template fields", fields)
	}

	tpl := store.Template{
		ID:             util.NewID("tpl"),
		OrganizationID: caller.OrganizationID,
		Name:           pagedoc.SanitizeText(input.Name),
		Type:           pagedoc.SanitizeText(input.Type),
		Subtype:        pagedoc.SanitizeText(input.Subtype),
		RequiredRole:   rbac.Role(input.RequiredRole),
		PaperSize:      pagedoc.PaperSize(input.PaperSize),
		Margins:        margins,
		Content:        input.Content,
		Status:         store.StatusActive,
	}
	if err := s.store.CreateTemplate(ctx, tpl); err != nil {
		return store.Template{}, err
	}
	s.indexTemplate(tpl)
	return tpl, nil
}

// UpdateTemplate applies a partial update to a template in the caller's
// organization.
func (s *Service) UpdateTemplate(ctx context.Context, caller store.User, templateID string, input TemplateUpdateInput) (store.Template, error) {
	if _, err := s.GetTemplate(ctx, caller, templateID); err != nil {
		return store.Template{}, err
	}

	update := store.TemplateUpdate{
		Content: input.Content,
		Margins: input.Margins,
	}
	var fields []string
	if input.Name != nil {
		name := pagedoc.SanitizeText(*input.Name)
		if strings.TrimSpace(name) == "" {
			fields = append(fields, "name")
		}
		update.Name = &name
	}
	if input.Content != nil && *input.Content == "" {
		fields = append(fields, "content")
	}
	if input.Type != nil {
		typ := pagedoc.SanitizeText(*input.Type)
		if strings.TrimSpace(typ) == "" {
			fields = append(fields, "type")
		}
		update.Type = &typ
	}
	if input.Subtype != nil {
		subtype := pagedoc.SanitizeText(*input.Subtype)
		update.Subtype = &subtype
	}
	if input.RequiredRole != nil {
		if !rbac.RequiredRoleValid(*input.RequiredRole) {
			fields = append(fields, "requiredRole")
		}
		role := rbac.Role(*input.RequiredRole)
		update.RequiredRole = &role
	}
	if input.PaperSize != nil {
		if !pagedoc.PaperSize(*input.PaperSize).Valid() {
			fields = append(fields, "paperSize")
		}
		size := pagedoc.PaperSize(*input.PaperSize)
		update.PaperSize = &size
	}
	if input.Margins != nil && !input.Margins.Valid() {
		fields = append(fields, "margins")
	}
	if len(fields) > 0 {
		return store.Template{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid template fields", fields)
	}

	if err := s.store.UpdateTemplate(ctx, templateID, update); err != nil {
		return store.Template{}, err
	}
	tpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return store.Template{}, err
	}
	s.indexTemplate(tpl)
	return tpl, nil
}

// SetTemplateStatus soft-deletes or recovers a template. Setting the status
// it already has succeeds.
func (s *Service) SetTemplateStatus(ctx context.Context, caller store.User, templateID string, status store.Status) error {
	if !status.Valid() {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid status", nil)
	}
	tpl, err := s.GetTemplate(ctx, caller, templateID)
	if err != nil {
		return err
	}
	if err := s.store.SetTemplateStatus(ctx, templateID, status); err != nil {
		return err
	}
	// Archived templates leave the search index entirely; recovery re-adds
	// them.
	if status == store.StatusInactive {
		if s.search != nil {
			s.search.DeleteTemplate(templateID)
		}
		return nil
	}
	tpl.Status = status
	s.indexTemplate(tpl)
	return nil
}

// TreeLeaf is one selectable template in the decision tree.
type TreeLeaf struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	RequiredRole string `json:"requiredRole"`
}

// TreeNode groups the templates of one type: names without a subtype, plus
// a bucket per subtype.
type TreeNode struct {
	Names    []TreeLeaf            `json:"names"`
	Subtypes map[string][]TreeLeaf `json:"subtype"`
}

// DecisionTree folds the caller's visible active templates into the
// type/subtype selection structure. Built per request, never cached.
func (s *Service) DecisionTree(ctx context.Context, caller store.User) (map[string]*TreeNode, error) {
	headers, err := s.store.ListTemplateHeaders(ctx, templateFilterFor(caller, true))
	if err != nil {
		return nil, err
	}
	return buildDecisionTree(headers), nil
}

func buildDecisionTree(headers []store.TemplateHeader) map[string]*TreeNode {
	tree := make(map[string]*TreeNode)
	for _, h := range headers {
		node, ok := tree[h.Type]
		if !ok {
			node = &TreeNode{
				Names:    []TreeLeaf{},
				Subtypes: map[string][]TreeLeaf{},
			}
			tree[h.Type] = node
		}
		leaf := TreeLeaf{ID: h.ID, Name: h.Name, RequiredRole: string(h.RequiredRole)}
		if h.Subtype == "" {
			node.Names = append(node.Names, leaf)
		} else {
			node.Subtypes[h.Subtype] = append(node.Subtypes[h.Subtype], leaf)
		}
	}
	return tree
}

// SetTemplateImage uploads a header or footer image for a template and
// records its object key. Returns a presigned URL for immediate display.
func (s *Service) SetTemplateImage(ctx context.Context, caller store.User, templateID, slot string, r io.Reader, size int64, contentType string) (string, error) {
	if s.assets == nil {
		return "", domainError(http.StatusServiceUnavailable, "ASSETS_UNAVAILABLE", "Asset storage is not configured", nil)
	}
	if slot != "header" && slot != "footer" {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "slot must be header or footer", nil)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "image content type required", nil)
	}

	tpl, err := s.GetTemplate(ctx, caller, templateID)
	if err != nil {
		return "", err
	}

	key := util.NewObjectKey(tpl.OrganizationID, extForContentType(contentType))
	if _, err := s.assets.Upload(ctx, key, r, size, contentType); err != nil {
		s.logger.Error("upload template image", zap.String("template", templateID), zap.Error(err))
		return "", domainError(http.StatusInternalServerError, "SERVER_ERROR", "Could not store image", nil)
	}

	update := store.TemplateUpdate{}
	previous := ""
	if slot == "header" {
		previous = tpl.HeaderImageKey
		update.HeaderImageKey = &key
	} else {
		previous = tpl.FooterImageKey
		update.FooterImageKey = &key
	}
	if err := s.store.UpdateTemplate(ctx, templateID, update); err != nil {
		return "", err
	}
	if previous != "" {
		if err := s.assets.Remove(ctx, previous); err != nil {
			s.logger.Warn("remove replaced template image", zap.String("key", previous), zap.Error(err))
		}
	}

	return s.assets.PresignedURL(ctx, key, time.Hour)
}

// TemplateImageURLs resolves the template's stored object keys into
// presigned URLs. Missing keys and missing asset storage yield empty URLs.
func (s *Service) TemplateImageURLs(ctx context.Context, tpl store.Template) (headerURL, footerURL string) {
	if s.assets == nil {
		return "", ""
	}
	if tpl.HeaderImageKey != "" {
		if u, err := s.assets.PresignedURL(ctx, tpl.HeaderImageKey, time.Hour); err == nil {
			headerURL = u
		}
	}
	if tpl.FooterImageKey != "" {
		if u, err := s.assets.PresignedURL(ctx, tpl.FooterImageKey, time.Hour); err == nil {
			footerURL = u
		}
	}
	return headerURL, footerURL
}

func extForContentType(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "bin"
	}
}

func (s *Service) indexTemplate(tpl store.Template) {
	if s.search == nil {
		return
	}
	s.search.IndexTemplate(search.TemplateRecord{
		ID:             tpl.ID,
		Name:           tpl.Name,
		Type:           tpl.Type,
		Subtype:        tpl.Subtype,
		OrganizationID: tpl.OrganizationID,
		RequiredRole:   string(tpl.RequiredRole),
		Status:         string(tpl.Status),
	})
}
