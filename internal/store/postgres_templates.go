package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const templateColumns = `id, organization_id, name, type, subtype, required_role, paper_size,
	margin_top, margin_bottom, margin_left, margin_right,
	content, header_image_key, footer_image_key,
	status, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (Template, error) {
	var tpl Template
	err := row.Scan(
		&tpl.ID,
		&tpl.OrganizationID,
		&tpl.Name,
		&tpl.Type,
		&tpl.Subtype,
		&tpl.RequiredRole,
		&tpl.PaperSize,
		&tpl.Margins.Top,
		&tpl.Margins.Bottom,
		&tpl.Margins.Left,
		&tpl.Margins.Right,
		&tpl.Content,
		&tpl.HeaderImageKey,
		&tpl.FooterImageKey,
		&tpl.Status,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)
	return tpl, err
}

func (s *PostgresStore) GetTemplate(ctx context.Context, templateID string) (Template, error) {
	return scanTemplate(s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE id=$1`, templateID))
}

func (s *PostgresStore) ListTemplates(ctx context.Context, filter TemplateFilter) ([]Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE 1=1`
	args := []any{}
	n := 1
	if filter.OrganizationID != "" {
		query += fmt.Sprintf(" AND organization_id=$%d", n)
		args = append(args, filter.OrganizationID)
		n++
	}
	if filter.RequiredRole != "" {
		query += fmt.Sprintf(" AND required_role=$%d", n)
		args = append(args, filter.RequiredRole)
		n++
	}
	if filter.ActiveOnly {
		query += " AND status='active'"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	items := make([]Template, 0)
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		items = append(items, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return items, nil
}

// ListTemplateHeaders returns the content-free projection used by the
// decision tree and listing views.
func (s *PostgresStore) ListTemplateHeaders(ctx context.Context, filter TemplateFilter) ([]TemplateHeader, error) {
	query := `
		SELECT id, organization_id, name, type, subtype, required_role, paper_size,
			margin_top, margin_bottom, margin_left, margin_right,
			header_image_key, footer_image_key
		FROM templates WHERE 1=1`
	args := []any{}
	n := 1
	if filter.OrganizationID != "" {
		query += fmt.Sprintf(" AND organization_id=$%d", n)
		args = append(args, filter.OrganizationID)
		n++
	}
	if filter.RequiredRole != "" {
		query += fmt.Sprintf(" AND required_role=$%d", n)
		args = append(args, filter.RequiredRole)
		n++
	}
	if filter.ActiveOnly {
		query += " AND status='active'"
	}
	query += " ORDER BY type ASC, subtype ASC, name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list template headers: %w", err)
	}
	defer rows.Close()

	items := make([]TemplateHeader, 0)
	for rows.Next() {
		var h TemplateHeader
		if err := rows.Scan(
			&h.ID, &h.OrganizationID, &h.Name, &h.Type, &h.Subtype, &h.RequiredRole, &h.PaperSize,
			&h.Margins.Top, &h.Margins.Bottom, &h.Margins.Left, &h.Margins.Right,
			&h.HeaderImageKey, &h.FooterImageKey,
		); err != nil {
			return nil, fmt.Errorf("scan template header: %w", err)
		}
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate template headers: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CreateTemplate(ctx context.Context, tpl Template) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (id, organization_id, name, type, subtype, required_role, paper_size,
			margin_top, margin_bottom, margin_left, margin_right,
			content, header_image_key, footer_image_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, tpl.ID, tpl.OrganizationID, tpl.Name, tpl.Type, tpl.Subtype, tpl.RequiredRole, tpl.PaperSize,
		tpl.Margins.Top, tpl.Margins.Bottom, tpl.Margins.Left, tpl.Margins.Right,
		tpl.Content, tpl.HeaderImageKey, tpl.FooterImageKey, tpl.Status)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTemplate(ctx context.Context, templateID string, update TemplateUpdate) error {
	sets := []string{"updated_at=NOW()"}
	args := []any{templateID}
	n := 2
	appendSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s=$%d", column, n))
		args = append(args, value)
		n++
	}
	if update.Name != nil {
		appendSet("name", *update.Name)
	}
	if update.Content != nil {
		appendSet("content", *update.Content)
	}
	if update.Type != nil {
		appendSet("type", *update.Type)
	}
	if update.Subtype != nil {
		appendSet("subtype", *update.Subtype)
	}
	if update.RequiredRole != nil {
		appendSet("required_role", *update.RequiredRole)
	}
	if update.PaperSize != nil {
		appendSet("paper_size", *update.PaperSize)
	}
	if update.Margins != nil {
		appendSet("margin_top", update.Margins.Top)
		appendSet("margin_bottom", update.Margins.Bottom)
		appendSet("margin_left", update.Margins.Left)
		appendSet("margin_right", update.Margins.Right)
	}
	if update.HeaderImageKey != nil {
		appendSet("header_image_key", *update.HeaderImageKey)
	}
	if update.FooterImageKey != nil {
		appendSet("footer_image_key", *update.FooterImageKey)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE templates SET `+strings.Join(sets, ", ")+` WHERE id=$1`, args...)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update template rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetTemplateStatus is idempotent: setting an already-held status succeeds.
func (s *PostgresStore) SetTemplateStatus(ctx context.Context, templateID string, status Status) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE templates SET status=$2, updated_at=NOW() WHERE id=$1
	`, templateID, status)
	if err != nil {
		return fmt.Errorf("set template status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set template status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

