package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) CreateDocument(ctx context.Context, doc Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, template_id, organization_id, user_id, title, content)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, doc.ID, doc.TemplateID, doc.OrganizationID, doc.UserID, doc.Title, doc.Content)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var doc Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, template_id, organization_id, user_id, title, content, created_at, updated_at
		FROM documents WHERE id=$1
	`, documentID).Scan(&doc.ID, &doc.TemplateID, &doc.OrganizationID, &doc.UserID, &doc.Title, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// GetDocumentDetail joins the template's print settings and owner names so
// editors render a document without a second round trip.
func (s *PostgresStore) GetDocumentDetail(ctx context.Context, documentID string) (DocumentDetail, error) {
	var d DocumentDetail
	err := s.db.QueryRowContext(ctx, `
		SELECT d.id, d.template_id, d.organization_id, d.user_id, d.title, d.content, d.created_at, d.updated_at,
			t.name, t.paper_size,
			t.margin_top, t.margin_bottom, t.margin_left, t.margin_right,
			o.name, u.first_name, u.last_name
		FROM documents d
		JOIN templates t ON t.id = d.template_id
		JOIN users u ON u.id = d.user_id
		JOIN organizations o ON o.id = d.organization_id
		WHERE d.id=$1
	`, documentID).Scan(
		&d.ID, &d.TemplateID, &d.OrganizationID, &d.UserID, &d.Title, &d.Content, &d.CreatedAt, &d.UpdatedAt,
		&d.TemplateName, &d.TemplatePaperSize,
		&d.TemplateMargins.Top, &d.TemplateMargins.Bottom, &d.TemplateMargins.Left, &d.TemplateMargins.Right,
		&d.OrganizationName, &d.OwnerFirstName, &d.OwnerLastName,
	)
	if err != nil {
		return DocumentDetail{}, err
	}
	return d, nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, documentID, title, content string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET title=$2, content=$3, updated_at=NOW() WHERE id=$1
	`, documentID, title, content)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteDocument relies on ON DELETE CASCADE to drop revisions with the
// document.
func (s *PostgresStore) DeleteDocument(ctx context.Context, documentID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, documentID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) ListDocumentsByUser(ctx context.Context, userID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_id, organization_id, user_id, title, content, created_at, updated_at
		FROM documents WHERE user_id=$1 ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.TemplateID, &doc.OrganizationID, &doc.UserID, &doc.Title, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CreateRevision(ctx context.Context, rev Revision) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_revisions (id, document_id, user_id, organization_id, name, content)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rev.ID, rev.DocumentID, rev.UserID, rev.OrganizationID, rev.Name, rev.Content)
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

// ListRevisions returns content-free summaries, newest first.
func (s *PostgresStore) ListRevisions(ctx context.Context, documentID string) ([]RevisionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM document_revisions
		WHERE document_id=$1
		ORDER BY created_at DESC, id DESC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	items := make([]RevisionSummary, 0)
	for rows.Next() {
		var r RevisionSummary
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return items, nil
}

// GetRevision is scoped to its parent document so a revision id cannot be
// read through another document's URL.
func (s *PostgresStore) GetRevision(ctx context.Context, documentID, revisionID string) (Revision, error) {
	var rev Revision
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, user_id, organization_id, name, content, created_at
		FROM document_revisions WHERE document_id=$1 AND id=$2
	`, documentID, revisionID).Scan(&rev.ID, &rev.DocumentID, &rev.UserID, &rev.OrganizationID, &rev.Name, &rev.Content, &rev.CreatedAt)
	if err != nil {
		return Revision{}, err
	}
	return rev, nil
}

func (s *PostgresStore) DeleteRevision(ctx context.Context, documentID, revisionID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM document_revisions WHERE document_id=$1 AND id=$2
	`, documentID, revisionID)
	if err != nil {
		return fmt.Errorf("delete revision: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete revision rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
