package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) CreateRemovalRequest(ctx context.Context, req RemovalRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO removal_requests (id, requester_name, target_name, student_id, reason, organization_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, req.ID, req.RequesterName, req.TargetName, req.StudentID, req.Reason, req.OrganizationID, req.Status)
	if err != nil {
		return fmt.Errorf("insert removal request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRemovalRequest(ctx context.Context, requestID string) (RemovalRequest, error) {
	var req RemovalRequest
	err := s.db.QueryRowContext(ctx, `
		SELECT id, requester_name, target_name, student_id, reason, organization_id, status, created_at, updated_at
		FROM removal_requests WHERE id=$1
	`, requestID).Scan(&req.ID, &req.RequesterName, &req.TargetName, &req.StudentID, &req.Reason, &req.OrganizationID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return RemovalRequest{}, err
	}
	return req, nil
}

// ListRemovalRequests returns every request when orgID is empty.
func (s *PostgresStore) ListRemovalRequests(ctx context.Context, orgID string) ([]RemovalRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, requester_name, target_name, student_id, reason, organization_id, status, created_at, updated_at
		FROM removal_requests
		WHERE ($1='' OR organization_id=$1)
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list removal requests: %w", err)
	}
	defer rows.Close()

	items := make([]RemovalRequest, 0)
	for rows.Next() {
		var req RemovalRequest
		if err := rows.Scan(&req.ID, &req.RequesterName, &req.TargetName, &req.StudentID, &req.Reason, &req.OrganizationID, &req.Status, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan removal request: %w", err)
		}
		items = append(items, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate removal requests: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) SetRemovalRequestStatus(ctx context.Context, requestID string, status RemovalStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE removal_requests SET status=$2, updated_at=NOW() WHERE id=$1
	`, requestID, status)
	if err != nil {
		return fmt.Errorf("set removal request status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set removal request status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteRemovalRequest(ctx context.Context, requestID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM removal_requests WHERE id=$1`, requestID)
	if err != nil {
		return fmt.Errorf("delete removal request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete removal request rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
