package app

import (
	"context"
	"net/http"
	"strings"

	"github.com/r-alnz/Docurate-sub000/internal/pagedoc"
	"github.com/r-alnz/Docurate-sub000/internal/rbac"
	"github.com/r-alnz/Docurate-sub000/internal/store"
	"github.com/r-alnz/Docurate-sub000/internal/util"
)

// RemovalInput carries an account removal request.
type RemovalInput struct {
	TargetName string `json:"targetName" validate:"required"`
	StudentID  string `json:"studentId"`
	Reason     string `json:"reason" validate:"required"`
}

// CreateRemovalRequest files a removal request against an account. Any
// authenticated user may file one; requests start pending and are decided by
// an admin of the same organization.
func (s *Service) CreateRemovalRequest(ctx context.Context, caller store.User, input RemovalInput) (store.RemovalRequest, error) {
	var fields []string
	if strings.TrimSpace(input.TargetName) == "" {
		fields = append(fields, "targetName")
	}
	if strings.TrimSpace(input.Reason) == "" {
		fields = append(fields, "reason")
	}
	if len(fields) > 0 {
		return store.RemovalRequest{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid removal request fields", fields)
	}

	req := store.RemovalRequest{
		ID:             util.NewID("rmv"),
		RequesterName:  pagedoc.SanitizeText(strings.TrimSpace(caller.FirstName + " " + caller.LastName)),
		TargetName:     pagedoc.SanitizeText(input.TargetName),
		StudentID:      pagedoc.SanitizeText(input.StudentID),
		Reason:         pagedoc.SanitizeText(input.Reason),
		OrganizationID: caller.OrganizationID,
		Status:         store.RemovalPending,
	}
	if err := s.store.CreateRemovalRequest(ctx, req); err != nil {
		return store.RemovalRequest{}, err
	}
	return req, nil
}

// ListRemovalRequests returns requests visible to the caller: admins see
// their own organization, superadmins see all.
func (s *Service) ListRemovalRequests(ctx context.Context, caller store.User) ([]store.RemovalRequest, error) {
	switch caller.Role {
	case rbac.RoleSuperadmin:
		return s.store.ListRemovalRequests(ctx, "")
	case rbac.RoleAdmin:
		return s.store.ListRemovalRequests(ctx, caller.OrganizationID)
	default:
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
}

// SetRemovalRequestStatus decides a removal request. Deciding does not touch
// the target account; deactivation stays a separate admin action.
func (s *Service) SetRemovalRequestStatus(ctx context.Context, caller store.User, requestID string, status store.RemovalStatus) (store.RemovalRequest, error) {
	if !status.Valid() {
		return store.RemovalRequest{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid removal status", []string{"status"})
	}
	req, err := s.store.GetRemovalRequest(ctx, requestID)
	if err != nil {
		return store.RemovalRequest{}, err
	}
	switch caller.Role {
	case rbac.RoleSuperadmin:
	case rbac.RoleAdmin:
		if req.OrganizationID != caller.OrganizationID {
			return store.RemovalRequest{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		}
	default:
		return store.RemovalRequest{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if err := s.store.SetRemovalRequestStatus(ctx, requestID, status); err != nil {
		return store.RemovalRequest{}, err
	}
	req.Status = status
	return req, nil
}
