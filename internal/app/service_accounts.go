package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/r-alnz/Docurate-sub000/internal/bulkimport"
	"github.com/r-alnz/Docurate-sub000/internal/credentials"
	"github.com/r-alnz/Docurate-sub000/internal/pagedoc"
	"github.com/r-alnz/Docurate-sub000/internal/rbac"
	"github.com/r-alnz/Docurate-sub000/internal/store"
	"github.com/r-alnz/Docurate-sub000/internal/util"
)

// Bootstrap seeds the superadmin account so a fresh deployment can sign in.
// A blank email skips seeding; an existing account wins.
func (s *Service) Bootstrap(ctx context.Context, emailAddr, password string) error {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if emailAddr == "" {
		return nil
	}
	if _, err := s.store.GetUserByEmail(ctx, emailAddr); err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("seed superadmin: %w", err)
	}
	hash, err := credentials.HashPassword(password)
	if err != nil {
		return fmt.Errorf("seed superadmin: %w", err)
	}
	user := store.User{
		ID:           util.NewID("usr"),
		Email:        emailAddr,
		PasswordHash: hash,
		Role:         rbac.RoleSuperadmin,
		FirstName:    "Super",
		LastName:     "Admin",
		Status:       store.StatusActive,
	}
	if err := s.store.CreateUser(ctx, user); err != nil && !errors.Is(err, store.ErrDuplicateEmail) {
		return fmt.Errorf("seed superadmin: %w", err)
	}
	s.logger.Info("seeded superadmin account", zap.String("email", emailAddr))
	return nil
}

// UserInput carries account creation fields. OrganizationID is only honored
// from superadmins; admins always provision into their own organization.
type UserInput struct {
	Email            string   `json:"email" validate:"required,email"`
	Password         string   `json:"password" validate:"required"`
	Role             string   `json:"role" validate:"required"`
	FirstName        string   `json:"firstName" validate:"required"`
	LastName         string   `json:"lastName"`
	OrganizationID   string   `json:"organizationId"`
	StudentID        string   `json:"studentId"`
	Suborganizations []string `json:"suborganizations"`
}

// UserUpdateInput carries partial account mutations.
type UserUpdateInput struct {
	Email            *string   `json:"email"`
	FirstName        *string   `json:"firstName"`
	LastName         *string   `json:"lastName"`
	StudentID        *string   `json:"studentId"`
	Suborganizations *[]string `json:"suborganizations"`
	Status           *string   `json:"status"`
}

// creatableRoles lists which roles each administrative role may provision.
func creatableRoles(caller rbac.Role) []rbac.Role {
	switch caller {
	case rbac.RoleSuperadmin:
		return []rbac.Role{rbac.RoleAdmin}
	case rbac.RoleAdmin:
		return []rbac.Role{rbac.RoleOrganization, rbac.RoleStudent}
	default:
		return nil
	}
}

func roleAllowed(allowed []rbac.Role, role rbac.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// CreateUser provisions an account. Superadmins create admins (with an
// explicit organization); admins create organization and student users in
// their own organization.
func (s *Service) CreateUser(ctx context.Context, caller store.User, input UserInput) (store.User, error) {
	if !rbac.Valid(input.Role) {
		return store.User{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid user fields", []string{"role"})
	}
	role := rbac.Role(input.Role)
	if !roleAllowed(creatableRoles(caller.Role), role) {
		return store.User{}, domainError(http.StatusForbidden, "FORBIDDEN", "Cannot create accounts with this role", nil)
	}

	orgID := caller.OrganizationID
	if caller.Role == rbac.RoleSuperadmin {
		orgID = input.OrganizationID
	}

	var fields []string
	emailAddr := strings.TrimSpace(strings.ToLower(input.Email))
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		fields = append(fields, "email")
	}
	if strings.TrimSpace(input.FirstName) == "" {
		fields = append(fields, "firstName")
	}
	if orgID == "" {
		fields = append(fields, "organizationId")
	}
	if role == rbac.RoleStudent && strings.TrimSpace(input.StudentID) == "" {
		fields = append(fields, "studentId")
	}
	if role != rbac.RoleStudent && len(input.Suborganizations) > 0 {
		fields = append(fields, "suborganizations")
	}
	if len(fields) > 0 {
		return store.User{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid user fields", fields)
	}

	if caller.Role == rbac.RoleSuperadmin {
		if _, err := s.store.GetOrganization(ctx, orgID); err != nil {
			return store.User{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown organization", nil)
		}
	}
	if err := s.checkSuborgs(ctx, orgID, input.Suborganizations); err != nil {
		return store.User{}, err
	}

	hash, err := credentials.HashPassword(input.Password)
	if err != nil {
		return store.User{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), []string{"password"})
	}

	user := store.User{
		ID:             util.NewID("usr"),
		Email:          emailAddr,
		PasswordHash:   hash,
		Role:           role,
		FirstName:      pagedoc.SanitizeText(input.FirstName),
		LastName:       pagedoc.SanitizeText(input.LastName),
		OrganizationID: orgID,
		StudentID:      strings.TrimSpace(input.StudentID),
		Suborgs:        input.Suborganizations,
		Status:         store.StatusActive,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return store.User{}, domainError(http.StatusConflict, "CONFLICT", "Email already registered", nil)
		}
		return store.User{}, err
	}

	s.sendWelcome(user)
	return user, nil
}

// checkSuborgs verifies every referenced suborganization is an
// organization-role user of the same organization.
func (s *Service) checkSuborgs(ctx context.Context, orgID string, suborgs []string) error {
	for _, id := range suborgs {
		ref, err := s.store.GetUserByID(ctx, id)
		if err != nil || ref.Role != rbac.RoleOrganization || ref.OrganizationID != orgID {
			return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid suborganization reference", []string{id})
		}
	}
	return nil
}

// canManageUser: admins manage organization/student accounts of their own
// organization; superadmins manage admins.
func canManageUser(caller store.User, target store.User) bool {
	switch caller.Role {
	case rbac.RoleSuperadmin:
		return target.Role == rbac.RoleAdmin
	case rbac.RoleAdmin:
		return target.OrganizationID == caller.OrganizationID &&
			(target.Role == rbac.RoleOrganization || target.Role == rbac.RoleStudent)
	default:
		return false
	}
}

// ListUsers returns the accounts the caller administers.
func (s *Service) ListUsers(ctx context.Context, caller store.User) ([]store.User, error) {
	switch caller.Role {
	case rbac.RoleSuperadmin:
		return s.store.ListUsers(ctx, "", []rbac.Role{rbac.RoleAdmin})
	case rbac.RoleAdmin:
		return s.store.ListUsers(ctx, caller.OrganizationID, []rbac.Role{rbac.RoleOrganization, rbac.RoleStudent})
	default:
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
}

// UpdateUser applies a partial update to a managed account.
func (s *Service) UpdateUser(ctx context.Context, caller store.User, userID string, input UserUpdateInput) (store.User, error) {
	target, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return store.User{}, err
	}
	if !canManageUser(caller, target) {
		return store.User{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	update := store.UserUpdate{}
	if input.Email != nil {
		emailAddr := strings.TrimSpace(strings.ToLower(*input.Email))
		if emailAddr == "" || !strings.Contains(emailAddr, "@") {
			return store.User{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid user fields", []string{"email"})
		}
		update.Email = &emailAddr
	}
	if input.FirstName != nil {
		name := pagedoc.SanitizeText(*input.FirstName)
		update.FirstName = &name
	}
	if input.LastName != nil {
		name := pagedoc.SanitizeText(*input.LastName)
		update.LastName = &name
	}
	if input.StudentID != nil {
		if target.Role == rbac.RoleStudent && strings.TrimSpace(*input.StudentID) == "" {
			return store.User{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid user fields", []string{"studentId"})
		}
		update.StudentID = input.StudentID
	}
	if input.Suborganizations != nil {
		if target.Role != rbac.RoleStudent {
			return store.User{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid user fields", []string{"suborganizations"})
		}
		if err := s.checkSuborgs(ctx, target.OrganizationID, *input.Suborganizations); err != nil {
			return store.User{}, err
		}
		update.Suborgs = input.Suborganizations
	}
	if input.Status != nil {
		status := store.Status(*input.Status)
		if !status.Valid() {
			return store.User{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid user fields", []string{"status"})
		}
		update.Status = &status
	}

	if err := s.store.UpdateUser(ctx, userID, update); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return store.User{}, domainError(http.StatusConflict, "CONFLICT", "Email already registered", nil)
		}
		return store.User{}, err
	}
	return s.store.GetUserByID(ctx, userID)
}

// DeactivateUser soft-deletes an account by setting its status inactive.
// Accounts are never hard-deleted.
func (s *Service) DeactivateUser(ctx context.Context, caller store.User, userID string) error {
	target, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !canManageUser(caller, target) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	inactive := store.StatusInactive
	return s.store.UpdateUser(ctx, userID, store.UserUpdate{Status: &inactive})
}

// BulkImportResult summarizes one roster import.
type BulkImportResult struct {
	Inserted int               `json:"inserted"`
	Skipped  []bulkimport.Skip `json:"skipped"`
}

// BulkImportStudents parses an XLSX roster and provisions a student account
// per valid row in the caller's organization. Duplicate emails become skips,
// not failures.
func (s *Service) BulkImportStudents(ctx context.Context, caller store.User, r io.Reader) (BulkImportResult, error) {
	rows, skips, err := bulkimport.Parse(r)
	if err != nil {
		return BulkImportResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}

	result := BulkImportResult{Skipped: skips}
	if result.Skipped == nil {
		result.Skipped = []bulkimport.Skip{}
	}
	for _, row := range rows {
		_, err := s.CreateUser(ctx, caller, UserInput{
			Email:     row.Email,
			Password:  row.Password,
			Role:      string(rbac.RoleStudent),
			FirstName: row.FirstName,
			LastName:  row.LastName,
			StudentID: row.StudentID,
		})
		if err != nil {
			reason := "could not create account"
			var domainErr *DomainError
			if errors.As(err, &domainErr) {
				reason = domainErr.Message
			}
			result.Skipped = append(result.Skipped, bulkimport.Skip{Line: row.Line, Reason: reason})
			continue
		}
		result.Inserted++
	}
	return result, nil
}

// Organization administration. Superadmin only, enforced by the router.

func (s *Service) ListOrganizations(ctx context.Context) ([]store.Organization, error) {
	return s.store.ListOrganizations(ctx)
}

func (s *Service) CreateOrganization(ctx context.Context, name string) (store.Organization, error) {
	name = pagedoc.SanitizeText(name)
	if strings.TrimSpace(name) == "" {
		return store.Organization{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid organization fields", []string{"name"})
	}
	org := store.Organization{ID: util.NewID("org"), Name: name}
	if err := s.store.CreateOrganization(ctx, org); err != nil {
		return store.Organization{}, err
	}
	return org, nil
}

func (s *Service) UpdateOrganization(ctx context.Context, orgID, name string) (store.Organization, error) {
	name = pagedoc.SanitizeText(name)
	if strings.TrimSpace(name) == "" {
		return store.Organization{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid organization fields", []string{"name"})
	}
	if err := s.store.UpdateOrganization(ctx, orgID, name); err != nil {
		return store.Organization{}, err
	}
	return s.store.GetOrganization(ctx, orgID)
}

// DeleteOrganization refuses to remove an organization that still has
// accounts.
func (s *Service) DeleteOrganization(ctx context.Context, orgID string) error {
	users, err := s.store.ListUsers(ctx, orgID, nil)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return domainError(http.StatusConflict, "CONFLICT", "Organization still has accounts", nil)
	}
	return s.store.DeleteOrganization(ctx, orgID)
}

func (s *Service) sendWelcome(user store.User) {
	if s.email == nil || !s.email.IsConfigured() {
		return
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	go func() {
		if err := s.email.SendWelcomeEmail(user.Email, name, s.loginURL); err != nil {
			s.logger.Warn("send welcome email", zap.String("user", user.ID), zap.Error(err))
		}
	}()
}
