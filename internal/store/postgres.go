package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/r-alnz/Docurate-sub000/internal/rbac"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const userColumns = `id, email, password_hash, role, first_name, last_name, COALESCE(organization_id, ''), student_id, status, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.FirstName,
		&user.LastName,
		&user.OrganizationID,
		&user.StudentID,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
	if err != nil {
		return User{}, err
	}
	if err := s.loadSuborgs(ctx, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email))
	if err != nil {
		return User{}, err
	}
	if err := s.loadSuborgs(ctx, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) loadSuborgs(ctx context.Context, user *User) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT suborg_user_id FROM user_suborganizations WHERE user_id=$1 ORDER BY suborg_user_id
	`, user.ID)
	if err != nil {
		return fmt.Errorf("load suborganizations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan suborganization: %w", err)
		}
		user.Suborgs = append(user.Suborgs, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate suborganizations: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, role, first_name, last_name, organization_id, student_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
	`, user.ID, user.Email, user.PasswordHash, user.Role, user.FirstName, user.LastName, user.OrganizationID, user.StudentID, user.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	if len(user.Suborgs) > 0 {
		if err := s.replaceSuborgs(ctx, user.ID, user.Suborgs); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) replaceSuborgs(ctx context.Context, userID string, suborgs []string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_suborganizations WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("clear suborganizations: %w", err)
	}
	for _, suborgID := range suborgs {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO user_suborganizations (user_id, suborg_user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, userID, suborgID); err != nil {
			return fmt.Errorf("insert suborganization: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, userID string, update UserUpdate) error {
	sets := []string{"updated_at=NOW()"}
	args := []any{userID}
	n := 2
	appendSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s=$%d", column, n))
		args = append(args, value)
		n++
	}
	if update.Email != nil {
		appendSet("email", *update.Email)
	}
	if update.FirstName != nil {
		appendSet("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		appendSet("last_name", *update.LastName)
	}
	if update.StudentID != nil {
		appendSet("student_id", *update.StudentID)
	}
	if update.Status != nil {
		appendSet("status", *update.Status)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id=$1`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	if update.Suborgs != nil {
		return s.replaceSuborgs(ctx, userID, *update.Suborgs)
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListUsers returns users in one organization, or every user when orgID is
// empty (superadmin view). Roles narrows the result when non-empty.
func (s *PostgresStore) ListUsers(ctx context.Context, orgID string, roles []rbac.Role) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ($1='' OR organization_id=$1)`
	args := []any{orgID}
	if len(roles) > 0 {
		placeholders := make([]string, len(roles))
		for i, role := range roles {
			placeholders[i] = fmt.Sprintf("$%d", i+2)
			args = append(args, role)
		}
		query += ` AND role IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetOrganization(ctx context.Context, orgID string) (Organization, error) {
	var org Organization
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM organizations WHERE id=$1
	`, orgID).Scan(&org.ID, &org.Name, &org.CreatedAt)
	if err != nil {
		return Organization{}, err
	}
	return org, nil
}

func (s *PostgresStore) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at FROM organizations ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	items := make([]Organization, 0)
	for rows.Next() {
		var org Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		items = append(items, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CreateOrganization(ctx context.Context, org Organization) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name) VALUES ($1, $2)
	`, org.ID, org.Name)
	if err != nil {
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateOrganization(ctx context.Context, orgID, name string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE organizations SET name=$2 WHERE id=$1
	`, orgID, name)
	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update organization rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteOrganization(ctx context.Context, orgID string) error {
	var userCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE organization_id=$1`, orgID).Scan(&userCount); err != nil {
		return fmt.Errorf("count organization users: %w", err)
	}
	if userCount > 0 {
		return fmt.Errorf("organization has %d users", userCount)
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM organizations WHERE id=$1`, orgID)
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete organization rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id
		FROM refresh_sessions
		WHERE token_hash=$1 AND revoked_at IS NULL AND expires_at > NOW()
	`, tokenHash).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

// ErrDuplicateEmail signals the unique constraint on users.email.
var ErrDuplicateEmail = errors.New("email already registered")

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	// SQLSTATE 23505 is unique_violation.
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
