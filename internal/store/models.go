package store

import (
	"time"

	"github.com/r-alnz/Docurate-sub000/internal/pagedoc"
	"github.com/r-alnz/Docurate-sub000/internal/rbac"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type User struct {
	ID             string
	Email          string
	PasswordHash   string
	Role           rbac.Role
	FirstName      string
	LastName       string
	OrganizationID string
	StudentID      string
	Suborgs        []string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type Template struct {
	ID             string
	OrganizationID string
	Name           string
	Type           string
	Subtype        string
	RequiredRole   rbac.Role
	PaperSize      pagedoc.PaperSize
	Margins        pagedoc.Margins
	Content        string
	HeaderImageKey string
	FooterImageKey string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TemplateHeader is the content-free projection used by list/preview UIs.
type TemplateHeader struct {
	ID             string
	OrganizationID string
	Name           string
	Type           string
	Subtype        string
	RequiredRole   rbac.Role
	PaperSize      pagedoc.PaperSize
	Margins        pagedoc.Margins
	HeaderImageKey string
	FooterImageKey string
}

type Document struct {
	ID             string
	TemplateID     string
	OrganizationID string
	UserID         string
	Title          string
	Content        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DocumentDetail resolves the referenced template, organization, and owner
// at read time.
type DocumentDetail struct {
	Document
	TemplateName      string
	TemplatePaperSize pagedoc.PaperSize
	TemplateMargins   pagedoc.Margins
	OrganizationName  string
	OwnerFirstName    string
	OwnerLastName     string
}

type Revision struct {
	ID             string
	DocumentID     string
	UserID         string
	OrganizationID string
	Name           string
	Content        string
	CreatedAt      time.Time
}

// RevisionSummary omits content for list views.
type RevisionSummary struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type RemovalStatus string

const (
	RemovalPending  RemovalStatus = "pending"
	RemovalApproved RemovalStatus = "approved"
	RemovalRejected RemovalStatus = "rejected"
)

func (s RemovalStatus) Valid() bool {
	return s == RemovalPending || s == RemovalApproved || s == RemovalRejected
}

type RemovalRequest struct {
	ID             string
	RequesterName  string
	TargetName     string
	StudentID      string
	Reason         string
	OrganizationID string
	Status         RemovalStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TemplateFilter narrows template reads. Zero values mean "no constraint";
// scoping by organization is always required.
type TemplateFilter struct {
	OrganizationID string
	RequiredRole   rbac.Role // empty: any role (admin view)
	ActiveOnly     bool
}

// UserUpdate carries partial user mutations; nil fields are left untouched.
type UserUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	StudentID *string
	Suborgs   *[]string
	Status    *Status
}

// TemplateUpdate carries partial template mutations.
type TemplateUpdate struct {
	Name         *string
	Type         *string
	Subtype      *string
	RequiredRole *rbac.Role
	PaperSize    *pagedoc.PaperSize
	Margins      *pagedoc.Margins
	Content      *string

	HeaderImageKey *string
	FooterImageKey *string
}
