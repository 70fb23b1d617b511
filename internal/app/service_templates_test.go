package app

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/r-alnz/Docurate-sub000/internal/rbac"
	"github.com/r-alnz/Docurate-sub000/internal/search"
	"github.com/r-alnz/Docurate-sub000/internal/store"
)

func TestGetTemplate_VisibilityByRole(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	seedOrg(fs, "org2", "Beta College")
	admin := seedUser(fs, "admin1", rbac.RoleAdmin, "org1")
	student := seedUser(fs, "student1", rbac.RoleStudent, "org1")
	orgUser := seedUser(fs, "orguser1", rbac.RoleOrganization, "org1")
	outsider := seedUser(fs, "student2", rbac.RoleStudent, "org2")
	super := seedUser(fs, "root", rbac.RoleSuperadmin, "")

	studentTpl := seedTemplate(fs, "tplS", "org1", rbac.RoleStudent, store.StatusActive)
	orgTpl := seedTemplate(fs, "tplO", "org1", rbac.RoleOrganization, store.StatusActive)
	archived := seedTemplate(fs, "tplX", "org1", rbac.RoleStudent, store.StatusInactive)

	svc := newTestService(fs)
	ctx := context.Background()

	cases := []struct {
		name    string
		caller  store.User
		tplID   string
		visible bool
	}{
		{"student sees own role template", student, studentTpl.ID, true},
		{"student cannot see organization template", student, orgTpl.ID, false},
		{"student cannot see archived template", student, archived.ID, false},
		{"organization user sees organization template", orgUser, orgTpl.ID, true},
		{"organization user cannot see student template", orgUser, studentTpl.ID, false},
		{"cross-org student sees nothing", outsider, studentTpl.ID, false},
		{"admin sees archived template in own org", admin, archived.ID, true},
		{"superadmin sees everything", super, archived.ID, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.GetTemplate(ctx, tc.caller, tc.tplID)
			if tc.visible && err != nil {
				t.Fatalf("expected template visible, got %v", err)
			}
			if !tc.visible {
				var domainErr *DomainError
				if !errors.As(err, &domainErr) || domainErr.Status != 404 {
					t.Fatalf("expected 404 for hidden template, got %v", err)
				}
			}
		})
	}
}

// A template hidden by role must be indistinguishable from one that does not
// exist.
func TestGetTemplate_HiddenLooksLikeMissing(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	student := seedUser(fs, "student1", rbac.RoleStudent, "org1")
	seedTemplate(fs, "tplO", "org1", rbac.RoleOrganization, store.StatusActive)

	svc := newTestService(fs)
	ctx := context.Background()

	_, hiddenErr := svc.GetTemplate(ctx, student, "tplO")
	_, missingErr := svc.GetTemplate(ctx, student, "no-such-template")

	var hidden, missing *DomainError
	if !errors.As(hiddenErr, &hidden) || !errors.As(missingErr, &missing) {
		t.Fatalf("expected domain errors, got %v and %v", hiddenErr, missingErr)
	}
	if hidden.Status != missing.Status || hidden.Code != missing.Code || hidden.Message != missing.Message {
		t.Fatalf("hidden template leaks existence: %v vs %v", hidden, missing)
	}
}

func TestListActiveTemplates_CrossOrg(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	seedOrg(fs, "org2", "Beta College")
	admin := seedUser(fs, "admin1", rbac.RoleAdmin, "org1")
	sameOrgStudent := seedUser(fs, "student1", rbac.RoleStudent, "org1")
	otherOrgStudent := seedUser(fs, "student2", rbac.RoleStudent, "org2")

	svc := newTestService(fs)
	ctx := context.Background()

	created, err := svc.CreateTemplate(ctx, admin, TemplateInput{
		Name:         "Capstone Proposal",
		Content:      "<p>proposal body</p>",
		Type:         "Proposal",
		RequiredRole: "student",
		PaperSize:    "a4",
	})
	if err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}
	if created.OrganizationID != "org1" {
		t.Fatalf("template stamped with org %q, want org1", created.OrganizationID)
	}

	visible, err := svc.ListActiveTemplates(ctx, sameOrgStudent)
	if err != nil {
		t.Fatalf("ListActiveTemplates failed: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != created.ID {
		t.Fatalf("same-org student should see the new template, got %v", visible)
	}

	hidden, err := svc.ListActiveTemplates(ctx, otherOrgStudent)
	if err != nil {
		t.Fatalf("ListActiveTemplates failed: %v", err)
	}
	if len(hidden) != 0 {
		t.Fatalf("cross-org student should see nothing, got %v", hidden)
	}
}

func TestSetTemplateStatus_Idempotent(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	admin := seedUser(fs, "admin1", rbac.RoleAdmin, "org1")
	tpl := seedTemplate(fs, "tpl1", "org1", rbac.RoleStudent, store.StatusActive)

	svc := newTestService(fs)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.SetTemplateStatus(ctx, admin, tpl.ID, store.StatusInactive); err != nil {
			t.Fatalf("archive pass %d failed: %v", i+1, err)
		}
	}
	if fs.templates[tpl.ID].Status != store.StatusInactive {
		t.Fatalf("template not archived")
	}

	if err := svc.SetTemplateStatus(ctx, admin, tpl.ID, store.StatusActive); err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if fs.templates[tpl.ID].Status != store.StatusActive {
		t.Fatalf("template not recovered")
	}
}

// Archiving and recovering run the search index updates when a search
// service is configured.
func TestSetTemplateStatus_SearchIndexUpdates(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	admin := seedUser(fs, "admin1", rbac.RoleAdmin, "org1")
	tpl := seedTemplate(fs, "tpl1", "org1", rbac.RoleStudent, store.StatusActive)

	svc := NewService(testConfig(), fs, zap.NewNop(), Options{
		Search: search.NewService(nil, nil, zap.NewNop()),
	})
	ctx := context.Background()

	if err := svc.SetTemplateStatus(ctx, admin, tpl.ID, store.StatusInactive); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if fs.templates[tpl.ID].Status != store.StatusInactive {
		t.Fatalf("template not archived")
	}
	if err := svc.SetTemplateStatus(ctx, admin, tpl.ID, store.StatusActive); err != nil {
		t.Fatalf("recover failed: %v", err)
	}
}

func TestCreateTemplate_RejectsInvalidRequiredRole(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	admin := seedUser(fs, "admin1", rbac.RoleAdmin, "org1")

	svc := newTestService(fs)

	_, err := svc.CreateTemplate(context.Background(), admin, TemplateInput{
		Name:         "Broken",
		Content:      "<p>x</p>",
		Type:         "Thesis",
		RequiredRole: "admin",
		PaperSize:    "letter",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR for admin requiredRole, got %v", err)
	}
}

func TestDecisionTree_GroupsByTypeAndSubtype(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	student := seedUser(fs, "student1", rbac.RoleStudent, "org1")

	plain := seedTemplate(fs, "tpl1", "org1", rbac.RoleStudent, store.StatusActive)
	withSubtype := seedTemplate(fs, "tpl2", "org1", rbac.RoleStudent, store.StatusActive)
	withSubtype.Subtype = "Engineering"
	fs.templates[withSubtype.ID] = withSubtype

	svc := newTestService(fs)
	tree, err := svc.DecisionTree(context.Background(), student)
	if err != nil {
		t.Fatalf("DecisionTree failed: %v", err)
	}

	node, ok := tree["Thesis"]
	if !ok {
		t.Fatalf("expected Thesis node, got %v", tree)
	}
	if len(node.Names) != 1 || node.Names[0].ID != plain.ID {
		t.Fatalf("expected subtype-free template under names, got %v", node.Names)
	}
	leaves, ok := node.Subtypes["Engineering"]
	if !ok || len(leaves) != 1 || leaves[0].ID != withSubtype.ID {
		t.Fatalf("expected Engineering subtype leaf, got %v", node.Subtypes)
	}
}
