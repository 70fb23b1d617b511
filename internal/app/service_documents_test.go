package app

import (
	"context"
	"errors"
	"testing"

	"github.com/r-alnz/Docurate-sub000/internal/rbac"
	"github.com/r-alnz/Docurate-sub000/internal/store"
)

func TestCreateDocument_ContentDefaultsToTemplate(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	student := seedUser(fs, "student1", rbac.RoleStudent, "org1")
	tpl := seedTemplate(fs, "tpl1", "org1", rbac.RoleStudent, store.StatusActive)

	svc := newTestService(fs)
	doc, err := svc.CreateDocument(context.Background(), student, DocumentInput{
		TemplateID: tpl.ID,
		Title:      "My Thesis",
	})
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if doc.Content != tpl.Content {
		t.Fatalf("content = %q, want template content %q", doc.Content, tpl.Content)
	}
	if doc.UserID != student.ID || doc.OrganizationID != "org1" {
		t.Fatalf("document not stamped with owner and org: %+v", doc)
	}
}

func TestCreateDocument_InvisibleTemplateIs404(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	seedOrg(fs, "org2", "Beta College")
	outsider := seedUser(fs, "student2", rbac.RoleStudent, "org2")
	tpl := seedTemplate(fs, "tpl1", "org1", rbac.RoleStudent, store.StatusActive)

	svc := newTestService(fs)
	_, err := svc.CreateDocument(context.Background(), outsider, DocumentInput{
		TemplateID: tpl.ID,
		Title:      "Stolen",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 404 {
		t.Fatalf("expected 404 for invisible template, got %v", err)
	}
}

func TestUpdateDocument_NonOwnerForbiddenAndUnchanged(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	owner := seedUser(fs, "student1", rbac.RoleStudent, "org1")
	admin := seedUser(fs, "admin1", rbac.RoleAdmin, "org1")
	super := seedUser(fs, "root", rbac.RoleSuperadmin, "")
	tpl := seedTemplate(fs, "tpl1", "org1", rbac.RoleStudent, store.StatusActive)
	doc := seedDocument(fs, "doc1", tpl.ID, "org1", owner.ID)

	svc := newTestService(fs)
	ctx := context.Background()

	title := "Hijacked"
	for _, caller := range []store.User{admin, super} {
		_, err := svc.UpdateDocument(ctx, caller, doc.ID, DocumentUpdateInput{Title: &title})
		var domainErr *DomainError
		if !errors.As(err, &domainErr) || domainErr.Status != 403 {
			t.Fatalf("%s update should be 403, got %v", caller.Role, err)
		}
	}
	if fs.documents[doc.ID].Title != doc.Title {
		t.Fatalf("document mutated by forbidden update: %q", fs.documents[doc.ID].Title)
	}

	updated, err := svc.UpdateDocument(ctx, owner, doc.ID, DocumentUpdateInput{Title: &title})
	if err != nil {
		t.Fatalf("owner update failed: %v", err)
	}
	if updated.Title != "Hijacked" {
		t.Fatalf("owner update not applied: %q", updated.Title)
	}
}

func TestDeleteDocument_OwnerOnly(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	owner := seedUser(fs, "student1", rbac.RoleStudent, "org1")
	admin := seedUser(fs, "admin1", rbac.RoleAdmin, "org1")
	tpl := seedTemplate(fs, "tpl1", "org1", rbac.RoleStudent, store.StatusActive)
	doc := seedDocument(fs, "doc1", tpl.ID, "org1", owner.ID)

	svc := newTestService(fs)
	ctx := context.Background()

	err := svc.DeleteDocument(ctx, admin, doc.ID)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("admin delete should be 403, got %v", err)
	}
	if _, ok := fs.documents[doc.ID]; !ok {
		t.Fatalf("document deleted by non-owner")
	}

	if err := svc.DeleteDocument(ctx, owner, doc.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if _, ok := fs.documents[doc.ID]; ok {
		t.Fatalf("document still present after owner delete")
	}
}

func TestGetDocument_AdminReadsWithinOrg(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	seedOrg(fs, "org2", "Beta College")
	owner := seedUser(fs, "student1", rbac.RoleStudent, "org1")
	sameOrgAdmin := seedUser(fs, "admin1", rbac.RoleAdmin, "org1")
	otherOrgAdmin := seedUser(fs, "admin2", rbac.RoleAdmin, "org2")
	tpl := seedTemplate(fs, "tpl1", "org1", rbac.RoleStudent, store.StatusActive)
	doc := seedDocument(fs, "doc1", tpl.ID, "org1", owner.ID)

	svc := newTestService(fs)
	ctx := context.Background()

	if _, err := svc.GetDocument(ctx, sameOrgAdmin, doc.ID); err != nil {
		t.Fatalf("same-org admin read failed: %v", err)
	}
	_, err := svc.GetDocument(ctx, otherOrgAdmin, doc.ID)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("cross-org admin read should be 403, got %v", err)
	}
}

func TestListRevisions_NewestFirst(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	owner := seedUser(fs, "student1", rbac.RoleStudent, "org1")
	tpl := seedTemplate(fs, "tpl1", "org1", rbac.RoleStudent, store.StatusActive)
	doc := seedDocument(fs, "doc1", tpl.ID, "org1", owner.ID)

	svc := newTestService(fs)
	ctx := context.Background()

	for _, name := range []string{"v1", "v2"} {
		if _, err := svc.CreateRevision(ctx, owner, doc.ID, RevisionInput{Name: name, Content: "<p>" + name + "</p>"}); err != nil {
			t.Fatalf("CreateRevision %s failed: %v", name, err)
		}
	}

	revisions, err := svc.ListRevisions(ctx, owner, doc.ID)
	if err != nil {
		t.Fatalf("ListRevisions failed: %v", err)
	}
	if len(revisions) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(revisions))
	}
	if revisions[0].Name != "v2" || revisions[1].Name != "v1" {
		t.Fatalf("revisions not newest first: %q then %q", revisions[0].Name, revisions[1].Name)
	}
}

func TestCreateRevision_DefaultsNameAndStampsOrg(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	owner := seedUser(fs, "student1", rbac.RoleStudent, "org1")
	tpl := seedTemplate(fs, "tpl1", "org1", rbac.RoleStudent, store.StatusActive)
	doc := seedDocument(fs, "doc1", tpl.ID, "org1", owner.ID)

	svc := newTestService(fs)
	rev, err := svc.CreateRevision(context.Background(), owner, doc.ID, RevisionInput{Content: "<p>save</p>"})
	if err != nil {
		t.Fatalf("CreateRevision failed: %v", err)
	}
	if rev.Name != "Automatic save" {
		t.Fatalf("default revision name = %q", rev.Name)
	}
	if rev.OrganizationID != "org1" || rev.UserID != owner.ID {
		t.Fatalf("revision not stamped: %+v", rev)
	}
}

func TestRevisionAccess_NonOwnerForbidden(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	owner := seedUser(fs, "student1", rbac.RoleStudent, "org1")
	other := seedUser(fs, "student3", rbac.RoleStudent, "org1")
	tpl := seedTemplate(fs, "tpl1", "org1", rbac.RoleStudent, store.StatusActive)
	doc := seedDocument(fs, "doc1", tpl.ID, "org1", owner.ID)

	svc := newTestService(fs)
	ctx := context.Background()

	rev, err := svc.CreateRevision(ctx, owner, doc.ID, RevisionInput{Name: "v1", Content: "<p>x</p>"})
	if err != nil {
		t.Fatalf("CreateRevision failed: %v", err)
	}

	if _, err := svc.ListRevisions(ctx, other, doc.ID); err == nil {
		t.Fatalf("non-owner listed revisions")
	}
	if err := svc.DeleteRevision(ctx, other, doc.ID, rev.ID); err == nil {
		t.Fatalf("non-owner deleted revision")
	}
	if len(fs.revisions) != 1 {
		t.Fatalf("revision mutated by non-owner")
	}
}
