package app

import (
	"net/http"
	"testing"

	"github.com/r-alnz/Docurate-sub000/internal/rbac"
	"github.com/r-alnz/Docurate-sub000/internal/store"
)

func TestSearchTypeFilter(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	seedUser(fs, "student1", rbac.RoleStudent, "org1")

	handler := newTestServer(fs)
	sess := login(t, handler, "student1@example.edu", "correct horse")
	token := sess["token"].(string)

	cases := []struct {
		query      string
		wantStatus int
	}{
		{"q=thesis", http.StatusOK},
		{"q=thesis&type=document", http.StatusOK},
		{"q=thesis&type=template", http.StatusOK},
		{"q=thesis&type=revision", http.StatusUnprocessableEntity},
		{"q=thesis&type=DOCUMENT", http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		rr, body := doJSON(t, handler, http.MethodGet, "/api/search?"+tc.query, token, nil)
		if rr.Code != tc.wantStatus {
			t.Fatalf("GET /api/search?%s = %d, want %d (%v)", tc.query, rr.Code, tc.wantStatus, body)
		}
		if tc.wantStatus == http.StatusUnprocessableEntity && body["code"] != "VALIDATION_ERROR" {
			t.Fatalf("GET /api/search?%s code = %v", tc.query, body["code"])
		}
	}
}

// Over HTTP, a role-hidden template and an unknown id must produce the same
// response body.
func TestGetTemplateHTTP_HiddenMatchesMissing(t *testing.T) {
	fs := newFakeStore()
	seedOrg(fs, "org1", "Alpha University")
	seedUser(fs, "student1", rbac.RoleStudent, "org1")
	seedTemplate(fs, "tplO", "org1", rbac.RoleOrganization, store.StatusActive)

	handler := newTestServer(fs)
	sess := login(t, handler, "student1@example.edu", "correct horse")
	token := sess["token"].(string)

	hidden, _ := doJSON(t, handler, http.MethodGet, "/api/templates/tplO", token, nil)
	missing, _ := doJSON(t, handler, http.MethodGet, "/api/templates/no-such-id", token, nil)

	if hidden.Code != http.StatusNotFound || missing.Code != http.StatusNotFound {
		t.Fatalf("statuses = %d and %d, want 404 for both", hidden.Code, missing.Code)
	}
	if hidden.Body.String() != missing.Body.String() {
		t.Fatalf("bodies differ:\nhidden:  %s\nmissing: %s", hidden.Body.String(), missing.Body.String())
	}
}
