package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stepwise-health/stepwise/internal/rbac"
)

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("test-secret", time.Hour)
	tok, err := a.IssueJWT("P1001", "participant")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Sub != "P1001" || c.Role != "participant" {
		t.Errorf("claims = %+v", c)
	}
	if c.ID == "" {
		t.Error("jti not set")
	}

	other := NewAuthService("different-secret", time.Hour)
	if _, err := other.Parse(tok); err == nil {
		t.Error("token accepted with wrong secret")
	}
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("test-secret", time.Hour)
	tok, _ := a.IssueJWT("C100", "clinician")

	var gotSub, gotRole string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = rbac.SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/review/pending", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotSub != "C100" || gotRole != "clinician" {
		t.Errorf("context sub=%q role=%q", gotSub, gotRole)
	}

	req = httptest.NewRequest("GET", "/review/pending", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing bearer: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest("GET", "/review/pending", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}
}
