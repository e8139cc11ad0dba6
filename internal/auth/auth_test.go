package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")

	token, err := v.Sign("user-1", "user@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Sign error = %v", err)
	}

	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify error = %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewVerifier("secret-a").Sign("user-1", "", time.Hour)
	if err != nil {
		t.Fatalf("Sign error = %v", err)
	}
	if _, err := NewVerifier("secret-b").Verify(token); err == nil {
		t.Fatal("Verify accepted a token signed with a different secret")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	v := NewVerifier("test-secret")
	token, err := v.Sign("user-1", "", -time.Minute)
	if err != nil {
		t.Fatalf("Sign error = %v", err)
	}
	if _, err := v.Verify(token); err == nil {
		t.Fatal("Verify accepted an expired token")
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier("test-secret")
	var gotSubject string
	handler := Middleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if !ok {
			t.Error("claims missing from context")
			return
		}
		gotSubject = claims.Subject
	}))

	t.Run("valid token", func(t *testing.T) {
		token, _ := v.Sign("user-7", "", time.Hour)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if gotSubject != "user-7" {
			t.Fatalf("subject = %q, want user-7", gotSubject)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}
