package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pinatree/pinatreebackend/config"
)

func newAuthHandler() (*AuthHandler, *fakeUserRepo) {
	users := newFakeUserRepo()
	cfg := config.Config{JWTSecret: testSecret, JWTExpiryHours: 24}
	return NewAuthHandler(users, cfg), users
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRegister_CreatesUser(t *testing.T) {
	h, users := newAuthHandler()

	rec := postJSON(t, h.Register, "/api/auth/register",
		`{"email":"Alice@Example.com","username":"alice","password":"longenough","display_name":"Alice"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	user, err := users.GetByUsername("alice")
	if err != nil {
		t.Fatalf("registered user not stored: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email not normalized to lower case: %q", user.Email)
	}
	if !user.CheckPassword("longenough") {
		t.Error("stored password hash does not verify")
	}
	if user.PasswordHash == "longenough" {
		t.Error("password stored in plain text")
	}
}

func TestRegister_Validation(t *testing.T) {
	h, _ := newAuthHandler()

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"missing fields", `{"email":"a@b.c"}`, "missing_fields"},
		{"bad email", `{"email":"nobody","username":"x","password":"longenough"}`, "invalid_email"},
		{"short password", `{"email":"a@b.c","username":"x","password":"short"}`, "weak_password"},
		{"bad json", `{`, "invalid_payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.Register, "/api/auth/register", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("expected error code %q, got %q", tt.wantCode, code)
			}
		})
	}
}

func TestRegister_DuplicateConflict(t *testing.T) {
	h, _ := newAuthHandler()

	body := `{"email":"dup@example.com","username":"dup","password":"longenough"}`
	if rec := postJSON(t, h.Register, "/api/auth/register", body); rec.Code != http.StatusCreated {
		t.Fatalf("first registration failed: %d", rec.Code)
	}
	rec := postJSON(t, h.Register, "/api/auth/register", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "already_exists" {
		t.Errorf("expected already_exists, got %q", code)
	}
}

func TestLogin_IssuesToken(t *testing.T) {
	h, users := newAuthHandler()

	if rec := postJSON(t, h.Register, "/api/auth/register",
		`{"email":"carol@example.com","username":"carol","password":"longenough"}`); rec.Code != http.StatusCreated {
		t.Fatalf("registration failed: %d", rec.Code)
	}

	rec := postJSON(t, h.Login, "/api/auth/login", `{"username":"carol","password":"longenough"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("bad login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login response carries no token")
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("login response leaks password material")
	}

	// the issued token must pass the middleware round trip
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	meRec := httptest.NewRecorder()
	AuthMiddleware(users, testSecret, http.HandlerFunc(h.CurrentUser)).ServeHTTP(meRec, req)
	if meRec.Code != http.StatusOK {
		t.Fatalf("issued token rejected by middleware: %d %s", meRec.Code, meRec.Body.String())
	}
}

func TestLogin_AcceptsEmailAsUsername(t *testing.T) {
	h, _ := newAuthHandler()

	if rec := postJSON(t, h.Register, "/api/auth/register",
		`{"email":"dave@example.com","username":"dave","password":"longenough"}`); rec.Code != http.StatusCreated {
		t.Fatalf("registration failed: %d", rec.Code)
	}

	rec := postJSON(t, h.Login, "/api/auth/login", `{"username":"Dave@Example.com","password":"longenough"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login by email failed: %d %s", rec.Code, rec.Body.String())
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h, _ := newAuthHandler()

	if rec := postJSON(t, h.Register, "/api/auth/register",
		`{"email":"eve@example.com","username":"eve","password":"longenough"}`); rec.Code != http.StatusCreated {
		t.Fatalf("registration failed: %d", rec.Code)
	}

	for _, body := range []string{
		`{"username":"eve","password":"wrongwrong"}`,
		`{"username":"nobody","password":"longenough"}`,
	} {
		rec := postJSON(t, h.Login, "/api/auth/login", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "invalid_credentials" {
			t.Errorf("expected invalid_credentials, got %q", code)
		}
	}
}
