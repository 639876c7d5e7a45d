package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler(called *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}
}

func TestAuthDisabledAllowsAll(t *testing.T) {
	called := false
	handler := Credentials{}.requireAuth(okHandler(&called))

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/status", nil))

	if !called || w.Code != http.StatusOK {
		t.Errorf("expected handler to run without auth, code %d", w.Code)
	}
}

func TestAuthPartialCredentialsDisabled(t *testing.T) {
	if (Credentials{User: "ra"}).Enabled() {
		t.Error("auth should need both user and password")
	}
}

func TestAuthRequiresCredentials(t *testing.T) {
	creds := Credentials{User: "ra", Pass: "secret"}

	tests := []struct {
		name       string
		user, pass string
		basic      bool
		wantCode   int
	}{
		{"missing", "", "", false, http.StatusUnauthorized},
		{"wrong password", "ra", "nope", true, http.StatusUnauthorized},
		{"wrong user", "pi", "secret", true, http.StatusUnauthorized},
		{"valid", "ra", "secret", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := creds.requireAuth(okHandler(&called))

			req := httptest.NewRequest("GET", "/events", nil)
			if tt.basic {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			w := httptest.NewRecorder()
			handler(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if called != (tt.wantCode == http.StatusOK) {
				t.Errorf("handler called = %v", called)
			}
			if tt.wantCode == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
		})
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("DYNAMICSEG_MONITOR_USER", "ra")
	t.Setenv("DYNAMICSEG_MONITOR_USER_FILE", "")
	t.Setenv("DYNAMICSEG_MONITOR_PASS", "secret")
	t.Setenv("DYNAMICSEG_MONITOR_PASS_FILE", "")

	creds, err := CredentialsFromEnv()
	if err != nil {
		t.Fatalf("CredentialsFromEnv: %v", err)
	}
	if !creds.Enabled() || creds.User != "ra" || creds.Pass != "secret" {
		t.Errorf("unexpected credentials %+v", creds)
	}

	t.Setenv("DYNAMICSEG_MONITOR_PASS_FILE", "/nonexistent/pass")
	if _, err := CredentialsFromEnv(); err == nil {
		t.Error("expected error for unreadable password file")
	}
}

func TestSecureCompare(t *testing.T) {
	if !secureCompare("abc", "abc") {
		t.Error("equal strings should match")
	}
	if secureCompare("abc", "abd") || secureCompare("abc", "abcd") {
		t.Error("different strings should not match")
	}
}
