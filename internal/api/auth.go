package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/AaronLay10/DynamicSeg/internal/config"
)

// Credentials guard every monitor endpoint except /health and /metrics.
// The zero value disables authentication.
type Credentials struct {
	User string
	Pass string
}

// Enabled reports whether both user and password are set.
func (c Credentials) Enabled() bool {
	return c.User != "" && c.Pass != ""
}

// CredentialsFromEnv reads DYNAMICSEG_MONITOR_USER and _PASS, each also
// available through the *_FILE convention.
func CredentialsFromEnv() (Credentials, error) {
	user, err := config.ResolveSecret("DYNAMICSEG_MONITOR_USER")
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to resolve DYNAMICSEG_MONITOR_USER: %w", err)
	}
	pass, err := config.ResolveSecret("DYNAMICSEG_MONITOR_PASS")
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to resolve DYNAMICSEG_MONITOR_PASS: %w", err)
	}
	return Credentials{User: user, Pass: pass}, nil
}

func (c Credentials) allows(r *http.Request) bool {
	if !c.Enabled() {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	// Evaluate both comparisons so timing does not reveal which one failed.
	userOK := secureCompare(user, c.User)
	passOK := secureCompare(pass, c.Pass)
	return userOK && passOK
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// requireAuth wraps handler with HTTP basic auth.
func (c Credentials) requireAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.allows(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="DynamicSeg monitor"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}
}
