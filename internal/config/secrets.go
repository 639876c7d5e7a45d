package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret reads envName using the *_FILE convention: if
// envName+"_FILE" is set, the secret is the trimmed content of that file;
// otherwise it is the value of envName itself. Unset yields "".
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if path := os.Getenv(fileEnv); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			// Never include the content, only where it was supposed to come from.
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, path, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}

// Getenv returns the value of name, or def if it is unset or empty.
func Getenv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
