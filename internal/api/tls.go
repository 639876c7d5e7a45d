package api

import (
	"crypto/tls"
	"fmt"

	"github.com/AaronLay10/DynamicSeg/internal/config"
)

// TLSFiles names a certificate and key pair.
type TLSFiles struct {
	CertFile string
	KeyFile  string
}

// Enabled reports whether both files are set.
func (f TLSFiles) Enabled() bool {
	return f.CertFile != "" && f.KeyFile != ""
}

// TLSFilesFromEnv reads DYNAMICSEG_TLS_CERT and DYNAMICSEG_TLS_KEY.
// TLS stays off unless both are set.
func TLSFilesFromEnv() TLSFiles {
	return TLSFiles{
		CertFile: config.Getenv("DYNAMICSEG_TLS_CERT", ""),
		KeyFile:  config.Getenv("DYNAMICSEG_TLS_KEY", ""),
	}
}

// Load reads the key pair.
func (f TLSFiles) Load() (*tls.Config, error) {
	if !f.Enabled() {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(f.CertFile, f.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
