package server

import (
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"
)

// NewTLSConfig loads the certificate pair the bridge API is served with.
// Clients need TLS 1.2 or newer.
func NewTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate %s: %w", certPath, err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// tlsFields describes a TLS config for the startup log.
func tlsFields(certPath string, config *tls.Config) []zap.Field {
	return []zap.Field{
		zap.String("cert", certPath),
		zap.String("min_version", tls.VersionName(config.MinVersion)),
		zap.Int("certificates", len(config.Certificates)),
	}
}
