package bluxguard

import (
	"log/slog"

	"github.com/bluxlabs/bluxguard/internal/token"
)

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	auditLogPath string
	auditDBPath  string
	secret       []byte
	authority    token.Authority
	logger       *slog.Logger
}

// WithAuditLog sets the path to the hash-chained audit log. When unset,
// decisions are issued without a durable record.
func WithAuditLog(path string) Option {
	return func(c *clientConfig) { c.auditLogPath = path }
}

// WithAuditDB sets the path to the SQLite audit index.
func WithAuditDB(path string) Option {
	return func(c *clientConfig) { c.auditDBPath = path }
}

// WithSecret sets the receipt signing key, bypassing the environment.
func WithSecret(secret []byte) Option {
	return func(c *clientConfig) { c.secret = secret }
}

// WithAuthority sets the capability token authority.
func WithAuthority(a token.Authority) Option {
	return func(c *clientConfig) { c.authority = a }
}

// WithLogger sets the structured logger for degraded-path warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}
