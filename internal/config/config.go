// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all webdump server configuration.
type Config struct {
	// Scan
	Dir       string
	Recursive bool

	// Server
	IP   string
	Port int

	// Metrics (empty addr disables the metrics listener)
	MetricsAddr string

	// Logging
	Verbose   bool
	LogLevel  string
	LogFormat string

	// Previews
	MaxPreviewBytes int64

	// TLS (optional — if both set, server uses HTTPS)
	TLSCertFile string
	TLSKeyFile  string

	// Shutdown
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables with defaults.
// Flag overrides are applied by the caller after Load.
func Load() *Config {
	return &Config{
		Dir:             envOr("WEBDUMP_DIR", ""),
		Recursive:       envBool("WEBDUMP_RECURSIVE", false),
		IP:              envOr("WEBDUMP_IP", "0.0.0.0"),
		Port:            envInt("WEBDUMP_PORT", 8000),
		MetricsAddr:     envOr("WEBDUMP_METRICS_ADDR", ":9090"),
		Verbose:         envBool("WEBDUMP_VERBOSE", false),
		LogLevel:        envOr("WEBDUMP_LOG_LEVEL", "info"),
		LogFormat:       envOr("WEBDUMP_LOG_FORMAT", "console"),
		MaxPreviewBytes: envInt64("WEBDUMP_MAX_PREVIEW_BYTES", 256*1024),
		TLSCertFile:     envOr("WEBDUMP_TLS_CERT", ""),
		TLSKeyFile:      envOr("WEBDUMP_TLS_KEY", ""),
		ShutdownTimeout: envDuration("WEBDUMP_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}

// EffectiveLogLevel returns the log level, with Verbose forcing debug.
func (c *Config) EffectiveLogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.LogLevel
}

// ResolveDir validates the configured directory and returns its absolute,
// symlink-resolved path.
func (c *Config) ResolveDir() (string, error) {
	if c.Dir == "" {
		return "", fmt.Errorf("directory is required (-d flag or WEBDUMP_DIR)")
	}
	abs, err := filepath.Abs(c.Dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", c.Dir, err)
	}
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", abs, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root path %s is not a directory", root)
	}
	return root, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
