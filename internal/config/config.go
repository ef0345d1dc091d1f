// Package config centralizes the environment variables the scan engine and
// its surrounding API/worker processes read, following the same
// os.Getenv-driven style main.go and the service constructors already use.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/hounddogai/scan-engine/catalog"
	"github.com/hounddogai/scan-engine/internal/logger"
)

// RuleCatalogConfig controls where the RuleCatalog is loaded from.
type RuleCatalogConfig struct {
	RemoteBaseURL string
	RemoteAPIKey  string
	LocalDir      string
}

// LoadRuleCatalogConfig reads HOUNDDOG_API_URL/HOUNDDOG_API_KEY/HOUNDDOG_RULES_DIR
// from the environment, the same way main.go reads DB_HOST/DB_PORT/etc.
func LoadRuleCatalogConfig() RuleCatalogConfig {
	cfg := RuleCatalogConfig{
		RemoteBaseURL: os.Getenv("HOUNDDOG_API_URL"),
		RemoteAPIKey:  os.Getenv("HOUNDDOG_API_KEY"),
		LocalDir:      os.Getenv("HOUNDDOG_RULES_DIR"),
	}
	if cfg.RemoteBaseURL == "" {
		cfg.RemoteBaseURL = "https://api.hounddog.ai"
	}
	if cfg.LocalDir == "" {
		cfg.LocalDir = "./rules"
	}
	return cfg
}

// LoadRuleCatalog builds a RuleCatalog: remote when an API key is configured,
// local JSON otherwise.
func LoadRuleCatalog() (*catalog.RuleCatalog, error) {
	cfg := LoadRuleCatalogConfig()

	if cfg.RemoteAPIKey != "" {
		logger.Info("loading rule catalog from remote HoundDog API")
		client := catalog.NewRemoteClient(cfg.RemoteBaseURL, cfg.RemoteAPIKey)
		return client.LoadRemote()
	}

	logger.Info("loading rule catalog from local directory: " + cfg.LocalDir)
	return catalog.LoadLocal(cfg.LocalDir)
}

// ParseSkipList splits a comma-separated environment variable value into a
// set, trimming whitespace around each entry and dropping empty ones. Case
// is kept as given.
func ParseSkipList(value string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out[part] = struct{}{}
	}
	return out
}

// FindingStorePath resolves the path to the SQLite file backing the
// transient per-scan finding store, defaulting to an in-memory database.
func FindingStorePath() string {
	if path := os.Getenv("HOUNDDOG_FINDINGS_DB"); path != "" {
		return path
	}
	return ":memory:"
}

// MaxScanFiles reads an optional cap on the number of files scanned,
// mirroring the MaxFiles knob on services.ScanOptions.
func MaxScanFiles() int {
	v := os.Getenv("HOUNDDOG_MAX_SCAN_FILES")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
