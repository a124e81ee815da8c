// Package config is the persisted operator configuration: trust
// sources, manual digests, and override flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/fencegate/fencegate/internal/digest"
	"github.com/fencegate/fencegate/internal/policy"
	"github.com/fencegate/fencegate/internal/truststore"
)

// Config mirrors the on-disk YAML file.
type Config struct {
	// Vault is the root directory of the document vault.
	Vault string `yaml:"vault"`

	// TrustedNotes are vault-relative references to notes whose
	// bodies are parsed as trust lists.
	TrustedNotes []string `yaml:"trusted_notes,omitempty"`
	// TrustedFiles are paths outside the vault parsed the same way.
	TrustedFiles []string `yaml:"trusted_files,omitempty"`
	// TrustedHashes are digests trusted directly.
	TrustedHashes []string `yaml:"trusted_hashes,omitempty"`

	// AllowAll disables gating entirely.
	AllowAll bool `yaml:"allow_all"`
	// AllowIntegrations disables gating for single named engines.
	AllowIntegrations map[string]bool `yaml:"allow_integrations,omitempty"`

	// Integrations names the execution engines to gate.
	Integrations []string `yaml:"integrations,omitempty"`

	// DenialDB is the SQLite file recording denial history.
	DenialDB string `yaml:"denial_db,omitempty"`
	// AuditLog, when set, records every verdict as chained JSONL.
	AuditLog string `yaml:"audit_log,omitempty"`
}

// DefaultPath returns ~/.fencegate/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "fencegate", "config.yaml")
	}
	return filepath.Join(home, ".fencegate", "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Integrations: []string{"python-runner", "js-runner"},
	}
}

// Load reads configuration from a YAML file. Empty path falls back to
// DefaultPath. Missing file returns defaults. Invalid YAML is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration atomically: temp file then rename, so
// a crash mid-write never leaves a truncated config behind.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("config: rename: %w", err)
	}
	return nil
}

// Flags returns the override flags.
func (c *Config) Flags() policy.Flags {
	return policy.Flags{
		GlobalOverride:       c.AllowAll,
		IntegrationOverrides: c.AllowIntegrations,
	}
}

// Manual returns the directly configured digests, normalized.
func (c *Config) Manual() []digest.Entry {
	out := make([]digest.Entry, 0, len(c.TrustedHashes))
	for _, h := range c.TrustedHashes {
		out = append(out, digest.Normalize(h))
	}
	return out
}

// Sources returns the note and external-file trust sources.
func (c *Config) Sources() []truststore.Source {
	var out []truststore.Source
	for _, ref := range c.TrustedNotes {
		out = append(out, truststore.Source{Kind: truststore.KindNote, Ref: ref})
	}
	for _, ref := range c.TrustedFiles {
		out = append(out, truststore.Source{Kind: truststore.KindExternal, Ref: ref})
	}
	return out
}

// AddHash adds a manual digest. Returns false if already present.
func (c *Config) AddHash(h string) bool {
	norm := string(digest.Normalize(h))
	for _, have := range c.TrustedHashes {
		if string(digest.Normalize(have)) == norm {
			return false
		}
	}
	c.TrustedHashes = append(c.TrustedHashes, norm)
	return true
}

// RemoveHash removes a manual digest. Returns false if absent.
func (c *Config) RemoveHash(h string) bool {
	norm := string(digest.Normalize(h))
	for i, have := range c.TrustedHashes {
		if string(digest.Normalize(have)) == norm {
			c.TrustedHashes = append(c.TrustedHashes[:i], c.TrustedHashes[i+1:]...)
			return true
		}
	}
	return false
}
