package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fencegate/fencegate/internal/truststore"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Integrations) == 0 {
		t.Error("defaults should name integrations to gate")
	}
	if cfg.AllowAll {
		t.Error("defaults must not allow everything")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{{notyaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &Config{
		Vault:             "/vault",
		TrustedNotes:      []string{"meta/trust"},
		TrustedFiles:      []string{"/etc/fencegate/team.txt"},
		TrustedHashes:     []string{"ABCD"},
		AllowAll:          false,
		AllowIntegrations: map[string]bool{"js-runner": true},
		Integrations:      []string{"python-runner", "js-runner"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Vault != "/vault" {
		t.Errorf("vault = %q", got.Vault)
	}
	if !got.AllowIntegrations["js-runner"] {
		t.Error("integration override lost")
	}

	sources := got.Sources()
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Kind != truststore.KindNote || sources[0].Ref != "meta/trust" {
		t.Errorf("note source = %+v", sources[0])
	}
	if sources[1].Kind != truststore.KindExternal {
		t.Errorf("external source = %+v", sources[1])
	}

	manual := got.Manual()
	if len(manual) != 1 || manual[0] != "abcd" {
		t.Errorf("manual = %v, want [abcd]", manual)
	}
}

func TestAddRemoveHash(t *testing.T) {
	cfg := Default()

	if !cfg.AddHash("ABCD") {
		t.Fatal("first add should succeed")
	}
	if cfg.AddHash("abcd") {
		t.Fatal("duplicate add (case-insensitive) should report false")
	}
	if len(cfg.TrustedHashes) != 1 {
		t.Fatalf("trusted hashes = %v", cfg.TrustedHashes)
	}

	if !cfg.RemoveHash("ABCD") {
		t.Fatal("remove should succeed")
	}
	if cfg.RemoveHash("abcd") {
		t.Fatal("second remove should report false")
	}
	if len(cfg.TrustedHashes) != 0 {
		t.Fatalf("trusted hashes = %v", cfg.TrustedHashes)
	}
}

func TestFlags(t *testing.T) {
	cfg := &Config{AllowAll: true, AllowIntegrations: map[string]bool{"x": true}}
	f := cfg.Flags()
	if !f.GlobalOverride || !f.IntegrationOverrides["x"] {
		t.Errorf("flags = %+v", f)
	}
}
