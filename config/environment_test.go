package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAppEnvironmentDefaultsToDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "")
	if env := AppEnvironment(); env != "development" {
		t.Errorf("expected development, got %q", env)
	}
}

func TestAppEnvironmentAliases(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	if env := AppEnvironment(); env != "production" {
		t.Errorf("expected production, got %q", env)
	}
	t.Setenv("APP_ENV", " Staging ")
	if env := AppEnvironment(); env != "staging" {
		t.Errorf("expected staging, got %q", env)
	}
}

func TestResolvePathPrefersEnvSpecificFile(t *testing.T) {
	dir := t.TempDir()
	defaultPath := filepath.Join(dir, "config.yml")
	envPath := filepath.Join(dir, "config.production.yml")
	if err := os.WriteFile(envPath, []byte("optionflow: {}\n"), 0o644); err != nil {
		t.Fatalf("write env config: %v", err)
	}

	t.Setenv("APP_ENV", "production")
	if got := ResolvePath(defaultPath, defaultPath); got != envPath {
		t.Errorf("expected %q, got %q", envPath, got)
	}

	// Explicit non-default paths are never swapped.
	explicit := filepath.Join(dir, "custom.yml")
	if got := ResolvePath(explicit, defaultPath); got != explicit {
		t.Errorf("expected %q, got %q", explicit, got)
	}

	// Missing env file falls back to the default.
	t.Setenv("APP_ENV", "staging")
	if got := ResolvePath(defaultPath, defaultPath); got != defaultPath {
		t.Errorf("expected %q, got %q", defaultPath, got)
	}
}
