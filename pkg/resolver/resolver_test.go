package resolver

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveExplicitFlagWins(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("DUGOUT_VAULT", "from-env")
	defer os.Unsetenv("DUGOUT_VAULT")

	name, err := Resolve(dir, "from-flag")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if name != "from-flag" {
		t.Fatalf("got %q, want from-flag", name)
	}
}

func TestResolveEnvFallback(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("DUGOUT_VAULT", "staging")
	defer os.Unsetenv("DUGOUT_VAULT")

	name, err := Resolve(dir, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if name != "staging" {
		t.Fatalf("got %q, want staging", name)
	}
}

func TestResolveDiscoversLoneVault(t *testing.T) {
	dir := t.TempDir()
	os.Unsetenv("DUGOUT_VAULT")
	write(t, filepath.Join(dir, ".dugout.toml"))

	name, err := Resolve(dir, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if name != "" {
		t.Fatalf("got %q, want default vault (empty string)", name)
	}
}

func TestResolveDiscoversNamedVault(t *testing.T) {
	dir := t.TempDir()
	os.Unsetenv("DUGOUT_VAULT")
	write(t, filepath.Join(dir, ".dugout.staging.toml"))

	name, err := Resolve(dir, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if name != "staging" {
		t.Fatalf("got %q, want staging", name)
	}
}

func TestResolveNoVaultsFails(t *testing.T) {
	dir := t.TempDir()
	os.Unsetenv("DUGOUT_VAULT")
	if _, err := Resolve(dir, ""); err == nil {
		t.Fatal("expected error with no vaults present")
	}
}

func TestResolveMultipleVaultsFails(t *testing.T) {
	dir := t.TempDir()
	os.Unsetenv("DUGOUT_VAULT")
	write(t, filepath.Join(dir, ".dugout.toml"))
	write(t, filepath.Join(dir, ".dugout.staging.toml"))

	if _, err := Resolve(dir, ""); err == nil {
		t.Fatal("expected error with multiple vaults present")
	}
}

func TestResolveForAutorunAlwaysDefault(t *testing.T) {
	if got := ResolveForAutorun(); got != "" {
		t.Fatalf("got %q, want empty string", got)
	}
}

func write(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("[meta]\nversion=\"1.0.0\"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
