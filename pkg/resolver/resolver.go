// Package resolver picks which vault a command should operate on, given
// an explicit --vault flag, the DUGOUT_VAULT environment variable, and
// the vault files actually present on disk.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/usealtoal/dugout/pkg/config"
	"github.com/usealtoal/dugout/pkg/vaulterr"
)

// Resolve picks a vault name with precedence: explicit flag >
// DUGOUT_VAULT environment variable > filesystem discovery. A name
// arriving from either of the first two sources is validated and
// returned as-is, even if no matching file exists yet (the caller, e.g.
// init, may be about to create it). Filesystem discovery requires
// exactly one vault file to exist; zero or multiple is an error.
func Resolve(dir, flagValue string) (string, error) {
	if flagValue != "" {
		if err := config.ValidateVaultName(flagValue); err != nil {
			return "", err
		}
		return flagValue, nil
	}

	if envValue := os.Getenv("DUGOUT_VAULT"); envValue != "" {
		if err := config.ValidateVaultName(envValue); err != nil {
			return "", err
		}
		return envValue, nil
	}

	return discover(dir)
}

// ListVaultNames returns every vault name discoverable in dir, sorted
// with the default (empty-string) vault first. Used by `vault list`,
// which wants every match rather than discover's single-match rule.
func ListVaultNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("resolver: reading %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := vaultNameFromFile(entry.Name()); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// discover finds every ".dugout*.toml" vault file in dir and returns the
// lone match's vault name. Zero matches yields NotInitialized; more than
// one yields MultipleVaults naming the candidates so the caller can
// prompt for --vault.
func discover(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("resolver: reading %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := vaultNameFromFile(entry.Name()); ok {
			names = append(names, name)
		}
	}

	switch len(names) {
	case 0:
		return "", vaulterr.New(vaulterr.NotInitialized, "no vault found in this directory").
			WithHint("run `dugout init` to create one")
	case 1:
		return names[0], nil
	default:
		return "", vaulterr.Newf(vaulterr.MultipleVaults, "multiple vaults found: %s", strings.Join(names, ", ")).
			WithHint("pass --vault <name> to choose one")
	}
}

// vaultNameFromFile extracts a vault name from a filename matching
// config.FileName's convention, reversing it: ".dugout.toml" -> "" (the
// default vault), ".dugout.<n>.toml" -> "<n>".
func vaultNameFromFile(fileName string) (string, bool) {
	const prefix = config.DefaultVaultBaseName
	if fileName == prefix+".toml" {
		return "", true
	}
	if !strings.HasPrefix(fileName, prefix+".") || !strings.HasSuffix(fileName, ".toml") {
		return "", false
	}
	middle := strings.TrimSuffix(strings.TrimPrefix(fileName, prefix+"."), ".toml")
	if middle == "" || strings.Contains(middle, string(filepath.Separator)) {
		return "", false
	}
	return middle, true
}

// ResolveForAutorun implements the `dugout .` exception: autorun always
// targets the default (unnamed) vault, ignoring DUGOUT_VAULT and
// filesystem discovery, since its purpose is to execute a command with
// the project's baseline environment regardless of how many named
// vaults exist alongside it.
func ResolveForAutorun() string {
	return ""
}
