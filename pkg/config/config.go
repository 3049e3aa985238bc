// Package config is the durable on-disk representation of a vault:
// version, optional KMS binding, recipient map, and ciphertext map.
// Serialized with github.com/pelletier/go-toml/v2, grounded on the
// envref/agepad reference tools' use of the same library for their own
// checked-in project config files.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/usealtoal/dugout/pkg/cipher"
	"github.com/usealtoal/dugout/pkg/vaulterr"
)

const (
	DefaultVaultBaseName = ".dugout"
	ReservedVaultName    = "default"
	maxVaultNameBytes    = 64
)

var semverPattern = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)
var secretKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Meta is the vault file's [meta] table.
type Meta struct {
	Version        string `toml:"version"`
	Cipher         string `toml:"cipher,omitempty"`
	RecipientsHash string `toml:"recipients_hash"`
}

// KmsBinding is the vault file's optional [kms] table.
type KmsBinding struct {
	Key string `toml:"key"`
}

// Config is one vault's full on-disk state.
type Config struct {
	Meta       Meta              `toml:"meta"`
	Kms        *KmsBinding       `toml:"kms,omitempty"`
	Recipients map[string]string `toml:"recipients"`
	Secrets    map[string]string `toml:"secrets"`

	path string
}

// New constructs a fresh, empty Config for a brand-new vault.
func New(kms *KmsBinding) *Config {
	cipherName := "age"
	if kms != nil {
		cipherName = "hybrid"
	}
	return &Config{
		Meta: Meta{
			Version: "1.0.0",
			Cipher:  cipherName,
		},
		Kms:        kms,
		Recipients: map[string]string{},
		Secrets:    map[string]string{},
	}
}

// FileName returns the on-disk file name for a vault: the unnamed vault
// is ".dugout.toml"; a named vault
// "<n>" is ".dugout.<n>.toml".
func FileName(vaultName string) string {
	if vaultName == "" || vaultName == ReservedVaultName {
		return DefaultVaultBaseName + ".toml"
	}
	return DefaultVaultBaseName + "." + vaultName + ".toml"
}

// ValidateVaultName enforces the naming rules at every entry
// point that accepts an explicit --vault name. The empty string (meaning
// "use the default vault") is always valid and is not checked further.
func ValidateVaultName(name string) error {
	if name == "" {
		return nil
	}
	if strings.ContainsAny(name, `/\`) {
		return vaulterr.Newf(vaulterr.InvalidVaultName, "vault name %q must not contain path separators", name)
	}
	if name == "." || name == ".." {
		return vaulterr.Newf(vaulterr.InvalidVaultName, "vault name %q is reserved", name)
	}
	if len(name) > maxVaultNameBytes {
		return vaulterr.Newf(vaulterr.InvalidVaultName, "vault name %q exceeds %d bytes", name, maxVaultNameBytes)
	}
	if name == ReservedVaultName {
		return vaulterr.Newf(vaulterr.InvalidVaultName, "vault name %q is reserved as the alias for the unnamed vault", name)
	}
	return nil
}

// RequestDir returns the per-vault request directory:
// ".dugout/requests/default/" or ".dugout/requests/<n>/".
func RequestDir(dir, vaultName string) string {
	n := vaultName
	if n == "" {
		n = ReservedVaultName
	}
	return filepath.Join(dir, ".dugout", "requests", n)
}

// ProjectID returns the deterministic label used to locate a project's
// identity: the current directory's basename.
func ProjectID(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Base(dir)
	}
	return filepath.Base(abs)
}

// Path returns the absolute path this Config was loaded from or will be
// saved to.
func (c *Config) Path() string { return c.path }

// Load reads and parses the vault file in dir for vaultName. Callers
// should follow up with Validate once the matching cipher backend is
// known.
func Load(dir, vaultName string) (*Config, error) {
	path := filepath.Join(dir, FileName(vaultName))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vaulterr.Wrap(vaulterr.NotInitialized, fmt.Sprintf("no vault at %s", path), err).
				WithHint("run `dugout init` to create one")
		}
		return nil, vaulterr.Wrap(vaulterr.Parse, "reading vault file", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, vaulterr.Wrap(vaulterr.Parse, "parsing vault file", err)
	}
	cfg.path = path

	if cfg.Recipients == nil {
		cfg.Recipients = map[string]string{}
	}
	if cfg.Secrets == nil {
		cfg.Secrets = map[string]string{}
	}

	return &cfg, nil
}

// Exists reports whether a vault file already exists in dir.
func Exists(dir, vaultName string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName(vaultName)))
	return err == nil
}

// Save serializes and atomically writes the config to its path (or, for
// a brand-new config, to dir/FileName(vaultName)). Write-then-rename in
// the same directory is atomic on POSIX.
func (c *Config) Save(dir, vaultName string) error {
	if c.path == "" {
		c.path = filepath.Join(dir, FileName(vaultName))
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return vaulterr.Wrap(vaulterr.Parse, "marshaling vault file", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".dugout-*.tmp")
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("config: rename into place: %w", err)
	}
	return nil
}

// Validate enforces version-format and recipient/secret consistency checks.
func (c *Config) Validate(backend cipher.Backend) error {
	if !semverPattern.MatchString(c.Meta.Version) {
		return vaulterr.Newf(vaulterr.InvalidValue, "meta.version %q is not of the form X.Y(.Z)?", c.Meta.Version)
	}
	if len(c.Secrets) > 0 && len(c.Recipients) == 0 {
		return vaulterr.New(vaulterr.NoRecipients, "secrets are present but no recipients are configured")
	}
	for name, pub := range c.Recipients {
		if _, err := backend.ParseRecipient(pub); err != nil {
			return vaulterr.Wrap(vaulterr.InvalidValue, fmt.Sprintf("recipient %q has an invalid public key", name), err)
		}
	}
	for key := range c.Secrets {
		if err := ValidateSecretKey(key); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSecretKey enforces the shell-environment-variable
// lexical rules for SecretKey.
func ValidateSecretKey(key string) error {
	if key == "" {
		return vaulterr.New(vaulterr.EmptyKey, "secret key must not be empty")
	}
	if !secretKeyPattern.MatchString(key) {
		return vaulterr.Newf(vaulterr.InvalidKey, "secret key %q must start with a letter or underscore and contain only letters, digits, and underscores", key)
	}
	return nil
}

// ComputeRecipientsHash hashes the sorted sequence of recipient public
// keys, giving a deterministic digest independent of iteration order.
func ComputeRecipientsHash(recipients map[string]string) string {
	keys := make([]string, 0, len(recipients))
	for _, pub := range recipients {
		keys = append(keys, pub)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NeedsSync reports whether the stored recipients_hash is stale relative
// to the current recipient set. A missing hash (legacy config predating
// this field) is treated as stale, per the Open Question resolved in
// DESIGN.md: a missing hash is read as "needs sync", not "adopt
// silently".
func (c *Config) NeedsSync() bool {
	if c.Meta.RecipientsHash == "" {
		return true
	}
	return c.Meta.RecipientsHash != ComputeRecipientsHash(c.Recipients)
}

// RefreshHash recomputes and stores meta.recipients_hash.
func (c *Config) RefreshHash() {
	c.Meta.RecipientsHash = ComputeRecipientsHash(c.Recipients)
}

// SortedRecipientNames returns recipient names in deterministic order,
// for listing and for re-encryption iteration order.
func (c *Config) SortedRecipientNames() []string {
	names := make([]string, 0, len(c.Recipients))
	for name := range c.Recipients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortedSecretKeys returns secret keys in deterministic order.
func (c *Config) SortedSecretKeys() []string {
	keys := make([]string, 0, len(c.Secrets))
	for key := range c.Secrets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
