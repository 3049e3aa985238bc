package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/usealtoal/dugout/pkg/cipher"
)

// Sentinel errors: ErrNotFound when no private key is stored, and
// ErrAlreadyExists when generating without force over an existing key.
var (
	ErrNotFound      = errors.New("identity: no private key on disk")
	ErrAlreadyExists = errors.New("identity: key already exists (use force to overwrite)")
)

const (
	identityFileName = "identity.key"
	globalFileName   = "identity"
	globalPubName    = "identity.pub"
)

// Store generates, persists, and loads identity files, enforcing
// owner-only permissions and archiving rotated keys: mkdir 0700, write
// 0600, atomic persist, with an env-var override for CI use.
type Store struct {
	backend     cipher.Backend
	home        string
	useKeychain bool
}

// NewStore constructs an identity Store rooted at DUGOUT_HOME (default
// ~/.dugout). The platform keychain leg is attempted first unless
// DUGOUT_NO_KEYCHAIN is set.
func NewStore(backend cipher.Backend) (*Store, error) {
	home := os.Getenv("DUGOUT_HOME")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("identity: resolving home directory: %w", err)
		}
		home = filepath.Join(userHome, ".dugout")
	}
	return &Store{
		backend:     backend,
		home:        home,
		useKeychain: os.Getenv("DUGOUT_NO_KEYCHAIN") == "",
	}, nil
}

func (s *Store) projectDir(project string) string {
	return filepath.Join(s.home, "keys", project)
}

func (s *Store) keyPath(project string) string {
	return filepath.Join(s.projectDir(project), identityFileName)
}

func (s *Store) archiveDir(project string) string {
	return filepath.Join(s.projectDir(project), "archive")
}

// Has reports whether a project identity exists, via keychain or file.
func (s *Store) Has(project string) bool {
	if s.useKeychain && keychainHas(project) {
		return true
	}
	if _, err := os.Stat(s.keyPath(project)); err == nil {
		return true
	}
	return false
}

// Generate creates a new identity for project. Not idempotent: a second
// call overwrites only when force is true.
func (s *Store) Generate(project string, force bool) (*Identity, error) {
	if !force && s.Has(project) {
		return nil, ErrAlreadyExists
	}

	secret, public, err := cipher.GenerateIdentity()
	if err != nil {
		return nil, fmt.Errorf("identity: generate: %w", err)
	}

	if s.useKeychain {
		if err := keychainSet(project, secret.String()); err == nil {
			return New(secret, public, ProvenanceKeychain), nil
		}
		slog.Warn("identity: keychain write failed, falling back to file", "project", project)
	}

	if err := s.writeFile(s.keyPath(project), secret.String()); err != nil {
		return nil, err
	}
	return New(secret, public, ProvenanceFile), nil
}

// Load reads the project identity. The override environment variables
// DUGOUT_IDENTITY / DUGOUT_IDENTITY_FILE are tried first; an invalid
// override is silently dropped so filesystem lookup still runs.
func (s *Store) Load(project string) (*Identity, error) {
	if id, ok := s.loadFromEnv(); ok {
		return id, nil
	}

	if s.useKeychain {
		if secretStr, err := keychainGet(project); err == nil {
			return wrap(s.backend, secretStr, ProvenanceKeychain)
		}
	}

	path := s.keyPath(project)
	secretStr, err := s.readFileChecked(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return wrap(s.backend, secretStr, ProvenanceFile)
}

// loadFromEnv implements the CI-friendly override: DUGOUT_IDENTITY
// carries the secret inline, DUGOUT_IDENTITY_FILE
// points at a file containing it.
func (s *Store) loadFromEnv() (*Identity, bool) {
	if raw := os.Getenv("DUGOUT_IDENTITY"); raw != "" {
		if id, err := wrap(s.backend, raw, ProvenanceMemory); err == nil {
			return id, true
		}
		slog.Warn("identity: DUGOUT_IDENTITY is not a valid identity, ignoring")
		return nil, false
	}
	if path := os.Getenv("DUGOUT_IDENTITY_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("identity: DUGOUT_IDENTITY_FILE unreadable, ignoring", "path", path, "error", err)
			return nil, false
		}
		if id, err := wrap(s.backend, strings.TrimSpace(string(data)), ProvenanceMemory); err == nil {
			return id, true
		}
		slog.Warn("identity: DUGOUT_IDENTITY_FILE does not contain a valid identity, ignoring", "path", path)
	}
	return nil, false
}

// Archive atomically renames the current identity into archive/ with a
// timestamp suffix. Used by rotate. The archived file can be manually
// restored if a later rotation step fails.
func (s *Store) Archive(project string, now time.Time) error {
	src := s.keyPath(project)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("identity: archive: %w", err)
	}

	dir := s.archiveDir(project)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("identity: archive mkdir: %w", err)
	}

	dst := filepath.Join(dir, identityFileName+"."+strconv.FormatInt(now.UnixNano(), 10))
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("identity: archive rename: %w", err)
	}
	return nil
}

// GenerateGlobal creates (or overwrites, with force) the distinguished
// global identity at DUGOUT_HOME/identity, used as a fallback for
// commands that are not project-local (knock, whoami).
func (s *Store) GenerateGlobal(force bool) (*Identity, error) {
	if !force {
		if _, err := os.Stat(filepath.Join(s.home, globalFileName)); err == nil {
			return nil, ErrAlreadyExists
		}
	}

	secret, public, err := cipher.GenerateIdentity()
	if err != nil {
		return nil, fmt.Errorf("identity: generate global: %w", err)
	}

	if err := s.writeFile(filepath.Join(s.home, globalFileName), secret.String()); err != nil {
		return nil, err
	}
	pubPath := filepath.Join(s.home, globalPubName)
	if err := os.WriteFile(pubPath, []byte(public.String()+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("identity: write global public key: %w", err)
	}

	return New(secret, public, ProvenanceFile), nil
}

// LoadGlobal reads the global identity.
func (s *Store) LoadGlobal() (*Identity, error) {
	if id, ok := s.loadFromEnv(); ok {
		return id, nil
	}
	path := filepath.Join(s.home, globalFileName)
	secretStr, err := s.readFileChecked(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return wrap(s.backend, secretStr, ProvenanceFile)
}

// HasGlobal reports whether a global identity file exists.
func (s *Store) HasGlobal() bool {
	_, err := os.Stat(filepath.Join(s.home, globalFileName))
	return err == nil
}

// LoadWithGlobalFallback tries the project identity and falls back to the
// global identity when the project identity cannot be loaded. A project
// identity that loads but cannot decrypt the vault's ciphertexts is
// returned as is; the global identity is not tried in that case.
func (s *Store) LoadWithGlobalFallback(project string) (*Identity, error) {
	id, err := s.Load(project)
	if err == nil {
		return id, nil
	}
	global, gerr := s.LoadGlobal()
	if gerr != nil {
		return nil, err
	}
	return global, nil
}

// writeFile persists secret material via write-then-rename, chmod to
// 0600 before the rename, and a permission tighten afterward to close the
// narrow window another process could observe a wider mode.
func (s *Store) writeFile(path, contents string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("identity: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".identity-*.tmp")
	if err != nil {
		return fmt.Errorf("identity: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(contents + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("identity: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("identity: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("identity: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("identity: rename into place: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("identity: chmod: %w", err)
	}
	return nil
}

// readFileChecked reads path and warns (without failing) if its POSIX
// mode is wider than 0600.
func (s *Store) readFileChecked(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Mode().Perm()&0o077 != 0 {
		slog.Warn("identity: key file has wider than owner-only permissions", "path", path, "mode", info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
