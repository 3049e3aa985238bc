// Package vault is the orchestrator: it owns a Config and an Identity and
// exposes the mutation and read operations a caller needs. All other
// packages in this module are leaves this one composes.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/usealtoal/dugout/pkg/cipher"
	"github.com/usealtoal/dugout/pkg/config"
	"github.com/usealtoal/dugout/pkg/diff"
	"github.com/usealtoal/dugout/pkg/dotenv"
	"github.com/usealtoal/dugout/pkg/identity"
	"github.com/usealtoal/dugout/pkg/kms"
	"github.com/usealtoal/dugout/pkg/vaulterr"
	"github.com/usealtoal/dugout/pkg/zeroize"
)

// Vault is the orchestrator over one vault's Config and Identity.
type Vault struct {
	dir       string
	vaultName string
	cfg       *config.Config
	id        *identity.Identity
	backend   cipher.Backend
	idStore   *identity.Store
}

// VaultName reports the (possibly empty, meaning default) vault name.
func (v *Vault) VaultName() string { return v.vaultName }

// Config exposes the underlying Config for read-only inspection by the
// CLI (status, vault list).
func (v *Vault) Config() *config.Config { return v.cfg }

// Identity exposes the loaded identity.
func (v *Vault) Identity() *identity.Identity { return v.id }

func buildBackend(cfg *config.Config) (cipher.Backend, error) {
	if cfg.Kms == nil {
		return cipher.NewAge(), nil
	}
	adapter, err := kms.New(cfg.Kms.Key)
	if err != nil {
		return nil, fmt.Errorf("vault: resolving kms binding: %w", err)
	}
	return cipher.NewHybrid(adapter), nil
}

// Open locates, loads, and validates the named vault's config, then
// loads the matching project identity (with global fallback).
func Open(dir, vaultName string) (*Vault, error) {
	if err := config.ValidateVaultName(vaultName); err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir, vaultName)
	if err != nil {
		return nil, err
	}

	backend, err := buildBackend(cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(backend); err != nil {
		return nil, err
	}

	idStore, err := identity.NewStore(backend)
	if err != nil {
		return nil, err
	}

	project := config.ProjectID(dir)
	id, err := idStore.LoadWithGlobalFallback(project)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.NotFound, "no usable identity for this project", err).
			WithHint("run `dugout setup` or `dugout knock` to request access")
	}

	return &Vault{dir: dir, vaultName: vaultName, cfg: cfg, id: id, backend: backend, idStore: idStore}, nil
}

// Init creates a brand-new vault, refusing if one already exists at the
// target path. The caller becomes the first recipient.
func Init(dir, ownerName, vaultName, kmsKey string) (*Vault, error) {
	if err := config.ValidateVaultName(vaultName); err != nil {
		return nil, err
	}
	if config.Exists(dir, vaultName) {
		return nil, vaulterr.Newf(vaulterr.AlreadyInitialized, "vault %s already exists", config.FileName(vaultName)).
			WithHint("remove the file first, or choose a different --vault name")
	}

	var binding *config.KmsBinding
	if kmsKey != "" {
		if _, err := kms.DetectProvider(kmsKey); err != nil {
			return nil, vaulterr.Wrap(vaulterr.InvalidValue, "invalid --kms key", err)
		}
		binding = &config.KmsBinding{Key: kmsKey}
	}

	cfg := config.New(binding)
	backend, err := buildBackend(cfg)
	if err != nil {
		return nil, err
	}

	idStore, err := identity.NewStore(backend)
	if err != nil {
		return nil, err
	}

	project := config.ProjectID(dir)
	var id *identity.Identity
	if idStore.Has(project) {
		id, err = idStore.Load(project)
	} else {
		id, err = idStore.Generate(project, false)
	}
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.InvalidValue, "generating project identity", err)
	}

	cfg.Recipients[ownerName] = id.PublicKey().String()
	cfg.RefreshHash()

	if err := cfg.Save(dir, vaultName); err != nil {
		return nil, err
	}

	if err := ensureGitignore(dir); err != nil {
		return nil, err
	}

	return &Vault{dir: dir, vaultName: vaultName, cfg: cfg, id: id, backend: backend, idStore: idStore}, nil
}

func ensureGitignore(dir string) error {
	path := filepath.Join(dir, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("vault: reading .gitignore: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == ".env" {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("vault: opening .gitignore: %w", err)
	}
	defer f.Close()

	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	_, err = f.WriteString(".env\n")
	return err
}

// collectRecipients parses every configured recipient's public key in
// deterministic (sorted-by-name) order.
func (v *Vault) collectRecipients() ([]cipher.Recipient, error) {
	names := v.cfg.SortedRecipientNames()
	out := make([]cipher.Recipient, 0, len(names))
	for _, name := range names {
		r, err := v.backend.ParseRecipient(v.cfg.Recipients[name])
		if err != nil {
			return nil, vaulterr.Wrap(vaulterr.InvalidValue, fmt.Sprintf("recipient %q has an invalid public key", name), err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Set encrypts value under key. Fails AlreadyExists if key exists and
// force is false; fails NoRecipients if the recipient map is empty.
func (v *Vault) Set(key, value string, force bool) error {
	if err := config.ValidateSecretKey(key); err != nil {
		return err
	}
	if value == "" {
		return vaulterr.Newf(vaulterr.EmptyValue, "value for %q must not be empty", key)
	}
	if _, exists := v.cfg.Secrets[key]; exists && !force {
		return vaulterr.Newf(vaulterr.AlreadyExists, "secret %q already exists", key).
			WithHint("pass --force to overwrite")
	}
	if len(v.cfg.Recipients) == 0 {
		return vaulterr.New(vaulterr.NoRecipients, "no recipients configured")
	}

	recipients, err := v.collectRecipients()
	if err != nil {
		return err
	}

	ct, err := v.backend.Encrypt(value, recipients)
	if err != nil {
		return fmt.Errorf("vault: encrypting %q: %w", key, err)
	}

	v.cfg.Secrets[key] = ct
	return v.cfg.Save(v.dir, v.vaultName)
}

// Get decrypts and returns one secret, wrapped so the caller must
// explicitly reveal (and thereby wipe) the plaintext.
func (v *Vault) Get(key string) (*zeroize.Secret, error) {
	ct, ok := v.cfg.Secrets[key]
	if !ok {
		return nil, v.notFoundWithSuggestions(key)
	}
	pt, err := v.backend.Decrypt(ct, v.id.Secret())
	if err != nil {
		return nil, fmt.Errorf("vault: decrypting %q: %w", key, err)
	}
	return zeroize.New(pt), nil
}

func (v *Vault) notFoundWithSuggestions(key string) error {
	var suggestions []string
	for _, candidate := range v.cfg.SortedSecretKeys() {
		if strings.HasPrefix(candidate, key) || strings.HasPrefix(key, candidate) {
			suggestions = append(suggestions, candidate)
			continue
		}
		if levenshtein(strings.ToLower(candidate), strings.ToLower(key)) <= 2 {
			suggestions = append(suggestions, candidate)
		}
	}

	err := vaulterr.Newf(vaulterr.NotFound, "secret %q not found", key)
	if len(suggestions) > 0 {
		err.Hint = "did you mean: " + strings.Join(suggestions, ", ") + "?"
	}
	return err
}

// levenshtein computes the edit distance between a and b, used only to
// generate "did you mean" hints on a miss.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur := make([]int, len(rb)+1)
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev = cur
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// Remove deletes a secret. Fails NotFound if absent.
func (v *Vault) Remove(key string) error {
	if _, ok := v.cfg.Secrets[key]; !ok {
		return v.notFoundWithSuggestions(key)
	}
	delete(v.cfg.Secrets, key)
	return v.cfg.Save(v.dir, v.vaultName)
}

// SecretListing is one (key, ciphertext) pair, returned without
// decrypting.
type SecretListing struct {
	Key        string
	Ciphertext string
}

// List returns every secret's key and ciphertext, sorted by key.
func (v *Vault) List() []SecretListing {
	keys := v.cfg.SortedSecretKeys()
	out := make([]SecretListing, 0, len(keys))
	for _, k := range keys {
		out = append(out, SecretListing{Key: k, Ciphertext: v.cfg.Secrets[k]})
	}
	return out
}

// DecryptAll decrypts every secret. It fails atomically: if any entry
// fails, the call errors and no plaintext is returned to the caller.
func (v *Vault) DecryptAll() (map[string]*zeroize.Secret, error) {
	out := make(map[string]*zeroize.Secret, len(v.cfg.Secrets))
	for key, ct := range v.cfg.Secrets {
		pt, err := v.backend.Decrypt(ct, v.id.Secret())
		if err != nil {
			for _, s := range out {
				s.Close()
			}
			return nil, fmt.Errorf("vault: decrypting %q: %w", key, err)
		}
		out[key] = zeroize.New(pt)
	}
	return out, nil
}

// AddRecipient validates and inserts a new recipient, then re-encrypts
// every secret if any exist.
func (v *Vault) AddRecipient(name, pubkey string) error {
	if _, err := v.backend.ParseRecipient(pubkey); err != nil {
		return err
	}
	v.cfg.Recipients[name] = pubkey
	if err := v.cfg.Save(v.dir, v.vaultName); err != nil {
		return err
	}
	if len(v.cfg.Secrets) > 0 {
		return v.ReencryptAll()
	}
	v.cfg.RefreshHash()
	return v.cfg.Save(v.dir, v.vaultName)
}

// RemoveRecipient deletes a recipient, then re-encrypts every secret if
// any exist. Fails RecipientNotFound if absent.
func (v *Vault) RemoveRecipient(name string) error {
	if _, ok := v.cfg.Recipients[name]; !ok {
		return vaulterr.Newf(vaulterr.RecipientNotFound, "recipient %q not found", name)
	}
	delete(v.cfg.Recipients, name)
	if len(v.cfg.Secrets) > 0 {
		return v.ReencryptAll()
	}
	v.cfg.RefreshHash()
	return v.cfg.Save(v.dir, v.vaultName)
}

// ReencryptAll decrypts every ciphertext, re-encrypts against the
// current recipient set, and atomically replaces the secrets map. If any
// decrypt fails, it aborts with no change to disk.
func (v *Vault) ReencryptAll() error {
	plaintexts, err := v.DecryptAll()
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range plaintexts {
			s.Close()
		}
	}()

	recipients, err := v.collectRecipients()
	if err != nil {
		return err
	}

	newSecrets := make(map[string]string, len(plaintexts))
	for key, secret := range plaintexts {
		ct, err := v.backend.Encrypt(secret.String(), recipients)
		if err != nil {
			return fmt.Errorf("vault: re-encrypting %q: %w", key, err)
		}
		newSecrets[key] = ct
	}

	v.cfg.Secrets = newSecrets
	v.cfg.RefreshHash()
	return v.cfg.Save(v.dir, v.vaultName)
}

// Rotate replaces the owner identity with a fresh one and re-encrypts
// everything. "Owner" is
// resolved as the recipient whose public key equals the currently loaded
// identity's public key; if no recipient matches (a stale or
// global-fallback identity), the first recipient in sorted name order is
// used instead — see DESIGN.md for this Open Question's resolution.
func (v *Vault) Rotate() error {
	plaintexts, err := v.DecryptAll()
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range plaintexts {
			s.Close()
		}
	}()

	if len(v.cfg.Recipients) == 0 {
		return vaulterr.New(vaulterr.NoRecipients, "no recipients configured")
	}
	ownerName := v.resolveOwnerName()

	project := config.ProjectID(v.dir)
	if err := v.idStore.Archive(project, time.Now()); err != nil {
		return fmt.Errorf("vault: archiving current identity: %w", err)
	}

	newID, err := v.idStore.Generate(project, true)
	if err != nil {
		return fmt.Errorf("vault: generating new identity (archived identity remains in archive/): %w", err)
	}

	delete(v.cfg.Recipients, ownerName)
	v.cfg.Recipients[ownerName] = newID.PublicKey().String()

	recipients, err := v.collectRecipients()
	if err != nil {
		return err
	}

	newSecrets := make(map[string]string, len(plaintexts))
	for key, secret := range plaintexts {
		ct, err := v.backend.Encrypt(secret.String(), recipients)
		if err != nil {
			return fmt.Errorf("vault: re-encrypting %q during rotation: %w", key, err)
		}
		newSecrets[key] = ct
	}

	v.cfg.Secrets = newSecrets
	v.cfg.RefreshHash()
	if err := v.cfg.Save(v.dir, v.vaultName); err != nil {
		return err
	}

	v.id = newID
	return nil
}

func (v *Vault) resolveOwnerName() string {
	currentPub := v.id.PublicKey().String()
	for _, name := range v.cfg.SortedRecipientNames() {
		if v.cfg.Recipients[name] == currentPub {
			return name
		}
	}
	names := v.cfg.SortedRecipientNames()
	if len(names) > 0 {
		return names[0]
	}
	return ""
}

// Import loads a .env file and sets every entry with force=true,
// returning the keys imported in the file's own order.
func (v *Vault) Import(path string) ([]string, error) {
	env, err := dotenv.Load(path)
	if err != nil {
		return nil, err
	}

	imported := make([]string, 0, env.Len())
	for _, key := range env.Keys() {
		value, _ := env.Get(key)
		if err := v.Set(key, value, true); err != nil {
			return imported, fmt.Errorf("vault: importing %q: %w", key, err)
		}
		imported = append(imported, key)
	}
	return imported, nil
}

// Export decrypts every secret into an Env, ready to be written out or
// diffed against.
func (v *Vault) Export() (*dotenv.Env, error) {
	plaintexts, err := v.DecryptAll()
	if err != nil {
		return nil, err
	}
	env := dotenv.New()
	keys := make([]string, 0, len(plaintexts))
	for k := range plaintexts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env.Set(k, plaintexts[k].String())
		plaintexts[k].Close()
	}
	return env, nil
}

// Unlock writes the exported secrets to .env in the vault's directory at
// mode 0600.
func (v *Vault) Unlock() error {
	env, err := v.Export()
	if err != nil {
		return err
	}
	return env.Save(filepath.Join(v.dir, ".env"))
}

// Diff compares the vault's decrypted secrets against the .env file at
// path (which need not exist).
func (v *Vault) Diff(path string) (diff.Result, error) {
	plaintexts, err := v.DecryptAll()
	if err != nil {
		return diff.Result{}, err
	}
	vaultMap := make(map[string]string, len(plaintexts))
	for k, s := range plaintexts {
		vaultMap[k] = s.String()
		s.Close()
	}

	env, err := dotenv.Load(path)
	if err != nil {
		return diff.Result{}, err
	}
	envMap := make(map[string]string, env.Len())
	for _, k := range env.Keys() {
		v, _ := env.Get(k)
		envMap[k] = v
	}

	return diff.Compute(vaultMap, envMap), nil
}

// SyncSummary reports what Sync did or would do.
type SyncSummary struct {
	WasNeeded      bool
	SecretCount    int
	RecipientCount int
}

// Sync re-encrypts everything if the recipient set has drifted from the
// stored hash, or unconditionally if force is set. dryRun reports what
// would happen without mutating anything.
func (v *Vault) Sync(force, dryRun bool) (SyncSummary, error) {
	needed := force || v.cfg.NeedsSync()
	summary := SyncSummary{
		WasNeeded:      needed,
		SecretCount:    len(v.cfg.Secrets),
		RecipientCount: len(v.cfg.Recipients),
	}
	if !needed || dryRun {
		return summary, nil
	}
	return summary, v.ReencryptAll()
}
