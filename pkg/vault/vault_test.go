package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/usealtoal/dugout/pkg/cipher"
	"github.com/usealtoal/dugout/pkg/vaulterr"
)

func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("DUGOUT_HOME", t.TempDir())
	t.Setenv("DUGOUT_NO_KEYCHAIN", "1")
	t.Setenv("DUGOUT_IDENTITY", "")
	t.Setenv("DUGOUT_IDENTITY_FILE", "")
	return t.TempDir()
}

func mustInit(t *testing.T, dir string) *Vault {
	t.Helper()
	v, err := Init(dir, "owner", "", "")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return v
}

func TestInitCreatesVaultAndGitignore(t *testing.T) {
	dir := isolate(t)
	v := mustInit(t, dir)

	if _, err := os.Stat(filepath.Join(dir, ".dugout.toml")); err != nil {
		t.Fatalf("expected vault file: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatalf(".gitignore: %v", err)
	}
	if string(data) != ".env\n" {
		t.Fatalf(".gitignore = %q, want .env", data)
	}
	if len(v.Config().Recipients) != 1 {
		t.Fatalf("expected exactly one recipient, got %d", len(v.Config().Recipients))
	}
}

func TestInitRefusesIfVaultExists(t *testing.T) {
	dir := isolate(t)
	mustInit(t, dir)

	if _, err := Init(dir, "owner", "", ""); err == nil {
		t.Fatal("expected second Init to fail")
	}
}

func TestOpenRoundTrip(t *testing.T) {
	dir := isolate(t)
	mustInit(t, dir)

	v, err := Open(dir, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if v.VaultName() != "" {
		t.Fatalf("VaultName = %q, want empty", v.VaultName())
	}
}

func TestSetGetRemove(t *testing.T) {
	dir := isolate(t)
	v := mustInit(t, dir)

	if err := v.Set("API_KEY", "s3cr3t", false); err != nil {
		t.Fatalf("Set: %v", err)
	}

	secret, err := v.Get("API_KEY")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got string
	secret.Reveal(func(plain string) { got = plain })
	if got != "s3cr3t" {
		t.Fatalf("revealed %q, want s3cr3t", got)
	}

	if err := v.Remove("API_KEY"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := v.Get("API_KEY"); err == nil {
		t.Fatal("expected Get after Remove to fail")
	}
}

func TestSetRejectsDuplicateWithoutForce(t *testing.T) {
	dir := isolate(t)
	v := mustInit(t, dir)

	if err := v.Set("KEY", "one", false); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	err := v.Set("KEY", "two", false)
	if err == nil {
		t.Fatal("expected duplicate Set to fail")
	}
	verr, ok := err.(*vaulterr.Error)
	if !ok || verr.Kind != vaulterr.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}

	if err := v.Set("KEY", "two", true); err != nil {
		t.Fatalf("forced Set: %v", err)
	}
	secret, err := v.Get("KEY")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got string
	secret.Reveal(func(plain string) { got = plain })
	if got != "two" {
		t.Fatalf("revealed %q, want two", got)
	}
}

func TestSetRejectsEmptyValue(t *testing.T) {
	dir := isolate(t)
	v := mustInit(t, dir)

	if err := v.Set("KEY", "", false); err == nil {
		t.Fatal("expected empty value to be rejected")
	}
}

func TestGetNotFoundSuggestsSimilarKeys(t *testing.T) {
	dir := isolate(t)
	v := mustInit(t, dir)

	if err := v.Set("DATABASE_URL", "x", false); err != nil {
		t.Fatalf("Set: %v", err)
	}

	_, err := v.Get("DATABSE_URL")
	if err == nil {
		t.Fatal("expected miss")
	}
	verr, ok := err.(*vaulterr.Error)
	if !ok || verr.Hint == "" {
		t.Fatalf("expected a did-you-mean hint, got %v", err)
	}
}

func TestAddRecipientReencrypts(t *testing.T) {
	dir := isolate(t)
	v := mustInit(t, dir)
	if err := v.Set("KEY", "value", false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	before := v.Config().Secrets["KEY"]

	other, _, err := generateTestRecipient()
	if err != nil {
		t.Fatalf("generateTestRecipient: %v", err)
	}
	if err := v.AddRecipient("second", other); err != nil {
		t.Fatalf("AddRecipient: %v", err)
	}

	after := v.Config().Secrets["KEY"]
	if before == after {
		t.Fatal("expected re-encryption to change ciphertext")
	}
	if len(v.Config().Recipients) != 2 {
		t.Fatalf("expected 2 recipients, got %d", len(v.Config().Recipients))
	}

	secret, err := v.Get("KEY")
	if err != nil {
		t.Fatalf("Get after AddRecipient: %v", err)
	}
	var got string
	secret.Reveal(func(plain string) { got = plain })
	if got != "value" {
		t.Fatalf("revealed %q, want value", got)
	}
}

func TestRemoveRecipientNotFound(t *testing.T) {
	dir := isolate(t)
	v := mustInit(t, dir)

	err := v.RemoveRecipient("nobody")
	if err == nil {
		t.Fatal("expected RecipientNotFound")
	}
	verr, ok := err.(*vaulterr.Error)
	if !ok || verr.Kind != vaulterr.RecipientNotFound {
		t.Fatalf("expected RecipientNotFound, got %v", err)
	}
}

func TestRotateReplacesOwnerKey(t *testing.T) {
	dir := isolate(t)
	v := mustInit(t, dir)
	if err := v.Set("KEY", "value", false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	oldPub := v.Identity().PublicKey().String()

	if err := v.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	newPub := v.Identity().PublicKey().String()
	if newPub == oldPub {
		t.Fatal("expected rotation to produce a new identity")
	}
	if v.Config().Recipients["owner"] != newPub {
		t.Fatal("expected owner recipient entry to hold the new public key")
	}

	secret, err := v.Get("KEY")
	if err != nil {
		t.Fatalf("Get after Rotate: %v", err)
	}
	var got string
	secret.Reveal(func(plain string) { got = plain })
	if got != "value" {
		t.Fatalf("revealed %q, want value", got)
	}
}

func TestImportExportRoundTrip(t *testing.T) {
	dir := isolate(t)
	v := mustInit(t, dir)

	envPath := filepath.Join(dir, "seed.env")
	if err := os.WriteFile(envPath, []byte("FOO=bar\nBAZ=\"qux quux\"\n"), 0o644); err != nil {
		t.Fatalf("writing seed env: %v", err)
	}

	keys, err := v.Import(envPath)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 imported keys, got %d", len(keys))
	}

	env, err := v.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if val, _ := env.Get("FOO"); val != "bar" {
		t.Fatalf("FOO = %q, want bar", val)
	}
	if val, _ := env.Get("BAZ"); val != "qux quux" {
		t.Fatalf("BAZ = %q, want %q", val, "qux quux")
	}
}

func TestUnlockWritesDotEnv(t *testing.T) {
	dir := isolate(t)
	v := mustInit(t, dir)
	if err := v.Set("KEY", "value", false); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := v.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".env"))
	if err != nil {
		t.Fatalf("reading .env: %v", err)
	}
	if string(data) != "KEY=value\n" {
		t.Fatalf(".env = %q, want KEY=value", data)
	}
}

func TestDiffReportsAllFourStatuses(t *testing.T) {
	dir := isolate(t)
	v := mustInit(t, dir)
	if err := v.Set("SAME", "1", false); err != nil {
		t.Fatalf("Set SAME: %v", err)
	}
	if err := v.Set("CHANGED", "vault-value", false); err != nil {
		t.Fatalf("Set CHANGED: %v", err)
	}
	if err := v.Set("VAULT_ONLY", "x", false); err != nil {
		t.Fatalf("Set VAULT_ONLY: %v", err)
	}

	envPath := filepath.Join(dir, "compare.env")
	body := "SAME=1\nCHANGED=env-value\nENV_ONLY=y\n"
	if err := os.WriteFile(envPath, []byte(body), 0o644); err != nil {
		t.Fatalf("writing compare env: %v", err)
	}

	result, err := v.Diff(envPath)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}

	statuses := map[string]string{}
	for _, e := range result.Entries {
		statuses[e.Key] = string(e.Status)
	}
	if statuses["SAME"] != "synced" {
		t.Fatalf("SAME status = %q, want synced", statuses["SAME"])
	}
	if statuses["CHANGED"] != "modified" {
		t.Fatalf("CHANGED status = %q, want modified", statuses["CHANGED"])
	}
	if statuses["VAULT_ONLY"] != "vault_only" {
		t.Fatalf("VAULT_ONLY status = %q, want vault_only", statuses["VAULT_ONLY"])
	}
	if statuses["ENV_ONLY"] != "env_only" {
		t.Fatalf("ENV_ONLY status = %q, want env_only", statuses["ENV_ONLY"])
	}
}

func TestSyncDryRunDoesNotMutate(t *testing.T) {
	dir := isolate(t)
	v := mustInit(t, dir)
	if err := v.Set("KEY", "value", false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v.Config().Meta.RecipientsHash = "stale"

	summary, err := v.Sync(false, true)
	if err != nil {
		t.Fatalf("Sync dry-run: %v", err)
	}
	if !summary.WasNeeded {
		t.Fatal("expected WasNeeded to be true with a stale hash")
	}
	if v.Config().Meta.RecipientsHash != "stale" {
		t.Fatal("dry-run must not mutate the stored hash")
	}
}

func TestSyncReencryptsWhenNeeded(t *testing.T) {
	dir := isolate(t)
	v := mustInit(t, dir)
	if err := v.Set("KEY", "value", false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v.Config().Meta.RecipientsHash = "stale"

	summary, err := v.Sync(false, false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !summary.WasNeeded {
		t.Fatal("expected WasNeeded to be true")
	}
	if v.Config().NeedsSync() {
		t.Fatal("expected Sync to refresh the stored hash")
	}
}

// generateTestRecipient returns a fresh age identity's public key string,
// used to exercise AddRecipient without dragging in a second full Vault.
func generateTestRecipient() (string, string, error) {
	secret, public, err := cipher.GenerateIdentity()
	if err != nil {
		return "", "", err
	}
	return public.String(), secret.String(), nil
}
