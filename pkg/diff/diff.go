// Package diff computes the four-way comparison between a vault's
// decrypted secrets and a .env file's entries.
package diff

import "sort"

// Status is one of the four classifications for a
// key appearing in either side of the comparison.
type Status string

const (
	Synced    Status = "synced"
	Modified  Status = "modified"
	VaultOnly Status = "vault_only"
	EnvOnly   Status = "env_only"
)

// Entry is one key's comparison result.
type Entry struct {
	Key        string
	Status     Status
	VaultValue string
	EnvValue   string
}

// Result is the full, key-sorted comparison.
type Result struct {
	Entries []Entry
}

// Compute builds the diff between vault plaintexts and .env plaintexts.
// Both maps are treated as read-only; Compute never mutates either side.
func Compute(vault, env map[string]string) Result {
	seen := map[string]struct{}{}
	for k := range vault {
		seen[k] = struct{}{}
	}
	for k := range env {
		seen[k] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		vv, inVault := vault[k]
		ev, inEnv := env[k]

		var status Status
		switch {
		case inVault && inEnv && vv == ev:
			status = Synced
		case inVault && inEnv:
			status = Modified
		case inVault:
			status = VaultOnly
		default:
			status = EnvOnly
		}

		entries = append(entries, Entry{Key: k, Status: status, VaultValue: vv, EnvValue: ev})
	}

	return Result{Entries: entries}
}

// ByStatus partitions Entries by Status, for callers that want the
// individual sets.
func (r Result) ByStatus(status Status) []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}
