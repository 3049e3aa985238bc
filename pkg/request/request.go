// Package request implements the onboarding handshake a teammate without
// vault access uses to ask for one: knock writes a bare public-key file
// under the request directory, pending lists outstanding requests, and
// admit grants access by adding the requester as a recipient and
// consuming the request file.
package request

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/usealtoal/dugout/pkg/config"
	"github.com/usealtoal/dugout/pkg/vaulterr"
)

const pubSuffix = ".pub"

// Request is one pending access request: a name and the public key it
// advertises.
type Request struct {
	Requester string
	PublicKey string
	CreatedAt time.Time

	path string
}

// legacyDir is the flat, pre-per-vault request directory this package
// still reads from on first encounter, migrating its contents into the
// default vault's per-vault directory.
func legacyDir(dir string) string {
	return filepath.Join(dir, ".dugout", "requests")
}

// fileName sanitizes path separators out of requester and appends the
// required .pub suffix. A second knock from the same requester
// overwrites the first, matching the one-file-per-name wire format.
func fileName(requester string) string {
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, requester)
	return safe + pubSuffix
}

// requesterFromFileName strips the .pub suffix, the inverse of fileName.
func requesterFromFileName(name string) (string, bool) {
	return strings.CutSuffix(name, pubSuffix)
}

// Knock writes requester's public key to <request-dir>/<requester>.pub.
// The file contains exactly the public key followed by a newline.
func Knock(dir, vaultName, requester, publicKey string, now time.Time) error {
	if requester == "" {
		return vaulterr.New(vaulterr.MissingField, "requester name must not be empty")
	}
	if publicKey == "" {
		return vaulterr.New(vaulterr.MissingField, "public key must not be empty")
	}

	reqDir := config.RequestDir(dir, vaultName)
	if err := os.MkdirAll(reqDir, 0o755); err != nil {
		return fmt.Errorf("request: mkdir: %w", err)
	}

	path := filepath.Join(reqDir, fileName(requester))

	tmp, err := os.CreateTemp(reqDir, ".request-*.tmp")
	if err != nil {
		return fmt.Errorf("request: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(publicKey + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("request: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("request: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	return os.Chtimes(path, now, now)
}

// migrateLegacy moves any .pub files sitting in the old flat
// .dugout/requests/ directory into the default vault's per-vault
// directory, on first read. A no-op once the legacy directory is empty
// or absent.
func migrateLegacy(dir string) error {
	old := legacyDir(dir)
	entries, err := os.ReadDir(old)
	if err != nil {
		return nil
	}

	newDir := config.RequestDir(dir, "")
	migrated := false
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), pubSuffix) {
			continue
		}
		if err := os.MkdirAll(newDir, 0o755); err != nil {
			return fmt.Errorf("request: mkdir during migration: %w", err)
		}
		src := filepath.Join(old, entry.Name())
		dst := filepath.Join(newDir, entry.Name())
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("request: migrating %s: %w", entry.Name(), err)
		}
		migrated = true
	}
	if migrated {
		_ = os.Remove(old)
	}
	return nil
}

// Pending lists every outstanding request for the vault as (name,
// pubkey) pairs, stripping the .pub suffix from each file name and
// reading its content as the public key. It migrates any legacy
// flat-directory requests in first.
func Pending(dir, vaultName string) ([]Request, error) {
	if err := migrateLegacy(dir); err != nil {
		return nil, err
	}

	reqDir := config.RequestDir(dir, vaultName)
	entries, err := os.ReadDir(reqDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("request: listing %s: %w", reqDir, err)
	}

	var out []Request
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		requester, ok := requesterFromFileName(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(reqDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var createdAt time.Time
		if info, err := entry.Info(); err == nil {
			createdAt = info.ModTime()
		}
		out = append(out, Request{
			Requester: requester,
			PublicKey: strings.TrimSpace(string(data)),
			CreatedAt: createdAt,
			path:      path,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Read loads <request-dir>/<requester>.pub without removing it.
// RequestNotFound if the file is missing. The caller is responsible for
// validating the key, adding the recipient, and only then calling
// Consume — so a failure partway through admitting leaves the request
// file in place rather than losing it.
func Read(dir, vaultName, requester string) (Request, error) {
	if err := migrateLegacy(dir); err != nil {
		return Request{}, err
	}

	reqDir := config.RequestDir(dir, vaultName)
	path := filepath.Join(reqDir, fileName(requester))
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, vaulterr.Newf(vaulterr.RequestNotFound, "no pending request from %q", requester)
	}
	return Request{Requester: requester, PublicKey: strings.TrimSpace(string(data)), path: path}, nil
}

// Consume removes a request file previously returned by Read, once the
// caller has successfully granted the access it asked for.
func Consume(r Request) error {
	if err := os.Remove(r.path); err != nil {
		return fmt.Errorf("request: removing consumed request: %w", err)
	}
	return nil
}

// Deny removes a pending request without granting access.
func Deny(dir, vaultName, requester string) error {
	if err := migrateLegacy(dir); err != nil {
		return err
	}

	reqDir := config.RequestDir(dir, vaultName)
	path := filepath.Join(reqDir, fileName(requester))
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return vaulterr.Newf(vaulterr.RequestNotFound, "no pending request from %q", requester)
		}
		return err
	}
	return nil
}
