// Package identity generates, persists, and loads the private keys that
// let a recipient decrypt vault ciphertexts, following the project's
// write-then-persist file-permission conventions (0700 dirs, 0600 files).
package identity

import (
	"fmt"

	"github.com/usealtoal/dugout/pkg/cipher"
)

// Provenance records where an Identity's secret material lives.
type Provenance string

const (
	ProvenanceFile     Provenance = "file"
	ProvenanceKeychain Provenance = "keychain"
	ProvenanceMemory   Provenance = "memory"
)

// Identity pairs a secret key with its public key and records where the
// secret came from. Construction is restricted to this package's
// constructors so a bare secret string can never masquerade as one.
type Identity struct {
	secret     cipher.Identity
	public     cipher.Recipient
	provenance Provenance
}

// PublicKey returns the identity's public half.
func (id *Identity) PublicKey() cipher.Recipient { return id.public }

// Provenance reports where the secret material was sourced from.
func (id *Identity) Provenance() Provenance { return id.provenance }

// Secret returns the backend-specific private key. Callers must not log
// or persist the result beyond the narrow set of allowed call sites.
func (id *Identity) Secret() cipher.Identity { return id.secret }

// wrap parses secretStr with backend, derives its public key, and returns
// an Identity with the given provenance.
func wrap(backend cipher.Backend, secretStr string, provenance Provenance) (*Identity, error) {
	secret, err := backend.ParseIdentity(secretStr)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	pub, err := backend.PublicKey(secret)
	if err != nil {
		return nil, fmt.Errorf("identity: deriving public key: %w", err)
	}
	return &Identity{secret: secret, public: pub, provenance: provenance}, nil
}

// New wraps an already-parsed secret/public pair, used right after
// GenerateIdentity where both halves are already known.
func New(secret cipher.Identity, public cipher.Recipient, provenance Provenance) *Identity {
	return &Identity{secret: secret, public: public, provenance: provenance}
}
