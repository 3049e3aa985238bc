// Package cipher implements the encryption backends that turn plaintext
// secrets into the ciphertext strings stored in a vault's config file.
package cipher

import "fmt"

// Recipient is a parsed, backend-specific public key.
type Recipient interface {
	// String returns the canonical textual form stored in a vault's
	// recipients table.
	String() string
}

// Identity is a parsed, backend-specific private key capable of decrypting
// ciphertext produced for its paired Recipient.
type Identity interface {
	String() string
}

// Backend is the small interface every cipher implements. Two concrete
// backends exist: age (single-leg public-key encryption) and hybrid
// (age + KMS envelope).
type Backend interface {
	// Encrypt produces a ciphertext string decryptable by every recipient.
	Encrypt(plaintext string, recipients []Recipient) (string, error)

	// Decrypt recovers plaintext using a single identity.
	Decrypt(ciphertext string, identity Identity) (string, error)

	// ParseRecipient validates and parses a recipient's textual public key.
	ParseRecipient(s string) (Recipient, error)

	// ParseIdentity validates and parses an identity's textual secret key.
	ParseIdentity(s string) (Identity, error)

	// PublicKey derives the recipient half of a previously parsed identity.
	PublicKey(identity Identity) (Recipient, error)

	// Name identifies the backend for the config's meta.cipher field.
	Name() string
}

// Kind of error surfaced by a Backend. These map onto the Cipher
// error kinds.
type Kind int

const (
	InvalidRecipient Kind = iota
	InvalidIdentity
	EncryptionFailed
	DecryptionFailed
	ArmorFailed
)

func (k Kind) String() string {
	switch k {
	case InvalidRecipient:
		return "InvalidRecipient"
	case InvalidIdentity:
		return "InvalidIdentity"
	case EncryptionFailed:
		return "EncryptionFailed"
	case DecryptionFailed:
		return "DecryptionFailed"
	case ArmorFailed:
		return "ArmorFailed"
	default:
		return "Unknown"
	}
}

// Error is the error type every Backend method returns on failure.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}
