// Package kms abstracts the external key-management services a hybrid
// vault can envelope-encrypt against. The core never calls a provider SDK
// directly — real KMS provider SDK calls are out of scope for the core —
// it only depends on the Adapter contract below: an interface wrapping
// opaque encrypt/decrypt, selected at construction from a closed
// provider set.
package kms

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Provider is a closed enum of supported KMS providers, matched by the
// external key identifier's format.
type Provider string

const (
	ProviderAWS   Provider = "aws"
	ProviderGCP   Provider = "gcp"
	ProviderMock  Provider = "mock"
	ProviderUnset Provider = ""
)

// DetectProvider matches a KmsBinding key identifier against
// provider-specific prefixes. The provider set is closed and enumerated
// here; an unrecognized format is rejected at config-load time.
func DetectProvider(keyID string) (Provider, error) {
	switch {
	case strings.HasPrefix(keyID, "arn:aws:kms:"):
		return ProviderAWS, nil
	case strings.HasPrefix(keyID, "projects/") && strings.Contains(keyID, "/cryptoKeys/"):
		return ProviderGCP, nil
	case strings.HasPrefix(keyID, "mock:"):
		return ProviderMock, nil
	default:
		return ProviderUnset, fmt.Errorf("kms: unrecognized key identifier %q (expected arn:aws:kms:..., projects/.../cryptoKeys/..., or mock:...)", keyID)
	}
}

// Adapter is the opaque encrypt/decrypt contract every provider
// implements. The returned string is provider-specific; callers treat it
// as opaque.
type Adapter interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
	Provider() Provider
}

// New constructs the adapter for the given key identifier. AWS and GCP
// are closed-enum placeholders: absent the real SDK wiring (out of scope
// they return a clear "not compiled in" error on use instead.
func New(keyID string) (Adapter, error) {
	provider, err := DetectProvider(keyID)
	if err != nil {
		return nil, err
	}
	switch provider {
	case ProviderAWS:
		return &unavailableAdapter{provider: ProviderAWS, keyID: keyID}, nil
	case ProviderGCP:
		return &unavailableAdapter{provider: ProviderGCP, keyID: keyID}, nil
	case ProviderMock:
		return &MockAdapter{keyID: keyID}, nil
	default:
		return nil, fmt.Errorf("kms: unsupported provider for %q", keyID)
	}
}

// unavailableAdapter stands in for a real provider SDK client. Every
// operation fails with a hint naming the missing credential/CLI, per
// the KmsAdapter contract ("failures surface as
// EncryptionFailed/DecryptionFailed with a hint that the provider CLI may
// be missing or unauthenticated").
type unavailableAdapter struct {
	provider Provider
	keyID    string
}

func (a *unavailableAdapter) Provider() Provider { return a.provider }

func (a *unavailableAdapter) Encrypt(string) (string, error) {
	return "", fmt.Errorf("kms: %s provider not compiled in for key %q (missing SDK credentials/CLI)", a.provider, a.keyID)
}

func (a *unavailableAdapter) Decrypt(string) (string, error) {
	return "", fmt.Errorf("kms: %s provider not compiled in for key %q (missing SDK credentials/CLI)", a.provider, a.keyID)
}

// MockAdapter is a deterministic, identity-preserving stand-in used by
// test builds so the envelope plumbing (encrypt, bundle, decrypt-via-kms
// fallback) can be verified without external credentials.
type MockAdapter struct {
	keyID string
}

func (a *MockAdapter) Provider() Provider { return ProviderMock }

func (a *MockAdapter) Encrypt(plaintext string) (string, error) {
	return "mock:" + hex.EncodeToString([]byte(plaintext)), nil
}

func (a *MockAdapter) Decrypt(ciphertext string) (string, error) {
	payload, ok := strings.CutPrefix(ciphertext, "mock:")
	if !ok {
		return "", fmt.Errorf("kms: malformed mock ciphertext")
	}
	raw, err := hex.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("kms: decode mock ciphertext: %w", err)
	}
	return string(raw), nil
}
