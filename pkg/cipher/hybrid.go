package cipher

import (
	"encoding/json"
	"fmt"

	"github.com/usealtoal/dugout/pkg/kms"
)

// EnvelopeVersion is the single recognized literal for the envelope wire
// form. An unknown version is rejected on parse.
const EnvelopeVersion = "dugout-envelope-v2"

// Envelope is the JSON-serialized hybrid ciphertext: an age leg and a KMS
// leg for the same plaintext, either of which can recover it.
type Envelope struct {
	Version  string `json:"version"`
	Age      string `json:"age"`
	Kms      string `json:"kms"`
	Provider string `json:"provider"`
}

// HybridBackend composes the age backend with a KmsAdapter into an
// envelope that survives the age-only -> hybrid transition in both
// directions.
type HybridBackend struct {
	age    *AgeBackend
	kmsAdp kms.Adapter
}

// NewHybrid constructs the hybrid backend bound to one KmsAdapter.
func NewHybrid(adapter kms.Adapter) *HybridBackend {
	return &HybridBackend{age: NewAge(), kmsAdp: adapter}
}

func (b *HybridBackend) Name() string { return "hybrid" }

func (b *HybridBackend) ParseRecipient(s string) (Recipient, error) { return b.age.ParseRecipient(s) }
func (b *HybridBackend) ParseIdentity(s string) (Identity, error)   { return b.age.ParseIdentity(s) }
func (b *HybridBackend) PublicKey(identity Identity) (Recipient, error) {
	return b.age.PublicKey(identity)
}

func (b *HybridBackend) Encrypt(plaintext string, recipients []Recipient) (string, error) {
	ageCt, err := b.age.Encrypt(plaintext, recipients)
	if err != nil {
		return "", err
	}

	kmsCt, err := b.kmsAdp.Encrypt(plaintext)
	if err != nil {
		return "", newErr(EncryptionFailed, "kms leg", err)
	}

	env := Envelope{
		Version:  EnvelopeVersion,
		Age:      ageCt,
		Kms:      kmsCt,
		Provider: string(b.kmsAdp.Provider()),
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", newErr(EncryptionFailed, "marshal envelope", err)
	}
	return string(data), nil
}

// Decrypt parses the ciphertext as an envelope first. If parsing succeeds,
// it attempts the age leg with the supplied identity and falls back to the
// KMS leg on failure. If parsing fails, the ciphertext predates the
// hybrid transition and is decrypted as a raw age ciphertext, giving
// backward compatibility.
func (b *HybridBackend) Decrypt(ciphertext string, identity Identity) (string, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(ciphertext), &env); err != nil {
		return b.age.Decrypt(ciphertext, identity)
	}

	if env.Version != EnvelopeVersion {
		return "", newErr(DecryptionFailed, fmt.Sprintf("unrecognized envelope version %q", env.Version), nil)
	}

	if pt, err := b.age.Decrypt(env.Age, identity); err == nil {
		return pt, nil
	}

	pt, err := b.kmsAdp.Decrypt(env.Kms)
	if err != nil {
		return "", newErr(DecryptionFailed, "both age and kms legs failed", err)
	}
	return pt, nil
}

// IsEnvelope reports whether ciphertext parses as a hybrid envelope.
func IsEnvelope(ciphertext string) bool {
	var env Envelope
	if err := json.Unmarshal([]byte(ciphertext), &env); err != nil {
		return false
	}
	return env.Version == EnvelopeVersion
}
