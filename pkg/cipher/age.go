package cipher

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// AgeBackend is the single-leg age public-key cipher. Ciphertext is
// ASCII-armored so it embeds cleanly as a TOML string value.
type AgeBackend struct{}

// NewAge constructs the age backend.
func NewAge() *AgeBackend { return &AgeBackend{} }

func (b *AgeBackend) Name() string { return "age" }

type ageRecipient struct{ r *age.X25519Recipient }

func (r ageRecipient) String() string { return r.r.String() }

type ageIdentity struct{ i *age.X25519Identity }

func (i ageIdentity) String() string { return i.i.String() }

func (b *AgeBackend) ParseRecipient(s string) (Recipient, error) {
	s = strings.TrimSpace(s)
	r, err := age.ParseX25519Recipient(s)
	if err != nil {
		return nil, newErr(InvalidRecipient, s, err)
	}
	return ageRecipient{r}, nil
}

func (b *AgeBackend) ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	i, err := age.ParseX25519Identity(s)
	if err != nil {
		return nil, newErr(InvalidIdentity, "malformed identity", err)
	}
	return ageIdentity{i}, nil
}

func (b *AgeBackend) PublicKey(identity Identity) (Recipient, error) {
	ai, ok := identity.(ageIdentity)
	if !ok {
		return nil, newErr(InvalidIdentity, "not an age identity", nil)
	}
	return ageRecipient{ai.i.Recipient()}, nil
}

func (b *AgeBackend) Encrypt(plaintext string, recipients []Recipient) (string, error) {
	if len(recipients) == 0 {
		return "", newErr(EncryptionFailed, "no recipients", nil)
	}

	ageRecipients := make([]age.Recipient, 0, len(recipients))
	for _, r := range recipients {
		ar, ok := r.(ageRecipient)
		if !ok {
			return "", newErr(InvalidRecipient, "not an age recipient", nil)
		}
		ageRecipients = append(ageRecipients, ar.r)
	}

	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)

	w, err := age.Encrypt(aw, ageRecipients...)
	if err != nil {
		return "", newErr(EncryptionFailed, "creating encryptor", err)
	}
	if _, err := w.Write([]byte(plaintext)); err != nil {
		return "", newErr(EncryptionFailed, "writing plaintext", err)
	}
	if err := w.Close(); err != nil {
		return "", newErr(EncryptionFailed, "closing encryptor", err)
	}
	if err := aw.Close(); err != nil {
		return "", newErr(ArmorFailed, "closing armor writer", err)
	}

	return buf.String(), nil
}

func (b *AgeBackend) Decrypt(ciphertext string, identity Identity) (string, error) {
	ai, ok := identity.(ageIdentity)
	if !ok {
		return "", newErr(InvalidIdentity, "not an age identity", nil)
	}

	ar := armor.NewReader(strings.NewReader(ciphertext))
	r, err := age.Decrypt(ar, ai.i)
	if err != nil {
		return "", newErr(DecryptionFailed, "wrong key or malformed ciphertext", err)
	}

	pt, err := io.ReadAll(r)
	if err != nil {
		return "", newErr(DecryptionFailed, "truncated ciphertext", err)
	}

	return string(pt), nil
}

// GenerateIdentity creates a fresh X25519 identity.
func GenerateIdentity() (Identity, Recipient, error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, nil, fmt.Errorf("cipher: generate identity: %w", err)
	}
	return ageIdentity{id}, ageRecipient{id.Recipient()}, nil
}
