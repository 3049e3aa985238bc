package cipher

import (
	"encoding/json"
	"testing"

	"github.com/usealtoal/dugout/pkg/kms"
)

func TestHybridEnvelopeBothLegsRecover(t *testing.T) {
	id, rec, _ := GenerateIdentity()
	adapter, err := kms.New("mock:test-key")
	if err != nil {
		t.Fatalf("kms.New: %v", err)
	}

	backend := NewHybrid(adapter)
	ct, err := backend.Encrypt("y", []Recipient{rec})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(ct), &env); err != nil {
		t.Fatalf("ciphertext did not parse as an envelope: %v", err)
	}
	if env.Version != EnvelopeVersion {
		t.Fatalf("version = %q, want %q", env.Version, EnvelopeVersion)
	}
	if env.Age == "" || env.Kms == "" {
		t.Fatal("both legs must be populated")
	}
	if env.Provider != "mock" {
		t.Fatalf("provider = %q, want mock", env.Provider)
	}

	// Age leg.
	agePt, err := NewAge().Decrypt(env.Age, id)
	if err != nil {
		t.Fatalf("age leg decrypt: %v", err)
	}
	if agePt != "y" {
		t.Fatalf("age leg = %q, want y", agePt)
	}

	// KMS leg.
	kmsPt, err := adapter.Decrypt(env.Kms)
	if err != nil {
		t.Fatalf("kms leg decrypt: %v", err)
	}
	if kmsPt != "y" {
		t.Fatalf("kms leg = %q, want y", kmsPt)
	}
}

func TestHybridFallsBackToKmsLeg(t *testing.T) {
	_, rec, _ := GenerateIdentity()
	wrongID, _, _ := GenerateIdentity()
	adapter, _ := kms.New("mock:test-key")

	backend := NewHybrid(adapter)
	ct, err := backend.Encrypt("z", []Recipient{rec})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// Forces the age leg to fail, so Decrypt must fall through to the KMS leg.
	pt, err := backend.Decrypt(ct, wrongID)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if pt != "z" {
		t.Fatalf("got %q, want z", pt)
	}
}

func TestHybridDecryptsLegacyAgeOnlyCiphertext(t *testing.T) {
	id, rec, _ := GenerateIdentity()
	adapter, _ := kms.New("mock:test-key")

	legacyCt, err := NewAge().Encrypt("legacy", []Recipient{rec})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	backend := NewHybrid(adapter)
	pt, err := backend.Decrypt(legacyCt, id)
	if err != nil {
		t.Fatalf("Decrypt legacy ciphertext: %v", err)
	}
	if pt != "legacy" {
		t.Fatalf("got %q, want legacy", pt)
	}
}

func TestIsEnvelope(t *testing.T) {
	if IsEnvelope("not json") {
		t.Fatal("plain string should not be an envelope")
	}
	env := Envelope{Version: EnvelopeVersion, Age: "a", Kms: "k", Provider: "mock"}
	data, _ := json.Marshal(env)
	if !IsEnvelope(string(data)) {
		t.Fatal("expected envelope to be detected")
	}
}
