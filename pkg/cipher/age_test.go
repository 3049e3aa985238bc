package cipher

import "testing"

func TestAgeRoundTrip(t *testing.T) {
	id, rec, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}

	backend := NewAge()
	ct, err := backend.Encrypt("sk_live_abc", []Recipient{rec})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	pt, err := backend.Decrypt(ct, id)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if pt != "sk_live_abc" {
		t.Fatalf("got %q, want sk_live_abc", pt)
	}
}

func TestAgeDecryptWrongIdentity(t *testing.T) {
	_, rec, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	otherID, _, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}

	backend := NewAge()
	ct, err := backend.Encrypt("secret", []Recipient{rec})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := backend.Decrypt(ct, otherID); err == nil {
		t.Fatal("expected decryption to fail for a non-recipient identity")
	}
}

func TestAgeMultiRecipient(t *testing.T) {
	id1, rec1, _ := GenerateIdentity()
	id2, rec2, _ := GenerateIdentity()

	backend := NewAge()
	ct, err := backend.Encrypt("shared", []Recipient{rec1, rec2})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	for _, id := range []Identity{id1, id2} {
		pt, err := backend.Decrypt(ct, id)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if pt != "shared" {
			t.Fatalf("got %q, want shared", pt)
		}
	}
}

func TestAgeParseRecipientInvalid(t *testing.T) {
	backend := NewAge()
	if _, err := backend.ParseRecipient("not-a-key"); err == nil {
		t.Fatal("expected InvalidRecipient error")
	}
}

func TestAgeEncryptNoRecipients(t *testing.T) {
	backend := NewAge()
	if _, err := backend.Encrypt("x", nil); err == nil {
		t.Fatal("expected error with no recipients")
	}
}
