package credentials

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// TestEnvKeyProvider verifies reading the encryption key from the
// environment.
func TestEnvKeyProvider(t *testing.T) {
	key := bytes.Repeat([]byte{0xAB}, keyLength)
	t.Setenv("TEST_ENC_KEY", hex.EncodeToString(key))

	p := NewEnvKeyProvider("TEST_ENC_KEY")
	got, err := p.GetKey()
	if err != nil {
		t.Fatalf("GetKey: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Error("key mismatch")
	}
}

// TestEnvKeyProvider_Errors verifies rejection of missing and malformed keys.
func TestEnvKeyProvider_Errors(t *testing.T) {
	p := NewEnvKeyProvider("TEST_ENC_KEY_UNSET")
	if _, err := p.GetKey(); err == nil {
		t.Error("expected error for unset variable")
	}

	t.Setenv("TEST_ENC_KEY_BAD", "not-hex")
	if _, err := NewEnvKeyProvider("TEST_ENC_KEY_BAD").GetKey(); err == nil {
		t.Error("expected error for invalid hex")
	}

	t.Setenv("TEST_ENC_KEY_SHORT", "abcd")
	if _, err := NewEnvKeyProvider("TEST_ENC_KEY_SHORT").GetKey(); err == nil {
		t.Error("expected error for wrong key length")
	}
}

// TestPassphraseKeyProvider verifies Argon2id derivation is deterministic
// per passphrase and salt.
func TestPassphraseKeyProvider(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	if len(salt) != 16 {
		t.Errorf("salt length = %d, want 16", len(salt))
	}

	first, err := NewPassphraseKeyProvider("correct horse", salt).GetKey()
	if err != nil {
		t.Fatalf("GetKey: %v", err)
	}
	if len(first) != keyLength {
		t.Errorf("key length = %d, want %d", len(first), keyLength)
	}

	second, err := NewPassphraseKeyProvider("correct horse", salt).GetKey()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("same passphrase and salt should derive the same key")
	}

	otherSalt, _ := GenerateSalt()
	third, err := NewPassphraseKeyProvider("correct horse", otherSalt).GetKey()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(first, third) {
		t.Error("different salts should derive different keys")
	}
}

// TestPassphraseKeyProvider_Errors verifies required inputs.
func TestPassphraseKeyProvider_Errors(t *testing.T) {
	salt, _ := GenerateSalt()
	if _, err := NewPassphraseKeyProvider("", salt).GetKey(); err == nil {
		t.Error("expected error for empty passphrase")
	}
	if _, err := NewPassphraseKeyProvider("pass", nil).GetKey(); err == nil {
		t.Error("expected error for missing salt")
	}
}

// TestGetDefaultKeyProvider verifies the environment variable takes priority
// over the system keyring.
func TestGetDefaultKeyProvider_EnvPriority(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, keyLength)
	t.Setenv("LUMINA_ENCRYPTION_KEY", hex.EncodeToString(key))

	p, err := GetDefaultKeyProvider()
	if err != nil {
		t.Fatalf("GetDefaultKeyProvider: %v", err)
	}
	if _, ok := p.(*EnvKeyProvider); !ok {
		t.Errorf("provider = %T, want *EnvKeyProvider", p)
	}

	got, err := p.GetKey()
	if err != nil {
		t.Fatalf("GetKey: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Error("key mismatch")
	}
}

// TestProviderDescriptions verifies each provider names its mechanism.
func TestProviderDescriptions(t *testing.T) {
	if NewKeyringKeyProvider().Description() == "" {
		t.Error("keyring provider description empty")
	}
	if NewPassphraseKeyProvider("p", nil).Description() == "" {
		t.Error("passphrase provider description empty")
	}
	if NewEnvKeyProvider("X").Description() == "" {
		t.Error("env provider description empty")
	}
}
