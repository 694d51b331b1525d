package keychain

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func TestSecretsRoundTrip(t *testing.T) {
	m := NewManagerWithRing(keyring.NewArrayKeyring(nil))
	acct := Account("https://erp.example.com/", "prod", "admin")

	if acct != "https://erp.example.com|prod|admin" {
		t.Fatalf("Account() = %q", acct)
	}

	if _, err := m.LoadSecret(acct); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before save, got %v", err)
	}
	if err := m.SaveSecret(acct, "s3cret"); err != nil {
		t.Fatalf("SaveSecret: %v", err)
	}
	got, err := m.LoadSecret(acct)
	if err != nil || got != "s3cret" {
		t.Fatalf("LoadSecret = %q, %v", got, err)
	}
	if err := m.DeleteSecret(acct); err != nil {
		t.Fatalf("DeleteSecret: %v", err)
	}
	if err := m.DeleteSecret(acct); err != nil {
		t.Fatalf("second DeleteSecret should be a no-op: %v", err)
	}
	if _, err := m.LoadSecret(acct); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSaveSecretRejectsEmpty(t *testing.T) {
	m := NewManagerWithRing(keyring.NewArrayKeyring(nil))
	if err := m.SaveSecret("a|b|c", ""); err == nil {
		t.Fatal("expected an error for an empty secret")
	}
}

func TestAuthState(t *testing.T) {
	m := NewManagerWithRing(keyring.NewArrayKeyring(nil))
	if err := m.SaveAuthState([]byte(`{"url":"x"}`)); err != nil {
		t.Fatal(err)
	}
	data, err := m.LoadAuthState()
	if err != nil || string(data) != `{"url":"x"}` {
		t.Fatalf("LoadAuthState = %q, %v", data, err)
	}
	if err := m.ClearAuthState(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.LoadAuthState(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
