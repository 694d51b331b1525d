package auth

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/99designs/keyring"

	"odoomcp/cli/internal/errors"
	"odoomcp/cli/internal/keychain"
)

func TestCredentialsValidate(t *testing.T) {
	tests := []struct {
		name     string
		creds    Credentials
		wantMode Mode
		wantErr  bool
	}{
		{name: "password", creds: Credentials{Username: "admin", Password: "x"}, wantMode: ModePassword},
		{name: "api key", creds: Credentials{APIKey: "k"}, wantMode: ModeAPIKey},
		{name: "both", creds: Credentials{Username: "admin", Password: "x", APIKey: "k"}, wantMode: ModeAPIKey, wantErr: true},
		{name: "neither", creds: Credentials{}, wantMode: ModeNone, wantErr: true},
		{name: "username only", creds: Credentials{Username: "admin"}, wantMode: ModePassword, wantErr: true},
		{name: "password only", creds: Credentials{Password: "x"}, wantMode: ModePassword, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.Mode(); got != tt.wantMode {
				t.Errorf("Mode() = %q, want %q", got, tt.wantMode)
			}
			err := tt.creds.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.Configuration) {
				t.Errorf("expected a configuration error, got %v", err)
			}
		})
	}
}

func newTestService(verify Verifier) (*Service, *Store) {
	store := NewStore(keychain.NewManagerWithRing(keyring.NewArrayKeyring(nil)))
	return NewService(store, verify), store
}

func TestLoginStoresSecretOnlyWhenVerified(t *testing.T) {
	rejected := stderrors.New("access denied")
	st := State{URL: "https://erp.example.com", Database: "prod"}

	svc, store := newTestService(func(ctx context.Context, _ State, c Credentials) (string, error) {
		if c.Password != "good" {
			return "", rejected
		}
		return "Mitchell Admin", nil
	})

	if _, err := svc.Login(context.Background(), st, Credentials{Username: "admin", Password: "bad"}); !stderrors.Is(err, rejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if got, _ := store.Load(); got.URL != "" {
		t.Fatalf("state recorded after failed login: %+v", got)
	}

	user, err := svc.Login(context.Background(), st, Credentials{Username: "admin", Password: "good"})
	if err != nil || user != "Mitchell Admin" {
		t.Fatalf("Login = %q, %v", user, err)
	}

	cur, creds, err := svc.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.Mode != ModePassword || cur.Username != "admin" || creds.Password != "good" {
		t.Errorf("unexpected current login: %+v %+v", cur, creds)
	}

	cleared, err := svc.Logout()
	if err != nil || cleared.URL != st.URL {
		t.Fatalf("Logout = %+v, %v", cleared, err)
	}
	if _, err := store.Secret(cleared); !stderrors.Is(err, keychain.ErrNotFound) {
		t.Errorf("secret survived logout: %v", err)
	}
}

func TestAPIKeyLoginRoundTrip(t *testing.T) {
	svc, _ := newTestService(func(context.Context, State, Credentials) (string, error) { return "bot", nil })
	st := State{URL: "https://erp.example.com", Database: "prod"}

	if _, err := svc.Login(context.Background(), st, Credentials{APIKey: "k-123"}); err != nil {
		t.Fatal(err)
	}
	cur, creds, err := svc.Current()
	if err != nil {
		t.Fatal(err)
	}
	if cur.Mode != ModeAPIKey || creds.APIKey != "k-123" || creds.Username != "" {
		t.Errorf("unexpected current login: %+v %+v", cur, creds)
	}
}

func TestLogoutWhenNobodyLoggedIn(t *testing.T) {
	svc, _ := newTestService(nil)
	st, err := svc.Logout()
	if err != nil || st.URL != "" {
		t.Fatalf("Logout = %+v, %v", st, err)
	}
}
