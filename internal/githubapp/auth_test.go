package githubapp

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testPrivateKeyPEM(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	return string(pem.EncodeToMemory(block))
}

func TestGenerateJWT(t *testing.T) {
	auth := &AppAuth{AppID: "123456", PrivateKey: testPrivateKeyPEM(t)}

	token, err := auth.GenerateJWT()
	if err != nil {
		t.Fatalf("GenerateJWT() error: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("expected a three-part JWT, got %d parts", len(parts))
	}
}

func TestGenerateJWTBadKey(t *testing.T) {
	auth := &AppAuth{AppID: "1", PrivateKey: "not a pem"}
	if _, err := auth.GenerateJWT(); err == nil {
		t.Fatal("expected error for malformed private key")
	}
}

func TestGenerateJWTBadAppID(t *testing.T) {
	auth := &AppAuth{AppID: "abc", PrivateKey: testPrivateKeyPEM(t)}
	if _, err := auth.GenerateJWT(); err == nil {
		t.Fatal("expected error for non-numeric app id")
	}
}

func TestGetInstallationIDInvalidRepo(t *testing.T) {
	auth := &AppAuth{AppID: "1", PrivateKey: "irrelevant"}

	_, err := auth.getInstallationID("jwt", "not-a-repo")
	if err == nil {
		t.Fatal("expected error for repo without owner/name")
	}
	if !strings.Contains(err.Error(), "owner/repo") {
		t.Errorf("error should explain the expected format, got: %v", err)
	}
}

func TestTokenOwnerLoginCaching(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/app" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		calls++
		fmt.Fprint(w, `{"slug":"junie-agent"}`)
	}))
	defer srv.Close()

	auth := &AppAuth{AppID: "1", PrivateKey: testPrivateKeyPEM(t), BaseURL: srv.URL}

	for i := 0; i < 2; i++ {
		login, err := auth.TokenOwnerLogin()
		if err != nil {
			t.Fatalf("TokenOwnerLogin() error: %v", err)
		}
		if login != "junie-agent[bot]" {
			t.Errorf("login = %q, want junie-agent[bot]", login)
		}
	}

	if calls != 1 {
		t.Errorf("expected one API call due to caching, got %d", calls)
	}
}

func TestGetInstallationToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/widgets/installation":
			fmt.Fprint(w, `{"id": 77}`)
		case "/app/installations/77/access_tokens":
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"token":"ghs_test","expires_at":"2030-01-01T00:00:00Z"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	auth := &AppAuth{AppID: "1", PrivateKey: testPrivateKeyPEM(t), BaseURL: srv.URL}

	token, err := auth.GetInstallationToken("acme/widgets")
	if err != nil {
		t.Fatalf("GetInstallationToken() error: %v", err)
	}
	if token.Token != "ghs_test" {
		t.Errorf("Token = %q, want ghs_test", token.Token)
	}
	if token.ExpiresAt.IsZero() {
		t.Error("ExpiresAt should be set")
	}
}
