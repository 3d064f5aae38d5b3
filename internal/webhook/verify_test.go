package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"
)

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"action":"created"}`)
	secret := "s3cret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	valid := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	tests := []struct {
		name      string
		signature string
		secret    string
		want      bool
	}{
		{"valid", valid, secret, true},
		{"wrong secret", valid, "other", false},
		{"tampered hash", "sha256=" + hex.EncodeToString(make([]byte, 32)), secret, false},
		{"missing prefix", hex.EncodeToString(mac.Sum(nil)), secret, false},
		{"empty", "", secret, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(payload, tt.signature, tt.secret); got != tt.want {
				t.Errorf("VerifySignature = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestValidateSignatureHeader(t *testing.T) {
	if err := ValidateSignatureHeader(""); err == nil {
		t.Error("expected error for missing header")
	}
	if err := ValidateSignatureHeader("sha1=abc"); err == nil {
		t.Error("expected error for non-sha256 header")
	}
	if err := ValidateSignatureHeader("sha256=abc"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCommentDeduper(t *testing.T) {
	d := newCommentDeduper(time.Hour)

	if !d.markIfNew(1) {
		t.Error("first sighting should be new")
	}
	if d.markIfNew(1) {
		t.Error("second sighting should be a duplicate")
	}
	if !d.markIfNew(2) {
		t.Error("different id should be new")
	}
}

func TestCommentDeduperExpiry(t *testing.T) {
	d := newCommentDeduper(time.Millisecond)
	d.markIfNew(1)
	time.Sleep(5 * time.Millisecond)
	if !d.markIfNew(1) {
		t.Error("expired entry should be treated as new")
	}
}
