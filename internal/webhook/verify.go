package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// signaturePrefix is the scheme GitHub puts in front of the hex digest in
// the X-Hub-Signature-256 header.
const signaturePrefix = "sha256="

// ValidateSignatureHeader checks that the X-Hub-Signature-256 header is
// present and carries the expected scheme, before any hashing happens.
func ValidateSignatureHeader(header string) error {
	if header == "" {
		return fmt.Errorf("missing X-Hub-Signature-256 header")
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return fmt.Errorf("unsupported signature scheme, want sha256=<hex digest>")
	}
	return nil
}

// VerifySignature reports whether the delivery body matches the digest
// GitHub computed with the shared webhook secret. The comparison is
// constant time.
func VerifySignature(payload []byte, signature, secret string) bool {
	received, ok := strings.CutPrefix(signature, signaturePrefix)
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(received), []byte(expected))
}
