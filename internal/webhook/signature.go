package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// verify checks body against the signature header the request actually
// carries, trying the three forms spec.md names: GitHub's
// X-Hub-Signature-256, Stripe's Stripe-Signature, and the generic
// X-Signature hex digest. An empty secret is never valid: a
// registration must set one to receive traffic.
func verify(r *http.Request, body []byte, secret string) error {
	if secret == "" {
		return fmt.Errorf("webhook: no shared secret configured")
	}

	if sig := r.Header.Get("X-Hub-Signature-256"); sig != "" {
		return verifyGitHub(body, secret, sig)
	}
	if sig := r.Header.Get("Stripe-Signature"); sig != "" {
		return verifyStripe(body, secret, sig)
	}
	if sig := r.Header.Get("X-Signature"); sig != "" {
		return verifyGeneric(body, secret, sig)
	}
	return fmt.Errorf("webhook: no recognized signature header present")
}

func verifyGitHub(body []byte, secret, header string) error {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return fmt.Errorf("webhook: malformed X-Hub-Signature-256 header")
	}
	if !hmacHexEqual(body, secret, strings.TrimPrefix(header, prefix)) {
		return fmt.Errorf("webhook: signature mismatch")
	}
	return nil
}

func verifyGeneric(body []byte, secret, header string) error {
	if !hmacHexEqual(body, secret, header) {
		return fmt.Errorf("webhook: signature mismatch")
	}
	return nil
}

// verifyStripe parses "t=<timestamp>,v1=<sig>[,v1=<sig>...]" and HMACs the
// signed payload "<timestamp>.<body>", matching Stripe's documented scheme.
func verifyStripe(body []byte, secret, header string) error {
	var timestamp string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			candidates = append(candidates, kv[1])
		}
	}
	if timestamp == "" {
		return fmt.Errorf("webhook: stripe signature missing timestamp")
	}
	if _, err := strconv.ParseInt(timestamp, 10, 64); err != nil {
		return fmt.Errorf("webhook: stripe signature has a non-numeric timestamp")
	}
	if len(candidates) == 0 {
		return fmt.Errorf("webhook: stripe signature missing v1 digest")
	}

	signedPayload := append([]byte(timestamp+"."), body...)
	for _, candidate := range candidates {
		if hmacHexEqual(signedPayload, secret, candidate) {
			return nil
		}
	}
	return fmt.Errorf("webhook: signature mismatch")
}

func hmacHexEqual(payload []byte, secret, candidateHex string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(candidateHex), []byte(expected))
}
