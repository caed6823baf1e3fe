package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance bounds the age of a timestamped signature.
const DefaultTolerance = 5 * time.Minute

// Verifier authenticates a raw webhook delivery.
type Verifier interface {
	Verify(header http.Header, body []byte, now time.Time) error
}

// StripeVerifier checks "Stripe-Signature: t=<unix>,v1=<hex>" over "<t>.<body>".
type StripeVerifier struct {
	Secret    string
	Tolerance time.Duration
}

func (v StripeVerifier) Verify(header http.Header, body []byte, now time.Time) error {
	parts := splitPairs(header.Get("Stripe-Signature"), ",")
	ts, ok := first(parts, "t")
	if !ok {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidSignature)
	}
	if err := checkTimestamp(ts, now, v.Tolerance); err != nil {
		return err
	}
	// Stripe may send several v1 entries during secret rotation.
	expected := sign(v.Secret, ts+"."+string(body))
	for _, sig := range parts["v1"] {
		if equalHex(expected, sig) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching v1 signature", ErrInvalidSignature)
}

// PaddleVerifier checks "Paddle-Signature: ts=<unix>;h1=<hex>" over "<ts>:<body>".
type PaddleVerifier struct {
	Secret    string
	Tolerance time.Duration
}

func (v PaddleVerifier) Verify(header http.Header, body []byte, now time.Time) error {
	parts := splitPairs(header.Get("Paddle-Signature"), ";")
	ts, ok := first(parts, "ts")
	if !ok {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidSignature)
	}
	if err := checkTimestamp(ts, now, v.Tolerance); err != nil {
		return err
	}
	expected := sign(v.Secret, ts+":"+string(body))
	for _, sig := range parts["h1"] {
		if equalHex(expected, sig) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching h1 signature", ErrInvalidSignature)
}

// LemonSqueezyVerifier checks "X-Signature: <hex>" over the raw body.
type LemonSqueezyVerifier struct {
	Secret string
}

func (v LemonSqueezyVerifier) Verify(header http.Header, body []byte, _ time.Time) error {
	sig := strings.TrimSpace(header.Get("X-Signature"))
	if sig == "" {
		return fmt.Errorf("%w: missing signature", ErrInvalidSignature)
	}
	if !equalHex(sign(v.Secret, string(body)), sig) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}
	return nil
}

func sign(secret, payload string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func equalHex(expected []byte, candidate string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(candidate))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

func checkTimestamp(raw string, now time.Time, tolerance time.Duration) error {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp %q", ErrInvalidSignature, raw)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	age := now.Sub(time.Unix(secs, 0))
	if age > tolerance || age < -tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}
	return nil
}

func splitPairs(header, sep string) map[string][]string {
	out := map[string][]string{}
	for _, item := range strings.Split(header, sep) {
		k, v, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		out[k] = append(out[k], v)
	}
	return out
}

func first(values map[string][]string, key string) (string, bool) {
	v := values[key]
	if len(v) == 0 {
		return "", false
	}
	return v[0], true
}
