package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Unix(1_700_000_000, 0)

func hexMAC(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func stripeHeader(secret, body string, at time.Time) http.Header {
	ts := strconv.FormatInt(at.Unix(), 10)
	h := http.Header{}
	h.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", ts, hexMAC(secret, ts+"."+body)))
	return h
}

func paddleHeader(secret, body string, at time.Time) http.Header {
	ts := strconv.FormatInt(at.Unix(), 10)
	h := http.Header{}
	h.Set("Paddle-Signature", fmt.Sprintf("ts=%s;h1=%s", ts, hexMAC(secret, ts+":"+body)))
	return h
}

func TestStripeVerifier(t *testing.T) {
	v := StripeVerifier{Secret: "whsec"}
	body := `{"id":"evt_1"}`

	assert.NoError(t, v.Verify(stripeHeader("whsec", body, now), []byte(body), now))
	assert.NoError(t, v.Verify(stripeHeader("whsec", body, now.Add(-4*time.Minute)), []byte(body), now))

	assert.ErrorIs(t, v.Verify(stripeHeader("other", body, now), []byte(body), now), ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify(stripeHeader("whsec", body, now), []byte(body+" "), now), ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify(stripeHeader("whsec", body, now.Add(-6*time.Minute)), []byte(body), now), ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify(http.Header{}, []byte(body), now), ErrInvalidSignature)
}

func TestStripeVerifierAcceptsAnyRotatedSignature(t *testing.T) {
	v := StripeVerifier{Secret: "new"}
	body := `{"id":"evt_2"}`
	ts := strconv.FormatInt(now.Unix(), 10)
	h := http.Header{}
	h.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s,v1=%s", ts, hexMAC("old", ts+"."+body), hexMAC("new", ts+"."+body)))

	assert.NoError(t, v.Verify(h, []byte(body), now))
}

func TestPaddleVerifier(t *testing.T) {
	v := PaddleVerifier{Secret: "pdl"}
	body := `{"event_id":"e"}`

	assert.NoError(t, v.Verify(paddleHeader("pdl", body, now), []byte(body), now))
	assert.ErrorIs(t, v.Verify(paddleHeader("nope", body, now), []byte(body), now), ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify(paddleHeader("pdl", body, now.Add(10*time.Minute)), []byte(body), now), ErrInvalidSignature)

	bad := http.Header{}
	bad.Set("Paddle-Signature", "ts=abc;h1=00")
	assert.ErrorIs(t, v.Verify(bad, []byte(body), now), ErrInvalidSignature)
}

func TestLemonSqueezyVerifier(t *testing.T) {
	v := LemonSqueezyVerifier{Secret: "lmn"}
	body := `{"meta":{}}`

	h := http.Header{}
	h.Set("X-Signature", hexMAC("lmn", body))
	assert.NoError(t, v.Verify(h, []byte(body), now))

	h.Set("X-Signature", "not-hex")
	assert.ErrorIs(t, v.Verify(h, []byte(body), now), ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify(http.Header{}, []byte(body), now), ErrInvalidSignature)
}

func TestSecretsVerifiers(t *testing.T) {
	got := Secrets{Stripe: "s", LemonSqueezy: "l"}.Verifiers()
	assert.Len(t, got, 2)
	assert.Contains(t, got, ProviderStripe)
	assert.Contains(t, got, ProviderLemonSqueezy)
	assert.NotContains(t, got, ProviderPaddle)
}
