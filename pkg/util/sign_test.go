package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignVerify(t *testing.T) {
	body := []byte(`{"deliveredAt":"2024-05-01T12:00:00Z"}`)
	sig := Sign("POST", "/api/crisis/alerts/a-1/notified", body, "1714564800", "s3cret")

	assert.Len(t, sig, 64)
	assert.True(t, VerifySign(sig, "POST", "/api/crisis/alerts/a-1/notified", body, "1714564800", "s3cret"))
	assert.False(t, VerifySign(sig, "POST", "/api/crisis/alerts/a-2/notified", body, "1714564800", "s3cret"))
	assert.False(t, VerifySign(sig, "POST", "/api/crisis/alerts/a-1/notified", body, "1714564801", "s3cret"))
	assert.False(t, VerifySign(sig, "POST", "/api/crisis/alerts/a-1/notified", body, "1714564800", "other"))
}
