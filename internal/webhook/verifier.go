package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/noah-isme/checkout-gateway/internal/common"
)

// Signature computes the expected signature for a raw webhook body. The
// remote platform signs the lowercase-hex SHA-256 of the body with an
// HMAC-SHA256 keyed by the shared webhook secret, hex-encoded.
func Signature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(common.Sha256Hex(string(body))))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether the presented signature matches the body. The
// comparison is constant time.
func Verify(secret string, body []byte, presented string) bool {
	return hmac.Equal([]byte(Signature(secret, body)), []byte(presented))
}
