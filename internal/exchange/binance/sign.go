package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"portwatch/internal/adapter"
)

// sign returns the hex HMAC-SHA256 of the full query string keyed by the secret.
func sign(secret adapter.Str64, query string) string {
	mac := hmac.New(sha256.New, secret.AppendBytes(make([]byte, 0, len(secret))))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}
