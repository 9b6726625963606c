package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrStaleTimestamp   = errors.New("stale timestamp")
)

// MaxClockSkew is the maximum age accepted for a signed webhook payload.
// Replayed deliveries older than this are rejected even with a valid signature.
const MaxClockSkew = 5 * time.Minute

// Sign computes the hex-encoded HMAC-SHA256 signature of "<timestamp>.<body>".
// The timestamp is bound into the signature so a captured payload cannot be
// replayed later with a fresh timestamp header.
func Sign(secret []byte, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a webhook signature using a constant-time compare.
func Verify(secret []byte, timestamp int64, body []byte, signature string) error {
	sent := time.Unix(timestamp, 0)
	if d := time.Since(sent); d > MaxClockSkew || d < -MaxClockSkew {
		return fmt.Errorf("%w: sent at %s", ErrStaleTimestamp, sent.UTC().Format(time.RFC3339))
	}

	expected := Sign(secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}

	return nil
}
