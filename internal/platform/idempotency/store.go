package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultTTL is how long a completed admin write stays replayable.
const DefaultTTL = 24 * time.Hour

// ReservationState describes the outcome of claiming a key.
type ReservationState int

const (
	// ReservationNew means the caller owns the key and must run the request.
	ReservationNew ReservationState = iota
	// ReservationCompleted means a stored response exists and is replayed instead.
	ReservationCompleted
	// ReservationPending means another request holding the key has not finished.
	ReservationPending
)

// Reservation is the result of Claim.
type Reservation struct {
	State    ReservationState
	Response Response
}

// Response is the stored outcome of a completed admin write.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Store claims keys and keeps the responses of finished requests. Keys are scoped by the caller
// and bound to a request fingerprint.
type Store interface {
	Claim(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error)
	Complete(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// ErrFingerprintMismatch is returned when a key is reused for a different request.
var ErrFingerprintMismatch = errors.New("idempotency: key reused for a different request")

func documentID(key string) string {
	return sha256Hex([]byte(strings.TrimSpace(key)))
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func storableHeaders(header http.Header) map[string][]string {
	if len(header) == 0 {
		return nil
	}
	out := make(map[string][]string, len(header))
	for name, values := range header {
		canonical := http.CanonicalHeaderKey(name)
		switch canonical {
		case "Content-Length", "Date", "Connection", "Transfer-Encoding", "Set-Cookie":
			continue
		}
		out[canonical] = append([]string(nil), values...)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func headerFromStored(values map[string][]string) http.Header {
	header := make(http.Header, len(values))
	for name, vals := range values {
		header[name] = append([]string(nil), vals...)
	}
	return header
}
