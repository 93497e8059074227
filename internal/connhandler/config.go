package connhandler

import (
	"sync/atomic"
	"time"
)

// Config bundles the tunables a Handler needs beyond its collaborators.
type Config struct {
	HandshakeTimeout  time.Duration
	MaxInvalidJSON    int
	MaxTokenLength    int
	ReadLimitBytes    int64
}

// DefaultConfig returns the spec's defaults: 5s join handshake, 10 invalid
// JSON frames before disconnect, 4096-byte session token cap.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 5 * time.Second,
		MaxInvalidJSON:   10,
		MaxTokenLength:   4096,
		ReadLimitBytes:   8192,
	}
}

// connTokenCounter mints process-unique connection tokens. Generalizes the
// teacher's uuid.New() token-minting idiom to a cheap monotonic counter,
// since conn_token only needs per-process uniqueness (SPEC_FULL.md §4.5).
var connTokenCounter atomic.Uint64

func nextConnToken() uint64 {
	return connTokenCounter.Add(1)
}
