package ids

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewSuffix returns n cryptographically random bytes as lowercase hex. Stored
// document names embed it so on-disk names never derive from caller input.
func NewSuffix(n int) string {
	if n <= 0 {
		n = 8
	}
	buf := make([]byte, n)
	_, _ = cryptorand.Read(buf)
	return hex.EncodeToString(buf)
}
