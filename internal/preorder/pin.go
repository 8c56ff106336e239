package preorder

import (
	"math/rand"
	"strings"
	"time"
)

// PINIssuer generates confirmation codes for pre-orders that skip
// approval. The code gates a short-lived, staff-witnessed action, so plain
// randomness is sufficient. Issue may be called again to mint a fresh
// code for the same pre-order if the previous one lapses.
type PINIssuer struct {
	Length int
	TTL    time.Duration
	now    func() time.Time
}

func NewPINIssuer(length int, ttl time.Duration) PINIssuer {
	if length <= 0 {
		length = 6
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return PINIssuer{Length: length, TTL: ttl, now: time.Now}
}

// Issue returns a fixed-length numeric code and its expiry deadline.
func (i PINIssuer) Issue() (string, time.Time) {
	var sb strings.Builder
	sb.Grow(i.Length)
	for n := 0; n < i.Length; n++ {
		sb.WriteByte(byte('0' + rand.Intn(10)))
	}
	return sb.String(), i.now().Add(i.TTL)
}
