package preorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPINIssuer_Issue(t *testing.T) {
	fixed := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	issuer := NewPINIssuer(6, 30*time.Minute)
	issuer.now = func() time.Time { return fixed }

	t.Run("LengthAndDigits", func(t *testing.T) {
		pin, _ := issuer.Issue()
		assert.Len(t, pin, 6)
		for _, c := range pin {
			assert.True(t, c >= '0' && c <= '9', "unexpected character %q", c)
		}
	})

	t.Run("ExpiryIsNowPlusTTL", func(t *testing.T) {
		_, expiresAt := issuer.Issue()
		assert.Equal(t, fixed.Add(30*time.Minute), expiresAt)
	})

	t.Run("LeadingZerosPreserved", func(t *testing.T) {
		// Codes are opaque strings, not numbers; a code of all zeros
		// must still come back with full length.
		for i := 0; i < 50; i++ {
			pin, _ := issuer.Issue()
			assert.Len(t, pin, 6)
		}
	})
}

func TestNewPINIssuer_Defaults(t *testing.T) {
	issuer := NewPINIssuer(0, 0)
	assert.Equal(t, 6, issuer.Length)
	assert.Equal(t, 30*time.Minute, issuer.TTL)
}
