package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigestPassword(t *testing.T) {
	t.Run("empty password has empty digest", func(t *testing.T) {
		d := DigestPassword("")
		assert.True(t, d.IsEmpty())
		assert.Equal(t, "", d.String())
	})

	t.Run("known sha256 hex", func(t *testing.T) {
		d := DigestPassword("hunter2")
		assert.Equal(t, "f52fbd32b2b3b86ff88ef6c490628285f482af15ddcb29541f94bcf526a3f6c7", d.String())
		assert.False(t, d.IsEmpty())
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, DigestPassword("s3cret").String(), DigestPassword("s3cret").String())
	})
}

func TestPasswordDigest_Matches(t *testing.T) {
	stored := DigestPassword("s3cret")

	assert.True(t, stored.Matches(DigestPassword("s3cret")))
	assert.True(t, stored.Matches(PasswordDigestFromStored(stored.String())))
	assert.False(t, stored.Matches(DigestPassword("wrong")))
	assert.False(t, stored.Matches(DigestPassword("")))
	assert.True(t, DigestPassword("").Matches(DigestPassword("")))
	assert.False(t, DigestPassword("").Matches(DigestPassword("anything")))
}
