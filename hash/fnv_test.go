package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum64Deterministic(t *testing.T) {
	a := Sum64([]byte("hello"))
	b := Sum64([]byte("hello"))
	assert.Equal(t, a, b)
}

func TestSum64KnownVector(t *testing.T) {
	// FNV-1a 64-bit of the empty string is the offset basis.
	assert.Equal(t, offsetBasis64, Sum64(nil))
	assert.Equal(t, offsetBasis64, Sum64([]byte{}))
}

func TestSum64DistinguishesInputs(t *testing.T) {
	assert.NotEqual(t, Sum64([]byte("a")), Sum64([]byte("b")))
	assert.NotEqual(t, Sum64([]byte("abc")), Sum64([]byte("cba")))
}
