package core

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceFromInt64SignExtends(t *testing.T) {
	one := NonceFromInt64(1)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}, one.Bytes())
	assert.Equal(t, "1", one.String())

	minusOne := NonceFromInt64(-1)
	for _, b := range minusOne.Bytes() {
		assert.Equal(t, byte(0xff), b)
	}
	assert.Equal(t, big.NewInt(-1), minusOne.BigInt())

	assert.Equal(t, "-9223372036854775808", NonceFromInt64(-1<<63).String())
	assert.Equal(t, "0", Nonce{}.String())
}

func TestNonceBigIntExtremes(t *testing.T) {
	var maxN Nonce
	maxN[0] = 0x7f
	for i := 1; i < NonceSize; i++ {
		maxN[i] = 0xff
	}
	want := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	assert.Equal(t, want, maxN.BigInt())

	var minN Nonce
	minN[0] = 0x80
	assert.Equal(t, new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127)), minN.BigInt())
}

func TestSequenceNonceSource(t *testing.T) {
	src := NewSequenceNonceSource(NonceFromInt64(7), NonceFromInt64(8))

	n, err := src.NextNonce()
	require.NoError(t, err)
	assert.Equal(t, NonceFromInt64(7), n)
	n, err = src.NextNonce()
	require.NoError(t, err)
	assert.Equal(t, NonceFromInt64(8), n)

	_, err = src.NextNonce()
	assert.ErrorIs(t, err, ErrNonceSourceExhausted)
	assert.Equal(t, 2, src.Drawn())
}

func TestRandomNonceSourceVaries(t *testing.T) {
	src := NewRandomNonceSource()
	a, err := src.NextNonce()
	require.NoError(t, err)
	b, err := src.NextNonce()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
