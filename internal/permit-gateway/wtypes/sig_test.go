package wtypes

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeV(t *testing.T) {
	sig := func(v byte) []byte {
		s := bytes.Repeat([]byte{0xab}, 65)
		s[64] = v
		return s
	}

	for _, tc := range []struct {
		in, base, want byte
	}{
		{0, VBase27, 27},
		{1, VBase27, 28},
		{28, VBase27, 28},
		{27, VBase0, 0},
		{28, VBase0, 1},
		{1, VBase0, 1},
	} {
		in := sig(tc.in)
		out, err := NormalizeV(in, tc.base)
		require.NoError(t, err)
		assert.Equal(t, tc.want, out[64])
		assert.Equal(t, in[:64], out[:64])
		assert.Equal(t, tc.in, in[64], "input must not be modified")
	}

	_, err := NormalizeV(sig(2), VBase27)
	require.Error(t, err)
	_, err = NormalizeV(sig(29), VBase0)
	require.Error(t, err)
	_, err = NormalizeV(make([]byte, 64), VBase0)
	require.Error(t, err)
}

func TestEnsureDigest32(t *testing.T) {
	require.NoError(t, EnsureDigest32(make([]byte, 32)))
	require.Error(t, EnsureDigest32(make([]byte, 31)))
}
