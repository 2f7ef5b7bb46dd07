package auth

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinter_Deterministic(t *testing.T) {
	for _, name := range []string{"", "sha1", "SHA256", "blake2b"} {
		t.Run(name, func(t *testing.T) {
			m, err := NewMinter(name)
			require.NoError(t, err)

			a, err := m.Mint([]byte("session-secret"))
			require.NoError(t, err)
			b, err := m.Mint([]byte("session-secret"))
			require.NoError(t, err)
			assert.Equal(t, a, b)
			assert.NotContains(t, a, "session-secret")
		})
	}
}

func TestMinter_KnownSHA1(t *testing.T) {
	m, err := NewMinter("sha1")
	require.NoError(t, err)
	tok, err := m.Mint([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", tok)
}

func TestMinter_TokenLength(t *testing.T) {
	cases := map[string]int{"sha1": 40, "sha256": 64, "blake2b": 64}
	for name, want := range cases {
		m, err := NewMinter(name)
		require.NoError(t, err)
		tok, err := m.Mint([]byte("x"))
		require.NoError(t, err)
		assert.Len(t, tok, want, name)
	}
}

func TestMinter_RejectsEmptySecret(t *testing.T) {
	m, err := NewMinter("")
	require.NoError(t, err)
	_, err = m.Mint(nil)
	require.ErrorIs(t, err, ErrInvalidSecret)
	_, err = m.Mint([]byte{})
	require.ErrorIs(t, err, ErrInvalidSecret)
}

func TestMinter_UnknownDigest(t *testing.T) {
	_, err := NewMinter("md5")
	require.Error(t, err)
}

func TestMinter_NoCollisions(t *testing.T) {
	const n = 10000
	m, err := NewMinter("sha1")
	require.NoError(t, err)

	seen := make(map[string]string, n)
	for i := 0; i < n; i++ {
		buf := make([]byte, 16)
		_, err := rand.Read(buf)
		require.NoError(t, err)
		secret := string(buf)
		tok, err := m.Mint(buf)
		require.NoError(t, err)
		if prev, ok := seen[tok]; ok {
			require.Equal(t, prev, secret, "distinct secrets minted the same token")
		}
		seen[tok] = secret
	}
}
