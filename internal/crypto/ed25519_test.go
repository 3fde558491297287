package crypto

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEd25519KeyPair(t *testing.T) {
	t.Run("GenerateNewKeyPair", func(t *testing.T) {
		keyPair, err := NewEd25519KeyPair()
		require.NoError(t, err)
		assert.NotNil(t, keyPair)
		assert.Len(t, keyPair.PublicKey, ed25519.PublicKeySize)
		assert.Len(t, keyPair.PrivateKey, ed25519.PrivateKeySize)
	})

	t.Run("KeyPairUsableForSigning", func(t *testing.T) {
		keyPair, err := NewEd25519KeyPair()
		require.NoError(t, err)

		data := []byte("status credential payload")
		signature := ed25519.Sign(keyPair.PrivateKey, data)
		assert.True(t, ed25519.Verify(keyPair.PublicKey, data, signature))
	})

	t.Run("DistinctKeyPairsPerCall", func(t *testing.T) {
		a, err := NewEd25519KeyPair()
		require.NoError(t, err)
		b, err := NewEd25519KeyPair()
		require.NoError(t, err)
		assert.NotEqual(t, a.PrivateKey, b.PrivateKey)
	})
}
