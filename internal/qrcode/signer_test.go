package qrcode

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSignIsStable(t *testing.T) {
	a, err := NewSigner(testSecret)
	require.NoError(t, err)
	b, err := NewSigner(testSecret)
	require.NoError(t, err)

	payload := "evt-1:tkt-1:s44we8"
	assert.Equal(t, a.Sign(payload), b.Sign(payload))
	assert.Len(t, a.Sign(payload), 64)
	assert.True(t, b.Verify(payload, a.Sign(payload)))
}

func TestSignChangesWithEveryCharacter(t *testing.T) {
	s, err := NewSigner(testSecret)
	require.NoError(t, err)

	seen := make(map[string]string)
	for i := 0; i < 50; i++ {
		payload := uuid.NewString() + ":" + uuid.NewString()
		base := s.Sign(payload)

		for pos := 0; pos < len(payload); pos++ {
			mutated := []byte(payload)
			mutated[pos] ^= 0x01
			sig := s.Sign(string(mutated))
			assert.NotEqual(t, base, sig, "flip at %d did not change signature", pos)

			if prev, ok := seen[sig]; ok {
				assert.Equal(t, prev, string(mutated), "signature collision")
			}
			seen[sig] = string(mutated)
		}
	}
}

func TestSignDependsOnSecret(t *testing.T) {
	a, _ := NewSigner(testSecret)
	b, _ := NewSigner(testSecret + "x")

	assert.NotEqual(t, a.Sign("evt:tkt"), b.Sign("evt:tkt"))
	assert.False(t, b.Verify("evt:tkt", a.Sign("evt:tkt")))
}

func TestNewSignerRequiresSecret(t *testing.T) {
	_, err := NewSigner("")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestRenderPNG(t *testing.T) {
	png, err := RenderPNG("evt-1:tkt-1", 0)
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
