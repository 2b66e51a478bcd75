package services

import (
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastHasher() *PasswordHasher {
	return NewPasswordHasherWithParams(&argon2id.Params{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
}

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := fastHasher()

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := h.Verify("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong horse", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_RejectsShortPassword(t *testing.T) {
	_, err := fastHasher().Hash("short")

	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestPasswordHasher_VerifyGarbageHash(t *testing.T) {
	ok, err := fastHasher().Verify("whatever", "not-a-hash")

	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_DefaultParams(t *testing.T) {
	h := NewPasswordHasher()

	assert.Equal(t, uint32(64*1024), h.params.Memory)
	assert.Equal(t, uint32(3), h.params.Iterations)
}
