package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", hash)

	assert.NoError(t, h.Compare(hash, "correct-horse"))
	assert.ErrorIs(t, h.Compare(hash, "wrong-horse"), ErrPasswordMismatch)
	assert.ErrorIs(t, h.Compare("not-a-hash", "correct-horse"), ErrPasswordMismatch)
}

func TestBcryptHasherPasswordLength(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = h.Hash(strings.Repeat("a", MaxPasswordLen+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = h.Hash(strings.Repeat("a", MaxPasswordLen))
	assert.NoError(t, err)
}

func TestBcryptHasherCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).Cost())
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(bcrypt.MaxCost+1).Cost())

	low := NewBcryptHasher(bcrypt.MinCost)
	high := NewBcryptHasher(bcrypt.MinCost + 1)
	hash, err := low.Hash("correct-horse")
	require.NoError(t, err)

	assert.False(t, low.NeedsRehash(hash))
	assert.True(t, high.NeedsRehash(hash))
	assert.False(t, high.NeedsRehash("not-a-hash"))
	assert.NoError(t, high.Compare(hash, "correct-horse"))
}
