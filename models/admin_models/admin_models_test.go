package admin_models

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	salt := []byte("0123456789abcdef")
	h := HashPassword("correct horse", salt)
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashPassword("correct horse", salt))
	assert.NotEqual(t, h, HashPassword("correct horse", []byte("fedcba9876543210")))

	assert.True(t, matches("correct horse", h, hex.EncodeToString(salt)))
	assert.False(t, matches("battery staple", h, hex.EncodeToString(salt)))
	assert.False(t, matches("correct horse", h, "not-hex"))
}

func TestNewSalt(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestMemoryAdminStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAdminStore()
	require.NoError(t, s.Seed(ctx, "desk", "correct horse"))

	assert.NoError(t, s.Verify(ctx, "desk", "correct horse"))
	assert.ErrorIs(t, s.Verify(ctx, "desk", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, s.Verify(ctx, "ghost", "correct horse"), ErrInvalidCredentials)

	require.NoError(t, s.Seed(ctx, "desk", "rotated"))
	assert.ErrorIs(t, s.Verify(ctx, "desk", "correct horse"), ErrInvalidCredentials)
	assert.NoError(t, s.Verify(ctx, "desk", "rotated"))
}
