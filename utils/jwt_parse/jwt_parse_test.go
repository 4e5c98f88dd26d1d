package jwt_parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaffTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, expires, err := IssueStaffToken(secret, "frontdesk", time.Hour, time.Now())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	username, err := ParseStaffToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "frontdesk", username)
}

func TestParseStaffTokenAtClock(t *testing.T) {
	secret := []byte("test-secret")
	issued := time.Date(2024, 5, 30, 9, 0, 0, 0, time.UTC)
	token, _, err := IssueStaffToken(secret, "frontdesk", time.Hour, issued)
	require.NoError(t, err)

	username, err := ParseStaffTokenAt(secret, token, func() time.Time { return issued.Add(30 * time.Minute) })
	require.NoError(t, err)
	assert.Equal(t, "frontdesk", username)

	_, err = ParseStaffTokenAt(secret, token, func() time.Time { return issued.Add(2 * time.Hour) })
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseStaffTokenAt(secret, token, func() time.Time { return issued.Add(-time.Minute) })
	assert.ErrorIs(t, err, ErrInvalidToken, "not valid before issue")
}

func TestParseStaffTokenRejects(t *testing.T) {
	secret := []byte("test-secret")

	t.Run("WrongSecret", func(t *testing.T) {
		token, _, err := IssueStaffToken([]byte("other"), "frontdesk", time.Hour, time.Now())
		require.NoError(t, err)
		_, err = ParseStaffToken(secret, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		token, _, err := IssueStaffToken(secret, "frontdesk", time.Minute, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		_, err = ParseStaffToken(secret, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := ParseStaffToken(secret, "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
}
