// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risyyz/ABCD-sub000/internal/platform/constants"
	"github.com/risyyz/ABCD-sub000/internal/platform/sec"
)

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

/*
TestTokenService_RoundTrip verifies that a signed token verifies back to the same claims.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	key := newKey(t)
	service := sec.NewTokenServiceFromKeys(key, &key.PublicKey, constants.AuthIssuer)

	token, err := service.GenerateAccessToken("user-1", "alice", string(sec.RoleAuthor), time.Hour)
	require.NoError(t, err)

	claims, err := service.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "author", claims.Role)
}

/*
TestTokenService_Rejects covers expired tokens, foreign issuers, and foreign keys.
*/
func TestTokenService_Rejects(t *testing.T) {
	key := newKey(t)
	service := sec.NewTokenServiceFromKeys(key, &key.PublicKey, constants.AuthIssuer)

	t.Run("expired", func(t *testing.T) {
		token, err := service.GenerateAccessToken("user-1", "alice", "author", -time.Minute)
		require.NoError(t, err)
		_, err = service.VerifyToken(token)
		assert.Error(t, err)
	})

	t.Run("other_issuer", func(t *testing.T) {
		other := sec.NewTokenServiceFromKeys(key, &key.PublicKey, "elsewhere")
		token, err := other.GenerateAccessToken("user-1", "alice", "author", time.Hour)
		require.NoError(t, err)
		_, err = service.VerifyToken(token)
		assert.Error(t, err)
	})

	t.Run("other_key", func(t *testing.T) {
		otherKey := newKey(t)
		other := sec.NewTokenServiceFromKeys(otherKey, &otherKey.PublicKey, constants.AuthIssuer)
		token, err := other.GenerateAccessToken("user-1", "alice", "author", time.Hour)
		require.NoError(t, err)
		_, err = service.VerifyToken(token)
		assert.Error(t, err)
	})
}

/*
TestTokenService_VerifyOnly verifies that a service without a private key cannot sign.
*/
func TestTokenService_VerifyOnly(t *testing.T) {
	key := newKey(t)
	verifier := sec.NewTokenServiceFromKeys(nil, &key.PublicKey, constants.AuthIssuer)

	_, err := verifier.GenerateAccessToken("user-1", "alice", "author", time.Hour)
	assert.ErrorIs(t, err, sec.ErrSigningDisabled)
}

/*
TestUserRole_AtLeast checks the role hierarchy.
*/
func TestUserRole_AtLeast(t *testing.T) {
	assert.True(t, sec.RoleAdmin.AtLeast(sec.RoleAuthor))
	assert.True(t, sec.RoleAuthor.AtLeast(sec.RoleAuthor))
	assert.False(t, sec.RoleMember.AtLeast(sec.RoleAuthor))
	assert.False(t, sec.UserRole("guest").AtLeast(sec.RoleMember))
}
