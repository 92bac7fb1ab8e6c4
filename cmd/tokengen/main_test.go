// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risyyz/ABCD-sub000/internal/platform/constants"
	"github.com/risyyz/ABCD-sub000/internal/platform/sec"
)

func writeKeyPair(t *testing.T) (string, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privatePath := filepath.Join(dir, "private.pem")
	publicPath := filepath.Join(dir, "public.pem")

	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(privatePath, privatePEM, 0o600))

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})
	require.NoError(t, os.WriteFile(publicPath, publicPEM, 0o600))

	return privatePath, publicPath
}

/*
TestTokengen_SignsVerifiableToken checks the printed token verifies with the public key.
*/
func TestTokengen_SignsVerifiableToken(t *testing.T) {
	privatePath, publicPath := writeKeyPair(t)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--private-key", privatePath,
		"--public-key", publicPath,
		"--user", "u-1",
		"--name", "alice",
		"--role", "admin",
		"--ttl", "1h",
	})

	require.NoError(t, cmd.Execute())

	verifier, err := sec.NewTokenVerifier(publicPath, constants.AuthIssuer)
	require.NoError(t, err)

	claims, err := verifier.VerifyToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "admin", claims.Role)
}

/*
TestTokengen_Rejects covers invalid flag combinations.
*/
func TestTokengen_Rejects(t *testing.T) {
	privatePath, publicPath := writeKeyPair(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown_role", []string{"--user", "u-1", "--role", "owner"}},
		{"negative_ttl", []string{"--user", "u-1", "--ttl", "-1m"}},
		{"missing_user", []string{"--role", "author"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCommand()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append([]string{"--private-key", privatePath, "--public-key", publicPath}, tt.args...))

			assert.Error(t, cmd.Execute())
		})
	}
}
