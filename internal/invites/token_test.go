package invites

import (
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken_AndValidateFormatAndHash(t *testing.T) {
	token, hash, err := GenerateToken()
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(token, TokenPrefix))
	require.True(t, ValidateTokenFormat(token))
	require.Len(t, hash, sha256.Size)
	require.Equal(t, HashToken(token), hash)
}

func TestGenerateToken_Unique(t *testing.T) {
	a, _, err := GenerateToken()
	require.NoError(t, err)
	b, _, err := GenerateToken()
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestValidateTokenFormat_InvalidPrefix(t *testing.T) {
	require.False(t, ValidateTokenFormat("dgk_abc"))
	require.False(t, ValidateTokenFormat("nope"))
	require.False(t, ValidateTokenFormat(""))
}

func TestValidateTokenFormat_TruncatedBody(t *testing.T) {
	require.False(t, ValidateTokenFormat(TokenPrefix+"short"))
}
