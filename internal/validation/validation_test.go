package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateSubdomain_Valid(t *testing.T) {
	require.NoError(t, ValidateSubdomain("acme"))
	require.NoError(t, ValidateSubdomain("acme-corp"))
	require.NoError(t, ValidateSubdomain("a1b"))
	require.NoError(t, ValidateSubdomain("  Acme  "))
}

func TestValidateSubdomain_TooShort(t *testing.T) {
	require.ErrorIs(t, ValidateSubdomain("ab"), ErrSubdomainTooShort)
	require.ErrorIs(t, ValidateSubdomain(""), ErrSubdomainTooShort)
}

func TestValidateSubdomain_TooLong(t *testing.T) {
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	require.ErrorIs(t, ValidateSubdomain(string(long)), ErrSubdomainTooLong)
}

func TestValidateSubdomain_BadCharacters(t *testing.T) {
	require.ErrorIs(t, ValidateSubdomain("acme_corp"), ErrInvalidSubdomain)
	require.ErrorIs(t, ValidateSubdomain("-acme"), ErrInvalidSubdomain)
	require.ErrorIs(t, ValidateSubdomain("acme-"), ErrInvalidSubdomain)
	require.ErrorIs(t, ValidateSubdomain("ac me"), ErrInvalidSubdomain)
}

func TestValidateSubdomain_Reserved(t *testing.T) {
	require.ErrorIs(t, ValidateSubdomain("www"), ErrSubdomainReserved)
	require.ErrorIs(t, ValidateSubdomain("api"), ErrSubdomainReserved)
	require.ErrorIs(t, ValidateSubdomain("app"), ErrSubdomainReserved)
	require.ErrorIs(t, ValidateSubdomain("admin"), ErrSubdomainReserved)
}

func TestValidateResourceName(t *testing.T) {
	require.NoError(t, ValidateResourceName("CI key", 100))
	require.Error(t, ValidateResourceName("", 100))
	require.Error(t, ValidateResourceName("   ", 100))
	require.Error(t, ValidateResourceName("toolong", 3))
}
