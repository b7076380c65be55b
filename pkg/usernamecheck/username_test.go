package usernamecheck_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ruggine/chatcore/pkg/usernamecheck"
)

func TestValidateAccepts(t *testing.T) {
	require.NoError(t, usernamecheck.Validate("alice"))
	require.NoError(t, usernamecheck.Validate("Bob123"))
}

func TestValidateRejectsTooShort(t *testing.T) {
	require.Error(t, usernamecheck.Validate("ab"))
}

func TestValidateRejectsNonAlphanumeric(t *testing.T) {
	require.Error(t, usernamecheck.Validate("alice_bob"))
	require.Error(t, usernamecheck.Validate("alice bob"))
}
