package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "gridgate/pkg/domain-errors"
)

func TestParsePermissionIDEnforcesUUIDShape(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParsePermissionID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non-UUID input", func(t *testing.T) {
		_, err := ParsePermissionID("perm-1")
		require.Error(t, err)
	})

	t.Run("rejects the nil UUID", func(t *testing.T) {
		_, err := ParsePermissionID(uuid.Nil.String())
		require.Error(t, err)
	})

	t.Run("canonicalizes valid input", func(t *testing.T) {
		got, err := ParsePermissionID("7F2C3A04-9D7B-4C46-A6CF-2D5B1E8A9F10")
		require.NoError(t, err)
		assert.Equal(t, "7f2c3a04-9d7b-4c46-a6cf-2d5b1e8a9f10", got.String())
	})
}

func TestNewIDsAreUniqueAndParseable(t *testing.T) {
	a := NewPermissionID()
	b := NewPermissionID()
	assert.NotEqual(t, a, b)

	parsed, err := ParsePermissionID(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	assert.NotEqual(t, NewConversationID(), NewConversationID())
}

func TestParseRegionAllowlist(t *testing.T) {
	for _, valid := range []string{"dk", "no"} {
		got, err := ParseRegion(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, got.String())
	}

	for _, invalid := range []string{"", "se", "DK", "dk "} {
		_, err := ParseRegion(invalid)
		require.Error(t, err, "input %q", invalid)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}

func FuzzParsePermissionID(f *testing.F) {
	f.Add("")
	f.Add("7f2c3a04-9d7b-4c46-a6cf-2d5b1e8a9f10")
	f.Add("not-a-uuid")
	f.Fuzz(func(t *testing.T, input string) {
		got, err := ParsePermissionID(input)
		if err == nil && got == "" {
			t.Errorf("ParsePermissionID(%q) returned empty id without error", input)
		}
	})
}
