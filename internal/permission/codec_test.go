package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "gridgate/pkg/domain"
)

func TestCodecRoundTripPreservesConcreteType(t *testing.T) {
	original := Rejected{
		PermissionID: id.NewPermissionID(),
		Reason:       ReasonGranularityNotDeliverable,
		Message:      "PT15M not offered",
	}

	payload, err := EncodeEvent(original)
	require.NoError(t, err)

	decoded, err := DecodeEvent(KindRejected, payload)
	require.NoError(t, err)

	rejected, ok := decoded.(Rejected)
	require.True(t, ok, "decoded event must keep its concrete type")
	assert.Equal(t, original, rejected)
}

func TestDecodeUnknownKindFails(t *testing.T) {
	_, err := DecodeEvent("permission_request_teleported", []byte(`{}`))
	require.Error(t, err)
}
