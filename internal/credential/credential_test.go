package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialComplete(t *testing.T) {
	t.Parallel()

	assert.True(t, Credential{Email: "a@b.com", Password: "x"}.Complete())
	assert.True(t, Credential{Username: "user", Password: "x"}.Complete())
	assert.False(t, Credential{Email: "a@b.com"}.Complete())
	assert.False(t, Credential{Password: "x"}.Complete())
}

func TestCredentialEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, Credential{}.Empty())
	assert.False(t, Credential{PIN: "0000"}.Empty())
	assert.False(t, Credential{Extra: map[string]string{"region": "eu"}}.Empty())
}

func TestPayloadRoundTripKeepsExtraKeys(t *testing.T) {
	t.Parallel()

	in := Credential{
		Email:    "a@b.com",
		Password: "x",
		Notes:    "profile 3",
		Extra:    map[string]string{"profile_pin": "4321", "region": "eu"},
	}
	b, err := in.MarshalPayload()
	require.NoError(t, err)

	out, err := UnmarshalPayload(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
