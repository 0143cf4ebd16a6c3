package noauth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/webitel/typing-tournament/internal/adapter/noauth"
)

func TestUUIDCodec_RoundTrip(t *testing.T) {
	c := noauth.UUIDCodec{}
	id := uuid.New().String()

	token, err := c.Encode(id)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := c.Decode(token)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestUUIDCodec_EncodeRejectsNonUUID(t *testing.T) {
	c := noauth.UUIDCodec{}
	_, err := c.Encode("not-a-uuid")
	require.Error(t, err)
}

func TestUUIDCodec_DecodeRejectsMalformedToken(t *testing.T) {
	c := noauth.UUIDCodec{}
	_, err := c.Decode("!!!not-base32!!!")
	require.Error(t, err)
}

func TestUUIDCodec_DecodeRejectsWrongLength(t *testing.T) {
	c := noauth.UUIDCodec{}
	short, err := noauth.UUIDCodec{}.Encode(uuid.New().String())
	require.NoError(t, err)
	_, err = c.Decode(short[:len(short)-4])
	require.Error(t, err)
}
