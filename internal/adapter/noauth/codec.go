// Package noauth implements the reversible, unsigned token codec the
// identity resolver (internal/service/identity) uses to let an anonymous
// client reconnect as the same member without authenticating (spec.md
// §4.3/§9). No signing or MAC is applied — see DESIGN.md's Open Question
// entry for why that is an explicit, documented decision rather than an
// oversight.
package noauth

import (
	"encoding/base32"
	"fmt"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Codec turns a member id into an opaque token and back. It is a pure
// bijection: Decode(Encode(id)) == id for every well-formed id.
type Codec interface {
	Encode(memberID string) (string, error)
	Decode(token string) (string, error)
}

// UUIDCodec encodes a UUID member id as unpadded base32. It rejects
// anything that doesn't parse as a UUID, so a malformed or tampered token
// is never silently accepted as a fresh identity.
type UUIDCodec struct{}

func (UUIDCodec) Encode(memberID string) (string, error) {
	id, err := uuid.Parse(memberID)
	if err != nil {
		return "", fmt.Errorf("noauth: encode: %w", err)
	}
	return encoding.EncodeToString(id[:]), nil
}

func (UUIDCodec) Decode(token string) (string, error) {
	raw, err := encoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("noauth: decode: %w", err)
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return "", fmt.Errorf("noauth: decode: %w", err)
	}
	return id.String(), nil
}
