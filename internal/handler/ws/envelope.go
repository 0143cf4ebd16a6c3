package ws

import "encoding/json"

// inboundEnvelope is the generic shape of every client->server message
// (spec.md §4.7): an event name plus an event-specific payload, decoded
// lazily so unknown/malformed payloads for one event don't block routing.
type inboundEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// outboundEnvelope is the generic shape of every server->client message,
// adapted from the teacher's wsmarshaller.WSEvent wrapper (event name +
// payload), dropping its id/sent_at fields since spec.md §6 does not name
// them.
type outboundEnvelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// typePayload is the `type { character, rid }` inbound event (spec.md §4.7).
type typePayload struct {
	Character string `json:"character"`
	Rid       string `json:"rid"`
}

// bytes returns Character's raw bytes for feeding through the typing
// engine one at a time: spec.md §4.1/§4.7 steps the engine byte by byte,
// and a client-sent character may itself be multi-byte UTF-8.
func (p typePayload) bytes() []byte {
	return []byte(p.Character)
}

// checkSuccessPayload is check:success's `{ status }` payload.
type checkSuccessPayload struct {
	Status string `json:"status"`
}

// joinSuccessPayload is join:success's payload (spec.md §6).
type joinSuccessPayload struct {
	Data         any    `json:"data"`
	Member       any    `json:"member"`
	Participants any    `json:"participants"`
	Noauth       string `json:"noauth,omitempty"`
}

type participantJoinedPayload struct {
	Participant any `json:"participant"`
}

type participantLeftPayload struct {
	MemberID string `json:"memberId"`
}

type updateMePayload struct {
	Updates any    `json:"updates"`
	Rid     string `json:"rid"`
}

type updateAllPayload struct {
	Updates any `json:"updates"`
}

type updateDataPayload struct {
	Updates any `json:"updates"`
}

type leaveSuccessPayload struct {
	Message string `json:"message"`
}
