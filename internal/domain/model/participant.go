package model

import "time"

// ParticipantState is the authoritative per-participant progress record.
//
// Invariants (spec.md §3): 0 <= CorrectPosition <= CurrentPosition <=
// len(text); TotalKeystrokes >= CurrentPosition; EndedAt >= StartedAt when
// both set; once EndedAt is set it never changes again for this participant.
type ParticipantState struct {
	MemberID        string
	CurrentPosition int
	CorrectPosition int
	TotalKeystrokes int
	CurrentSpeed    float64
	CurrentAccuracy float64
	StartedAt       *time.Time
	EndedAt         *time.Time
}

// Clone returns an independent copy safe to hand outside the manager lock.
func (s ParticipantState) Clone() ParticipantState {
	out := s
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	return out
}

// ParticipantData is the JSON wire shape of a participant snapshot.
type ParticipantData struct {
	MemberID        string   `json:"memberId"`
	CurrentPosition int      `json:"currentPosition"`
	CorrectPosition int      `json:"correctPosition"`
	TotalKeystrokes int      `json:"totalKeystrokes"`
	CurrentSpeed    float64  `json:"currentSpeed"`
	CurrentAccuracy float64  `json:"currentAccuracy"`
	StartedAt       *int64   `json:"startedAt,omitempty"`
	EndedAt         *int64   `json:"endedAt,omitempty"`
}

func (s ParticipantState) Data() ParticipantData {
	return ParticipantData{
		MemberID:        s.MemberID,
		CurrentPosition: s.CurrentPosition,
		CorrectPosition: s.CorrectPosition,
		TotalKeystrokes: s.TotalKeystrokes,
		CurrentSpeed:    s.CurrentSpeed,
		CurrentAccuracy: s.CurrentAccuracy,
		StartedAt:       millisPtr(s.StartedAt),
		EndedAt:         millisPtr(s.EndedAt),
	}
}

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// ParticipantUpdate is a partial ParticipantData used by the self and room
// debouncers: only fields that changed since the last flush are set.
type ParticipantUpdate struct {
	CurrentPosition *int     `json:"currentPosition,omitempty"`
	CorrectPosition *int     `json:"correctPosition,omitempty"`
	TotalKeystrokes *int     `json:"totalKeystrokes,omitempty"`
	CurrentSpeed    *float64 `json:"currentSpeed,omitempty"`
	CurrentAccuracy *float64 `json:"currentAccuracy,omitempty"`
	StartedAt       *int64   `json:"startedAt,omitempty"`
	EndedAt         *int64   `json:"endedAt,omitempty"`

	// Rid is carried out-of-band of the JSON payload shown to update:all
	// consumers; update:me embeds it as a sibling of "updates".
	Rid string `json:"-"`
}

// DiffParticipant returns the fields that changed between before and after.
func DiffParticipant(before, after ParticipantState) ParticipantUpdate {
	var u ParticipantUpdate
	if before.CurrentPosition != after.CurrentPosition {
		v := after.CurrentPosition
		u.CurrentPosition = &v
	}
	if before.CorrectPosition != after.CorrectPosition {
		v := after.CorrectPosition
		u.CorrectPosition = &v
	}
	if before.TotalKeystrokes != after.TotalKeystrokes {
		v := after.TotalKeystrokes
		u.TotalKeystrokes = &v
	}
	if before.CurrentSpeed != after.CurrentSpeed {
		v := after.CurrentSpeed
		u.CurrentSpeed = &v
	}
	if before.CurrentAccuracy != after.CurrentAccuracy {
		v := after.CurrentAccuracy
		u.CurrentAccuracy = &v
	}
	if before.StartedAt == nil && after.StartedAt != nil {
		u.StartedAt = millisPtr(after.StartedAt)
	}
	if before.EndedAt == nil && after.EndedAt != nil {
		u.EndedAt = millisPtr(after.EndedAt)
	}
	return u
}

// MergeParticipantUpdate overlays src on top of dst: any field set in src
// overwrites dst (latest value wins). Rid is always taken from src, since
// callers merge in push order and the latest rid is authoritative.
func MergeParticipantUpdate(dst, src ParticipantUpdate) ParticipantUpdate {
	if src.CurrentPosition != nil {
		dst.CurrentPosition = src.CurrentPosition
	}
	if src.CorrectPosition != nil {
		dst.CorrectPosition = src.CorrectPosition
	}
	if src.TotalKeystrokes != nil {
		dst.TotalKeystrokes = src.TotalKeystrokes
	}
	if src.CurrentSpeed != nil {
		dst.CurrentSpeed = src.CurrentSpeed
	}
	if src.CurrentAccuracy != nil {
		dst.CurrentAccuracy = src.CurrentAccuracy
	}
	if src.StartedAt != nil {
		dst.StartedAt = src.StartedAt
	}
	if src.EndedAt != nil {
		dst.EndedAt = src.EndedAt
	}
	dst.Rid = src.Rid
	return dst
}

// MergeParticipantUpdates coalesces a push-ordered batch into one update
// whose fields reflect the latest value observed for each field, and whose
// Rid is the last rid seen in the batch.
func MergeParticipantUpdates(batch []ParticipantUpdate) ParticipantUpdate {
	var merged ParticipantUpdate
	for _, u := range batch {
		merged = MergeParticipantUpdate(merged, u)
	}
	return merged
}

// RoomDelta pairs a member's update with its owner, the unit pushed onto
// the room-wide aggregate debouncer.
type RoomDelta struct {
	MemberID string
	Update   ParticipantUpdate
}

// MemberUpdate is the wire shape of one entry in update:all's updates array.
type MemberUpdate struct {
	MemberID string            `json:"memberId"`
	Updates  ParticipantUpdate `json:"updates"`
}

// MergeRoomDeltas coalesces a push-ordered batch of per-member deltas,
// latest value wins per field per member, preserving first-seen member
// order for deterministic output.
func MergeRoomDeltas(batch []RoomDelta) []MemberUpdate {
	order := make([]string, 0, len(batch))
	merged := make(map[string]ParticipantUpdate, len(batch))
	for _, d := range batch {
		if _, ok := merged[d.MemberID]; !ok {
			order = append(order, d.MemberID)
		}
		merged[d.MemberID] = MergeParticipantUpdate(merged[d.MemberID], d.Update)
	}
	out := make([]MemberUpdate, 0, len(order))
	for _, id := range order {
		out = append(out, MemberUpdate{MemberID: id, Updates: merged[id]})
	}
	return out
}
