package model

import "time"

// Privacy controls whether a tournament is discoverable outside its
// creator's circle. The core manager does not enforce privacy — that is
// the out-of-scope HTTP API's concern — but it rides along on
// TournamentData for the REST layer to read.
type Privacy int

const (
	PrivacyPublic Privacy = iota + 1
	PrivacyPrivate
)

// TextOptions parameterizes the challenge-text generator collaborator
// (spec.md §6). Generation is a pure function of these options.
type TextOptions struct {
	Language string
	Words    int
	Seed     string
}

// TournamentData is the tournament's metadata record. ID, Title, CreatedBy,
// ScheduledFor, Description, Privacy and TextOptions are immutable once the
// tournament exists. Text, StartedAt and ScheduledEnd transition from null
// to set together, exactly once, when the manager starts the tournament.
// EndedAt transitions from null to set exactly once, only after StartedAt.
type TournamentData struct {
	ID           string
	Title        string
	CreatedBy    string
	ScheduledFor time.Time
	Description  string
	Privacy      Privacy
	TextOptions  TextOptions

	Text         []byte
	StartedAt    *time.Time
	ScheduledEnd *time.Time
	EndedAt      *time.Time
}

// Clone returns an independent copy safe to hand outside the manager lock.
func (d TournamentData) Clone() TournamentData {
	out := d
	if d.StartedAt != nil {
		t := *d.StartedAt
		out.StartedAt = &t
	}
	if d.ScheduledEnd != nil {
		t := *d.ScheduledEnd
		out.ScheduledEnd = &t
	}
	if d.EndedAt != nil {
		t := *d.EndedAt
		out.EndedAt = &t
	}
	if d.Text != nil {
		out.Text = append([]byte(nil), d.Text...)
	}
	return out
}

// Status is the value returned by handle_check.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusStarted  Status = "started"
	StatusEnded    Status = "ended"
)

func (d TournamentData) Status() Status {
	switch {
	case d.EndedAt != nil:
		return StatusEnded
	case d.StartedAt != nil:
		return StatusStarted
	default:
		return StatusUpcoming
	}
}

// TournamentDataResponse is the full handle_data/join:success wire shape.
type TournamentDataResponse struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	CreatedBy      string  `json:"createdBy"`
	ScheduledFor   int64   `json:"scheduledFor"`
	Description    string  `json:"description"`
	Privacy        Privacy `json:"privacy"`
	Text           *string `json:"text,omitempty"`
	StartedAt      *int64  `json:"startedAt,omitempty"`
	ScheduledEnd   *int64  `json:"scheduledEnd,omitempty"`
	EndedAt        *int64  `json:"endedAt,omitempty"`
	SpectatorCount int     `json:"spectatorCount"`
}

func (d TournamentData) Response(spectatorCount int) TournamentDataResponse {
	r := TournamentDataResponse{
		ID:             d.ID,
		Title:          d.Title,
		CreatedBy:      d.CreatedBy,
		ScheduledFor:   d.ScheduledFor.UnixMilli(),
		Description:    d.Description,
		Privacy:        d.Privacy,
		StartedAt:      millisPtr(d.StartedAt),
		ScheduledEnd:   millisPtr(d.ScheduledEnd),
		EndedAt:        millisPtr(d.EndedAt),
		SpectatorCount: spectatorCount,
	}
	if d.Text != nil {
		s := string(d.Text)
		r.Text = &s
	}
	return r
}

// TournamentDataUpdate is the update:data partial payload: only the mutable
// text/startedAt/scheduledEnd/endedAt fields of TournamentDataResponse.
type TournamentDataUpdate struct {
	Text         *string `json:"text,omitempty"`
	StartedAt    *int64  `json:"startedAt,omitempty"`
	ScheduledEnd *int64  `json:"scheduledEnd,omitempty"`
	EndedAt      *int64  `json:"endedAt,omitempty"`
}
