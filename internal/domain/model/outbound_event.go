package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lithammer/shortuuid/v3"
)

// OutboundEventer is the contract for events this service publishes to the
// message bus, generalized from the teacher's single message-delivery
// receipt shape to the one terminal event this service ever exports.
type OutboundEventer interface {
	GetRoutingKey() string
	ToJSON() ([]byte, error)
}

// ResultExport is the one-shot summary published when a tournament ends
// (SPEC_FULL.md §4 "Result export event"): final standings (one entry per
// participant, so the participant count is len(Standings)) and duration,
// for the out-of-scope persistence layer to durably
// store. This is deliberately not continuous state persistence — spec.md's
// "no durable persistence of in-flight state" Non-goal stays intact because
// nothing is published until the tournament has already reached Ended.
type ResultExport struct {
	ID             string             `json:"id"`
	TournamentID   string             `json:"tournamentId"`
	StartedAt      int64              `json:"startedAt"`
	EndedAt        int64              `json:"endedAt"`
	DurationMillis int64              `json:"durationMillis"`
	Standings      []ParticipantData  `json:"standings"`
	Timestamp      int64              `json:"timestamp"`
}

// NewResultExport builds a ResultExport from a tournament's final state.
// standings must already be sorted (best performance first); the caller
// owns ranking, this type only carries the result.
func NewResultExport(tournamentID string, startedAt, endedAt time.Time, standings []ParticipantData) *ResultExport {
	return &ResultExport{
		ID:             shortuuid.New(),
		TournamentID:   tournamentID,
		StartedAt:      startedAt.UnixMilli(),
		EndedAt:        endedAt.UnixMilli(),
		DurationMillis: endedAt.Sub(startedAt).Milliseconds(),
		Standings:      standings,
		Timestamp:      time.Now().UnixMilli(),
	}
}

func (e *ResultExport) GetRoutingKey() string {
	return fmt.Sprintf("tournament.result.%s", e.TournamentID)
}

func (e *ResultExport) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
