// Package typing implements the per-keystroke state transition (spec.md
// §4.4, component C4): a pure function over a byte-indexed challenge text.
// It holds no state and performs no I/O, so it needs no teacher-supplied
// grounding beyond the plain standard library.
package typing

import (
	"math"
	"time"

	"github.com/webitel/typing-tournament/internal/domain/model"
)

// Backspace is the keystroke byte that triggers the backspace transition.
// Client transports (spec.md §6) translate their own backspace key event
// into this byte before calling Step.
const Backspace byte = 0x08

// Step applies one keystroke to state and returns the resulting state.
// challenge is the tournament's revealed text, indexed by byte position.
// now is used both to seed StartedAt on the first keystroke and to
// recompute CurrentSpeed/CurrentAccuracy.
//
// Step never sets EndedAt — reaching the end of the text is the tournament
// manager's job (spec.md §4.4), since only it knows whether to also stop
// timers and broadcast the transition.
func Step(state model.ParticipantState, input byte, challenge []byte, now time.Time) model.ParticipantState {
	switch {
	case input == Backspace:
		if state.CurrentPosition > 0 {
			state.CurrentPosition--
		}
		if state.CorrectPosition > state.CurrentPosition {
			state.CorrectPosition = state.CurrentPosition
		}
		state.TotalKeystrokes++

	case state.CurrentPosition >= len(challenge):
		// Participant is already at text end; ignore further forward input.
		return state

	default:
		expected := challenge[state.CurrentPosition]
		prevPos := state.CurrentPosition
		state.CurrentPosition++
		state.TotalKeystrokes++
		if input == expected && state.CorrectPosition == prevPos {
			state.CorrectPosition++
		}
	}

	if state.StartedAt == nil {
		t := now
		state.StartedAt = &t
	}
	recomputeMetrics(&state, now)
	return state
}

func recomputeMetrics(state *model.ParticipantState, now time.Time) {
	elapsed := time.Millisecond
	if state.StartedAt != nil {
		if e := now.Sub(*state.StartedAt); e > elapsed {
			elapsed = e
		}
	}
	minutes := elapsed.Minutes()
	state.CurrentSpeed = math.Round((float64(state.CorrectPosition) / 5) / minutes)

	if state.TotalKeystrokes > 0 {
		state.CurrentAccuracy = math.Round(100 * float64(state.CorrectPosition) / float64(state.TotalKeystrokes))
	} else {
		state.CurrentAccuracy = 100
	}
}

// Finished reports whether state has reached the end of challenge — the
// manager's cue to set EndedAt.
func Finished(state model.ParticipantState, challenge []byte) bool {
	return len(challenge) > 0 && state.CorrectPosition == len(challenge)
}
