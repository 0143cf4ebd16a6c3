package typing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/webitel/typing-tournament/internal/domain/model"
	"github.com/webitel/typing-tournament/internal/domain/typing"
)

func stepAll(t *testing.T, state model.ParticipantState, challenge []byte, inputs []byte, start time.Time, gap time.Duration) model.ParticipantState {
	t.Helper()
	now := start
	for _, in := range inputs {
		state = typing.Step(state, in, challenge, now)
		now = now.Add(gap)
	}
	return state
}

func TestStep_ExactReproduction(t *testing.T) {
	challenge := []byte("abc")
	start := time.Unix(0, 0)
	state := stepAll(t, model.ParticipantState{}, challenge, []byte("abc"), start, 100*time.Millisecond)

	require.Equal(t, 3, state.CurrentPosition)
	require.Equal(t, 3, state.CorrectPosition)
	require.Equal(t, 3, state.TotalKeystrokes)
	require.Equal(t, 100.0, state.CurrentAccuracy)
	require.True(t, typing.Finished(state, challenge))
}

func TestStep_BackspaceRecovery(t *testing.T) {
	challenge := []byte("cat")
	start := time.Unix(0, 0)
	inputs := []byte{'c', 'x', typing.Backspace, 'a', 't'}
	state := stepAll(t, model.ParticipantState{}, challenge, inputs, start, 100*time.Millisecond)

	require.Equal(t, 3, state.CurrentPosition)
	require.Equal(t, 3, state.CorrectPosition)
	require.Equal(t, 5, state.TotalKeystrokes)
	require.Equal(t, 60.0, state.CurrentAccuracy)
}

func TestStep_RoundTripBackspaceToZero(t *testing.T) {
	challenge := []byte("hello")
	start := time.Unix(0, 0)
	var inputs []byte
	inputs = append(inputs, challenge...)
	for range challenge {
		inputs = append(inputs, typing.Backspace)
	}
	state := stepAll(t, model.ParticipantState{}, challenge, inputs, start, 10*time.Millisecond)

	require.Equal(t, 0, state.CurrentPosition)
	require.Equal(t, 0, state.CorrectPosition)
	require.Equal(t, 2*len(challenge), state.TotalKeystrokes)
}

func TestStep_IgnoresInputPastEnd(t *testing.T) {
	challenge := []byte("ab")
	start := time.Unix(0, 0)
	state := stepAll(t, model.ParticipantState{}, challenge, []byte("ab"), start, 10*time.Millisecond)
	before := state

	state = typing.Step(state, 'z', challenge, start.Add(time.Second))
	require.Equal(t, before, state)
}

func TestStep_MistypeDoesNotAdvanceCorrectPosition(t *testing.T) {
	challenge := []byte("abc")
	start := time.Unix(0, 0)
	state := typing.Step(model.ParticipantState{}, 'x', challenge, start)

	require.Equal(t, 1, state.CurrentPosition)
	require.Equal(t, 0, state.CorrectPosition)
	require.Equal(t, 1, state.TotalKeystrokes)

	// A correct keystroke following a mistake must not retroactively
	// advance correct_position past the first wrong byte.
	state = typing.Step(state, 'b', challenge, start.Add(100*time.Millisecond))
	require.Equal(t, 2, state.CurrentPosition)
	require.Equal(t, 0, state.CorrectPosition)
}

func TestStep_BackspaceAtZeroIsNoop(t *testing.T) {
	challenge := []byte("abc")
	start := time.Unix(0, 0)
	state := typing.Step(model.ParticipantState{}, typing.Backspace, challenge, start)

	require.Equal(t, 0, state.CurrentPosition)
	require.Equal(t, 0, state.CorrectPosition)
	require.Equal(t, 1, state.TotalKeystrokes, "backspace still counts toward total keystrokes")
}

func TestStep_FirstKeystrokeSetsStartedAt(t *testing.T) {
	challenge := []byte("abc")
	start := time.Unix(100, 0)
	require.Nil(t, model.ParticipantState{}.StartedAt)

	state := typing.Step(model.ParticipantState{}, 'a', challenge, start)
	require.NotNil(t, state.StartedAt)
	require.True(t, state.StartedAt.Equal(start))

	later := start.Add(time.Second)
	state = typing.Step(state, 'b', challenge, later)
	require.True(t, state.StartedAt.Equal(start), "started_at must not move on subsequent keystrokes")
}

func TestStep_InvariantsHoldAcrossRandomInputs(t *testing.T) {
	challenge := []byte("the quick brown fox")
	inputs := []byte("thxe quick\b\b\bck brnown fox")
	start := time.Unix(0, 0)

	state := model.ParticipantState{}
	now := start
	for _, in := range inputs {
		next := typing.Step(state, in, challenge, now)

		require.GreaterOrEqual(t, next.CorrectPosition, 0)
		require.LessOrEqual(t, next.CorrectPosition, next.CurrentPosition)
		require.LessOrEqual(t, next.CurrentPosition, len(challenge))
		require.GreaterOrEqual(t, next.TotalKeystrokes, next.CurrentPosition)

		state = next
		now = now.Add(50 * time.Millisecond)
	}
}
