package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/webitel/typing-tournament/internal/adapter/noauth"
	"github.com/webitel/typing-tournament/internal/domain/model"
	"github.com/webitel/typing-tournament/internal/service/identity"
)

type fakeProfiles struct {
	usernames map[string]string
	err       error
}

func (f *fakeProfiles) Username(_ context.Context, userID string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	u, ok := f.usernames[userID]
	return u, ok, nil
}

func newResolver(t *testing.T, profiles identity.ProfileSource) *identity.Resolver {
	t.Helper()
	r, err := identity.New(noauth.UUIDCodec{}, profiles, 0)
	require.NoError(t, err)
	return r
}

func TestResolve_Spectator(t *testing.T) {
	r := newResolver(t, nil)
	res, err := r.Resolve(context.Background(), identity.Request{Spectator: true})
	require.NoError(t, err)
	require.Equal(t, model.RoleSpectator, res.Member.Role)
	require.NotEmpty(t, res.Member.ID)
}

func TestResolve_AuthenticatedDerivesDeterministicID(t *testing.T) {
	profiles := &fakeProfiles{usernames: map[string]string{"user-1": "alice"}}
	r := newResolver(t, profiles)

	res1, err := r.Resolve(context.Background(), identity.Request{Auth: identity.AuthContext{UserID: "user-1"}})
	require.NoError(t, err)
	res2, err := r.Resolve(context.Background(), identity.Request{Auth: identity.AuthContext{UserID: "user-1"}})
	require.NoError(t, err)

	require.Equal(t, res1.Member.ID, res2.Member.ID)
	require.True(t, res1.Member.HasProfile)
	require.Equal(t, "alice", res1.Member.Username)
	require.Empty(t, res1.NoauthToken)
}

func TestResolve_AuthenticatedAnonymousHidesProfile(t *testing.T) {
	profiles := &fakeProfiles{usernames: map[string]string{"user-1": "alice"}}
	r := newResolver(t, profiles)

	res, err := r.Resolve(context.Background(), identity.Request{
		Auth: identity.AuthContext{UserID: "user-1", Anonymous: true},
	})
	require.NoError(t, err)
	require.False(t, res.Member.HasProfile)
	require.Empty(t, res.Member.Username)
}

func TestResolve_DifferentUsersGetDifferentIDs(t *testing.T) {
	r := newResolver(t, &fakeProfiles{})
	res1, err := r.Resolve(context.Background(), identity.Request{Auth: identity.AuthContext{UserID: "user-1"}})
	require.NoError(t, err)
	res2, err := r.Resolve(context.Background(), identity.Request{Auth: identity.AuthContext{UserID: "user-2"}})
	require.NoError(t, err)
	require.NotEqual(t, res1.Member.ID, res2.Member.ID)
}

func TestResolve_ProfileLookupErrorDegradesGracefully(t *testing.T) {
	profiles := &fakeProfiles{err: errors.New("boom")}
	r := newResolver(t, profiles)

	res, err := r.Resolve(context.Background(), identity.Request{Auth: identity.AuthContext{UserID: "user-1"}})
	require.NoError(t, err)
	require.False(t, res.Member.HasProfile)
}

func TestResolve_NoauthUniqueReused(t *testing.T) {
	r := newResolver(t, nil)
	id := uuid.New().String()
	token, err := noauth.UUIDCodec{}.Encode(id)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), identity.Request{NoauthUnique: token})
	require.NoError(t, err)
	require.Equal(t, id, res.Member.ID)
	require.Empty(t, res.NoauthToken, "reusing an existing token must not mint a new one")
	require.False(t, res.Member.HasProfile)
}

func TestResolve_MalformedNoauthUniqueFallsBackToFreshMint(t *testing.T) {
	r := newResolver(t, nil)
	res, err := r.Resolve(context.Background(), identity.Request{NoauthUnique: "not-a-valid-token!!"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Member.ID)
	require.NotEmpty(t, res.NoauthToken)
}

func TestResolve_NoAuthNoTokenMintsFreshIDWithToken(t *testing.T) {
	r := newResolver(t, nil)
	res, err := r.Resolve(context.Background(), identity.Request{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Member.ID)
	require.NotEmpty(t, res.NoauthToken)

	decoded, err := noauth.UUIDCodec{}.Decode(res.NoauthToken)
	require.NoError(t, err)
	require.Equal(t, res.Member.ID, decoded)
}

func TestResolve_ProfileCacheAvoidsRepeatedLookups(t *testing.T) {
	calls := 0
	profiles := profileFunc(func(_ context.Context, userID string) (string, bool, error) {
		calls++
		return "alice", true, nil
	})
	r := newResolver(t, profiles)

	_, err := r.Resolve(context.Background(), identity.Request{Auth: identity.AuthContext{UserID: "user-1"}})
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), identity.Request{Auth: identity.AuthContext{UserID: "user-1"}})
	require.NoError(t, err)

	require.Equal(t, 1, calls)
}

type profileFunc func(ctx context.Context, userID string) (string, bool, error)

func (f profileFunc) Username(ctx context.Context, userID string) (string, bool, error) {
	return f(ctx, userID)
}
