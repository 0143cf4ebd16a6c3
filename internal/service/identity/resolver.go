// Package identity implements the handshake-to-member mapping (spec.md
// §4.3, component C3): given an auth context and the socket's query flags,
// produce a stable Member plus, when a fresh anonymous id was minted, the
// noauth token to hand back to the client.
package identity

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"

	"github.com/webitel/typing-tournament/internal/adapter/noauth"
	"github.com/webitel/typing-tournament/internal/domain/model"
)

// memberNamespace seeds the deterministic derivation of a member id from an
// authenticated user id (uuid.NewSHA1), so the same user always maps to the
// same member id without needing a lookup table.
var memberNamespace = uuid.MustParse("6f9c6f7a-3b0e-4e9e-9d8a-6f2b1a7c5e4d")

// AuthContext carries whatever the transport already resolved from the
// upgrade request's bearer token. An empty UserID means unauthenticated.
type AuthContext struct {
	UserID    string
	Anonymous bool
}

// Request bundles the handshake inputs the resolver rules dispatch on.
type Request struct {
	Auth         AuthContext
	Spectator    bool
	NoauthUnique string
}

// Result is the resolver's output: the member plus, only when a fresh
// anonymous id was minted, the token the client should persist and replay
// on reconnect.
type Result struct {
	Member      model.Member
	NoauthToken string
}

// ProfileSource fetches the public profile for an authenticated user id.
// A miss (ok == false) or an error both degrade to a profile-less member
// rather than failing the handshake — identity resolution must not block
// on a flaky profile store.
type ProfileSource interface {
	Username(ctx context.Context, userID string) (username string, ok bool, err error)
}

// Resolver implements the ordered rules of spec.md §4.3.
type Resolver struct {
	codec    noauth.Codec
	profiles ProfileSource
	cache    *lru.Cache[string, string]
}

// New constructs a Resolver with a bounded profile cache, mirroring the
// teacher's PeerEnricher cache-aside LRU.
func New(codec noauth.Codec, profiles ProfileSource, cacheSize int) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("identity: new profile cache: %w", err)
	}
	return &Resolver{codec: codec, profiles: profiles, cache: cache}, nil
}

// Resolve maps req to a Member, applying the rules in order: spectator flag
// only sets the role; an authenticated context always wins the id
// derivation; otherwise a well-formed noauth token is reused; otherwise a
// fresh id is minted and encoded.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	role := model.RoleParticipant
	if req.Spectator {
		role = model.RoleSpectator
	}

	switch {
	case req.Auth.UserID != "":
		member := model.Member{
			ID:   deriveMemberID(req.Auth.UserID),
			Role: role,
		}
		if !req.Auth.Anonymous {
			if username, ok := r.lookupUsername(ctx, req.Auth.UserID); ok {
				member.Username = username
				member.HasProfile = true
			}
		}
		return Result{Member: member}, nil

	case req.NoauthUnique != "":
		if id, err := r.codec.Decode(req.NoauthUnique); err == nil {
			return Result{Member: model.Member{ID: id, Role: role}}, nil
		}
		// Malformed/tampered token: fall through to minting a fresh id,
		// same as if no token had been supplied at all.
		fallthrough

	default:
		fresh := uuid.New().String()
		token, err := r.codec.Encode(fresh)
		if err != nil {
			return Result{}, fmt.Errorf("identity: encode noauth token: %w", err)
		}
		return Result{
			Member:      model.Member{ID: fresh, Role: role},
			NoauthToken: token,
		}, nil
	}
}

func (r *Resolver) lookupUsername(ctx context.Context, userID string) (string, bool) {
	if cached, ok := r.cache.Get(userID); ok {
		return cached, true
	}
	if r.profiles == nil {
		return "", false
	}
	username, ok, err := r.profiles.Username(ctx, userID)
	if err != nil || !ok {
		return "", false
	}
	r.cache.Add(userID, username)
	return username, true
}

func deriveMemberID(userID string) string {
	return uuid.NewSHA1(memberNamespace, []byte(userID)).String()
}
