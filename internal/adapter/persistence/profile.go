package persistence

import "context"

// NoopProfileSource implements identity.ProfileSource against nothing: the
// profile store itself is the out-of-scope relational persistence layer
// (spec.md §1), so this service never looks usernames up on its own — every
// authenticated member resolves profile-less until fronted by that layer.
type NoopProfileSource struct{}

func (NoopProfileSource) Username(context.Context, string) (string, bool, error) {
	return "", false, nil
}
