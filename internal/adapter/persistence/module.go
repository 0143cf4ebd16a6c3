package persistence

import (
	"go.uber.org/fx"

	"github.com/webitel/typing-tournament/internal/domain/registry"
	"github.com/webitel/typing-tournament/internal/service/identity"
)

var Module = fx.Module("persistence",
	fx.Provide(
		NewMemoryStore,
		fx.Annotate(
			func(s *MemoryStore) Store { return s },
			fx.As(new(Store)),
		),
		NewResilientLoader,
		func(l *ResilientLoader) registry.Loader { return l.Load },
		fx.Annotate(
			func() identity.ProfileSource { return NoopProfileSource{} },
			fx.As(new(identity.ProfileSource)),
		),
	),
)
