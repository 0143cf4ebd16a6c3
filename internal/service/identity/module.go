package identity

import (
	"go.uber.org/fx"

	"github.com/webitel/typing-tournament/internal/adapter/noauth"
)

const defaultProfileCacheSize = 4096

func newResolver(codec noauth.Codec, profiles ProfileSource) (*Resolver, error) {
	return New(codec, profiles, defaultProfileCacheSize)
}

var Module = fx.Module("identity",
	fx.Provide(
		fx.Annotate(
			func() noauth.Codec { return noauth.UUIDCodec{} },
			fx.As(new(noauth.Codec)),
		),
		newResolver,
	),
)
