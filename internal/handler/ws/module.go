package ws

import (
	"go.uber.org/fx"

	"github.com/webitel/typing-tournament/internal/domain/tournament"
)

var Module = fx.Module("ws",
	fx.Provide(
		NewRooms,
		fx.Annotate(
			func(r *Rooms) tournament.Broadcaster { return r },
			fx.As(new(tournament.Broadcaster)),
		),
		NewHandler,
	),
)
