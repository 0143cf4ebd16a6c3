package challenge

import (
	"go.uber.org/fx"

	"github.com/webitel/typing-tournament/internal/domain/tournament"
)

var Module = fx.Module("challenge",
	fx.Provide(
		NewWordListGenerator,
		fx.Annotate(
			func(g *WordListGenerator) tournament.TextGenerator { return g },
			fx.As(new(tournament.TextGenerator)),
		),
	),
)
