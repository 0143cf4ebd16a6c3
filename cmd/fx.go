package cmd

import (
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/webitel/typing-tournament/config"
	"github.com/webitel/typing-tournament/internal/adapter/challenge"
	"github.com/webitel/typing-tournament/internal/adapter/persistence"
	"github.com/webitel/typing-tournament/internal/adapter/pubsub"
	"github.com/webitel/typing-tournament/internal/clock"
	"github.com/webitel/typing-tournament/internal/domain/registry"
	"github.com/webitel/typing-tournament/internal/domain/tournament"
	"github.com/webitel/typing-tournament/internal/handler/amqp"
	httphandler "github.com/webitel/typing-tournament/internal/handler/http"
	"github.com/webitel/typing-tournament/internal/handler/ws"
	"github.com/webitel/typing-tournament/internal/service/identity"
)

// NewApp wires every module this service is built from: the config-derived
// tunables, the domain layer (registry/tournament), the adapters (text
// generation, persistence, pubsub), and the two handler surfaces (ws and
// the administrative amqp command listener). v is the *viper.Viper Load
// decoded cfg from; NewApp arms it for hot-reload of the tournament
// tunables via config.TournamentConfigSource.
func NewApp(cfg *config.Config, v *viper.Viper) *fx.App {
	cfgSrc := config.NewTournamentConfigSource(cfg, v)

	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			func() clock.Clock { return clock.Real{} },
			func() func() tournament.Config { return cfgSrc.Get },
			func(c *config.Config) pubsub.BrokerURI { return c.BrokerURI() },
			func(c *config.Config) httphandler.ListenAddr { return c.ListenAddr() },
			func(c *config.Config) []registry.Option { return c.RegistryOptions() },
		),

		identity.Module,
		challenge.Module,
		persistence.Module,
		pubsub.Module,
		registry.Module,
		ws.Module,
		amqp.Module,
		httphandler.Module,
	)
}
