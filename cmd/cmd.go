package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/webitel/typing-tournament/config"
)

const (
	ServiceName      = "typing-tournament"
	ServiceNamespace = "webitel"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Microservice for Webitel platform",
		Commands: []*cli.Command{
			serverCmd(),
			tuiCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the tournament orchestrator",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, v, err := config.Load(c.String("config_file"))
			if err != nil {
				return err
			}
			// Tournament tunables hot-reload for tournaments registered
			// after the edit (config.TournamentConfigSource); broker URI,
			// listen address, and any tournament already in flight only
			// pick up a change on restart.
			app := NewApp(cfg, v)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")
			return app.Stop(context.Background())
		},
	}
}
