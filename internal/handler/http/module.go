package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"go.uber.org/fx"
)

// ListenAddr is the HTTP bind address, its own type so fx can resolve it
// unambiguously among every other plain string in the dependency graph.
type ListenAddr string

// NewServer builds the http.Server bound to addr, without starting it — the
// fx.Invoke below owns the listen/serve lifecycle.
func NewServer(addr ListenAddr, handler http.Handler) *http.Server {
	return &http.Server{Addr: string(addr), Handler: handler}
}

var Module = fx.Module("http",
	fx.Provide(NewRouter, NewServer),
	fx.Invoke(func(lc fx.Lifecycle, srv *http.Server, logger *slog.Logger) error {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				ln, err := net.Listen("tcp", srv.Addr)
				if err != nil {
					return err
				}
				go func() {
					if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
						logger.Error("http server error", "err", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})
		return nil
	}),
)
