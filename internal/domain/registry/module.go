package registry

import "go.uber.org/fx"

// newRegistry adapts New's variadic Option list to a plain []Option
// parameter so fx can inject configured options from the DI graph; fx does
// not populate variadic parameters on its own.
func newRegistry(factory ManagerFactory, opts []Option) *Registry {
	return New(factory, opts...)
}

var Module = fx.Module("registry",
	fx.Provide(
		NewManagerFactory,
		newRegistry,
		fx.Annotate(
			func(r *Registry) Registrar { return r },
			fx.As(new(Registrar)),
		),
	),
)
