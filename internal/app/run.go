package app

import (
	"context"
	"os"

	"go.uber.org/fx"

	"github.com/looplj/shellstate/internal/log"
)

// Run starts the application, runs the demo once and stops.
func Run(opts ...fx.Option) {
	app := fx.New(
		append([]fx.Option{
			Module,
			fx.Provide(NewDemo),
			fx.Invoke(func(lc fx.Lifecycle, shutdowner fx.Shutdowner, demo *Demo) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						go func() {
							views, err := demo.Run(context.Background())
							if err != nil {
								log.Error(context.Background(), "demo run error", log.Cause(err))
								_ = shutdowner.Shutdown(fx.ExitCode(1))

								return
							}

							if err := Print(os.Stdout, views); err != nil {
								log.Error(context.Background(), "demo print error", log.Cause(err))
							}

							_ = shutdowner.Shutdown()
						}()

						return nil
					},
				})
			}),
		}, opts...)...,
	)

	app.Run()
}
