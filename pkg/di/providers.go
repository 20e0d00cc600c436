// Package di wires the shared dependencies the command layer resolves at
// run time, so commands stay constructible in tests without a live daemon.
package di

import (
	"github.com/samber/do/v2"

	"github.com/flotilla-dev/flotilla/pkg/runtime"
	"github.com/flotilla-dev/flotilla/pkg/utils/timer"
)

// NewInjector constructs the dependency container used by the root command.
// The runtime client is lazy: it only connects when a command resolves it.
func NewInjector() do.Injector {
	injector := do.New()

	do.Provide(injector, func(do.Injector) (timer.Timer, error) {
		return timer.New(), nil
	})

	do.Provide(injector, func(do.Injector) (runtime.Client, error) {
		return runtime.Connect()
	})

	return injector
}
