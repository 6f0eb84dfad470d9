package di

import (
	"github.com/rs/zerolog"
	"go.uber.org/dig"

	"pledgetally/internal/config"
	"pledgetally/internal/factory"
)

// BuildContainer creates and configures a dependency injection container
// around an already loaded configuration and logger.
func BuildContainer(cfg *config.Config, logger zerolog.Logger) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func() zerolog.Logger { return logger }); err != nil {
		return nil, err
	}

	// Register store; nil when disabled
	if err := container.Provide(factory.NewStore); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return nil, err
	}

	return container, nil
}
