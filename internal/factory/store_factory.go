package factory

import (
	"github.com/rs/zerolog"

	"pledgetally/internal/config"
	"pledgetally/internal/store"
)

// NewStore opens the sqlite store, or returns nil when store.enabled is
// false.
func NewStore(cfg *config.Config, logger zerolog.Logger) (*store.SQLiteStore, error) {
	if !cfg.GetBool("store.enabled") {
		logger.Debug().Msg("store disabled")
		return nil, nil
	}
	path := cfg.GetString("store.path")
	st, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("path", path).Msg("store opened")
	return st, nil
}
