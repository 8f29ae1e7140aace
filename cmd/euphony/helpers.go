package main

import (
	"log/slog"

	"euphony/internal/config"
	"euphony/internal/logging"
)

func newRunLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return logger, nil
}
