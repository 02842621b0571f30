package config

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Apply configures logger level and formatter.
func (c LogConfig) Apply(logger *log.Logger) error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(level)

	switch c.Format {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unsupported log format %q", c.Format)
	}

	return nil
}
