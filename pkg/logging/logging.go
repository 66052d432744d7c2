package logging

import (
	"fmt"
	"os"

	"github.com/bitmark-inc/logger"
)

type Config struct {
	Directory string
	File      string
	Size      int
	Count     int
	Console   bool
	Level     string
	// Levels overrides the level of individual tags, e.g. "registry": "debug".
	Levels map[string]string
}

func DefaultConfig() Config {
	return Config{
		Directory: "log",
		File:      "klunkaz.log",
		Size:      1048576,
		Count:     10,
		Console:   true,
		Level:     "info",
	}
}

// Setup starts the rotating file logger. Call Close on shutdown.
func Setup(cfg Config) error {
	if cfg.Directory == "" || cfg.File == "" {
		return fmt.Errorf("logging: directory and file are required")
	}
	if err := os.MkdirAll(cfg.Directory, 0o700); err != nil {
		return fmt.Errorf("logging: create %s: %w", cfg.Directory, err)
	}

	levels := map[string]string{logger.DefaultTag: cfg.Level}
	if cfg.Level == "" {
		levels[logger.DefaultTag] = "info"
	}
	for tag, level := range cfg.Levels {
		levels[tag] = level
	}

	return logger.Initialise(logger.Configuration{
		Directory: cfg.Directory,
		File:      cfg.File,
		Size:      cfg.Size,
		Count:     cfg.Count,
		Console:   cfg.Console,
		Levels:    levels,
	})
}

func Close() {
	logger.Finalise()
}

// New returns the log channel for one component.
func New(tag string) *logger.L {
	return logger.New(tag)
}
