package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	DBPath        string
	WordcloudRoot string
	StopwordsPath string
	FontPath      string

	// Server settings
	ServerHost string
	ServerPort int

	// Extraction settings
	WorkerCount    int
	Interval       time.Duration
	FetchLimit     int
	MaxFeatures    int
	KeywordsPerDoc int

	// Word-cloud settings
	WordcloudMaxWords int

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration with hardcoded defaults.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		DBPath:            DefaultDBPath,
		WordcloudRoot:     DefaultWordcloudRoot,
		StopwordsPath:     DefaultStopwordsPath,
		FontPath:          DefaultFontPath,
		ServerHost:        DefaultServerHost,
		ServerPort:        DefaultServerPort,
		WorkerCount:       DefaultWorkerCount,
		Interval:          time.Duration(DefaultInterval) * time.Minute,
		FetchLimit:        DefaultFetchLimit,
		MaxFeatures:       DefaultMaxFeatures,
		KeywordsPerDoc:    DefaultKeywordsPerDoc,
		WordcloudMaxWords: DefaultWordcloudMaxWords,
		LogLevel:          logLevel,
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
