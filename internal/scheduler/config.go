package scheduler

import (
	"time"
)

// Config controls scheduler intervals and fan-out.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	Concurrency int
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		JobTimeout:  30 * time.Second,
		Concurrency: 4,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaults.Concurrency
	}
	return c
}
