package scheduler

import (
	"errors"
	"time"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Config struct {
	// RunInterval is the fixed cadence between sweep invocations.
	RunInterval time.Duration
	// JobTimeout bounds one sweep run.
	JobTimeout time.Duration
	// LockTTL is the lease duration; it must exceed JobTimeout so the
	// lease outlives a slow run.
	LockTTL time.Duration
	LockKey string
}

func (c Config) withDefaults() Config {
	if c.RunInterval <= 0 {
		c.RunInterval = 15 * time.Minute
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 2 * time.Minute
	}
	if c.LockTTL <= c.JobTimeout {
		c.LockTTL = c.JobTimeout + time.Minute
	}
	if c.LockKey == "" {
		c.LockKey = "casalist:sweep:expirations"
	}
	return c
}
