package orchestrator

import "time"

// Config tunes step execution.
type Config struct {
	// MaxRetries bounds re-invocations after a transient capability failure.
	// Structural failures are never retried.
	MaxRetries int `yaml:"maxRetries" json:"maxRetries"`

	// RetryDelay is the pause between transient retries.
	RetryDelay time.Duration `yaml:"retryDelay" json:"retryDelay"`

	// MaxAnswerAttempts bounds invalid user answers per collection step before
	// the session escalates to an operator.
	MaxAnswerAttempts int `yaml:"maxAnswerAttempts" json:"maxAnswerAttempts"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        2,
		RetryDelay:        200 * time.Millisecond,
		MaxAnswerAttempts: 3,
	}
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	defaults := DefaultConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaults.RetryDelay
	}
	if c.MaxAnswerAttempts <= 0 {
		c.MaxAnswerAttempts = defaults.MaxAnswerAttempts
	}
}
