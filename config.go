package loanflow

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/loanflow/service/orchestrator"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML documents can use "5s"/"200ms" forms.
type Duration time.Duration

// UnmarshalYAML accepts either a duration string or an integer nanosecond
// count.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch actual := raw.(type) {
	case int:
		*d = Duration(time.Duration(actual))
	case int64:
		*d = Duration(time.Duration(actual))
	case float64:
		*d = Duration(time.Duration(actual))
	case string:
		parsed, err := time.ParseDuration(actual)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", actual, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// Config is a serialisable representation of the engine configuration. It can
// be populated from YAML or JSON; the zero value is useful, all nested fields
// inherit their package defaults.
type Config struct {
	Orchestrator OrchestratorConfig `json:"orchestrator" yaml:"orchestrator"`

	// StepTimeout bounds a single capability invocation; zero disables the
	// per-call deadline.
	StepTimeout Duration `json:"stepTimeout" yaml:"stepTimeout"`

	Store StoreConfig `json:"store" yaml:"store"`

	// PolicyURL optionally points at a YAML document with the lending policy
	// tables; when empty the built-in defaults apply.
	PolicyURL string `json:"policyURL" yaml:"policyURL"`

	// ApplicantsURL optionally points at a YAML document with known applicant
	// profiles keyed by identifier.
	ApplicantsURL string `json:"applicantsURL" yaml:"applicantsURL"`
}

// OrchestratorConfig is the serialisable face of orchestrator.Config.
type OrchestratorConfig struct {
	MaxRetries        int      `json:"maxRetries" yaml:"maxRetries"`
	RetryDelay        Duration `json:"retryDelay" yaml:"retryDelay"`
	MaxAnswerAttempts int      `json:"maxAnswerAttempts" yaml:"maxAnswerAttempts"`
}

func (c *OrchestratorConfig) asConfig() orchestrator.Config {
	return orchestrator.Config{
		MaxRetries:        c.MaxRetries,
		RetryDelay:        time.Duration(c.RetryDelay),
		MaxAnswerAttempts: c.MaxAnswerAttempts,
	}
}

// StoreConfig selects the persistence backend. Empty URLs keep the in-memory
// stores; file-system URLs make sessions and escalations survive restarts.
type StoreConfig struct {
	SessionsURL    string `json:"sessionsURL" yaml:"sessionsURL"`
	EscalationsURL string `json:"escalationsURL" yaml:"escalationsURL"`
}

// DefaultConfig returns a Config with production defaults and in-memory
// stores.
func DefaultConfig() *Config {
	defaults := orchestrator.DefaultConfig()
	return &Config{
		Orchestrator: OrchestratorConfig{
			MaxRetries:        defaults.MaxRetries,
			RetryDelay:        Duration(defaults.RetryDelay),
			MaxAnswerAttempts: defaults.MaxAnswerAttempts,
		},
		StepTimeout: Duration(5 * time.Second),
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Orchestrator.MaxRetries < 0 {
		return fmt.Errorf("orchestrator.maxRetries must not be negative")
	}
	if c.Orchestrator.MaxAnswerAttempts < 0 {
		return fmt.Errorf("orchestrator.maxAnswerAttempts must not be negative")
	}
	if c.StepTimeout < 0 {
		return fmt.Errorf("stepTimeout must not be negative")
	}
	return nil
}

// LoadConfig reads a YAML configuration document from the supplied location.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", URL, err)
	}
	config := DefaultConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
