// Package config handles loading and validating the cmrctl configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/cmr-client/pkg/cmr"
)

// Config is the top-level cmrctl configuration.
type Config struct {
	CMR     CMRConfig     `yaml:"cmr"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// CMRConfig defines which CMR deployment to talk to and how. A record_limit
// of -1 removes the cap on search results.
type CMRConfig struct {
	Environment string          `yaml:"environment"  validate:"oneof=OPS SIT UAT"`
	Host        string          `yaml:"host"`
	Provider    string          `yaml:"provider"`
	ClientID    string          `yaml:"client_id"    validate:"required"`
	PageSize    int             `yaml:"page_size"    validate:"min=1,max=2000"`
	RecordLimit int             `yaml:"record_limit" validate:"min=-1"`
	Timeout     time.Duration   `yaml:"timeout"      validate:"gt=0"`
	Auth        AuthConfig      `yaml:"auth"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig defines CMR credentials. Secrets normally come in through
// ${VAR} substitution rather than being written into the file.
type AuthConfig struct {
	Scheme   string `yaml:"scheme"   validate:"oneof=legacy bearer"`
	Username string `yaml:"username"`
	Password string `yaml:"password" validate:"required_with=Username"`
	Token    string `yaml:"token"    validate:"required_if=Scheme bearer"`
}

// RateLimitConfig defines client-side throttling of CMR calls.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second" validate:"gte=0"`
	Burst     int     `yaml:"burst"      validate:"gte=0"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"  validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// MetricsConfig defines the Prometheus endpoint served while cmrctl runs.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"    validate:"required_if=Enabled true"`
	Path    string `yaml:"path"    validate:"startswith=/"`
}

// TracingConfig defines OTLP trace export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"     validate:"required_if=Enabled true"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name" validate:"required"`
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Finalize fills defaults and normalizes values, then validates. It is safe
// to call again after overlaying flags onto a loaded config.
func (c *Config) Finalize() error {
	applyDefaults(c)
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	applyCMRDefaults(&cfg.CMR)
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyTracingDefaults(&cfg.Tracing)
}

func applyCMRDefaults(c *CMRConfig) {
	c.Environment = strings.ToUpper(strings.TrimSpace(c.Environment))
	switch c.Environment {
	case "":
		c.Environment = string(cmr.EnvUAT)
	case "PROD":
		c.Environment = string(cmr.EnvOPS)
	}
	if c.ClientID == "" {
		c.ClientID = "cmrctl"
	}
	if c.PageSize == 0 {
		c.PageSize = 50
	}
	if c.RecordLimit == 0 {
		c.RecordLimit = 100
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	applyAuthDefaults(&c.Auth)
	applyRateLimitDefaults(&c.RateLimit)
}

func applyAuthDefaults(a *AuthConfig) {
	// Accept the same aliases as the client, stored in canonical form.
	if scheme, err := cmr.ParseAuthScheme(a.Scheme); err == nil {
		a.Scheme = string(scheme)
	}
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.PerSecond == 0 {
		r.PerSecond = 5.0
	}
	if r.Burst == 0 {
		r.Burst = 10
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	l.Level = strings.ToLower(l.Level)
	if l.Level == "" {
		l.Level = "info"
	}
	l.Format = strings.ToLower(l.Format)
	if l.Format == "" {
		l.Format = "text"
	}
}

func applyMetricsDefaults(m *MetricsConfig) {
	if m.Addr == "" {
		m.Addr = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

func applyTracingDefaults(t *TracingConfig) {
	if t.Endpoint == "" {
		t.Endpoint = "localhost:4317"
	}
	if t.ServiceName == "" {
		t.ServiceName = "cmrctl"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1.0
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field and returns all problems joined.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fieldError(fe))
	}
	return errors.Join(errs...)
}

func fieldError(fe validator.FieldError) error {
	// Namespace is "Config.cmr.page_size"; drop the root type name.
	_, path, _ := strings.Cut(fe.Namespace(), ".")

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", path)
	case "required_if":
		return fmt.Errorf("%s is required when %s", path, strings.ToLower(strings.Replace(fe.Param(), " ", " is ", 1)))
	case "required_with":
		return fmt.Errorf("%s is required when %s is set", path, strings.ToLower(fe.Param()))
	case "oneof":
		return fmt.Errorf(
			"%s must be one of: %s (got %q)",
			path, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value(),
		)
	case "min", "gte":
		return fmt.Errorf("%s must be at least %s (got %v)", path, fe.Param(), fe.Value())
	case "max", "lte":
		return fmt.Errorf("%s must be at most %s (got %v)", path, fe.Param(), fe.Value())
	case "gt":
		return fmt.Errorf("%s must be greater than %s (got %v)", path, fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%s failed %s validation (got %v)", path, fe.Tag(), fe.Value())
	}
}

// ClientConfig maps the cmr section onto the client's configuration.
func (c *Config) ClientConfig() (cmr.Config, error) {
	env, err := cmr.ParseEnvironment(c.CMR.Environment)
	if err != nil {
		return cmr.Config{}, err
	}
	scheme, err := cmr.ParseAuthScheme(c.CMR.Auth.Scheme)
	if err != nil {
		return cmr.Config{}, err
	}

	return cmr.Config{
		Environment: env,
		Host:        c.CMR.Host,
		Provider:    c.CMR.Provider,
		ClientID:    c.CMR.ClientID,
		PageSize:    c.CMR.PageSize,
		RecordLimit: c.CMR.RecordLimit,
		Timeout:     c.CMR.Timeout,
		Auth: cmr.AuthConfig{
			Scheme:   scheme,
			Username: c.CMR.Auth.Username,
			Password: c.CMR.Auth.Password,
			Token:    c.CMR.Auth.Token,
		},
		RateLimit: cmr.RateLimitConfig{
			PerSecond: c.CMR.RateLimit.PerSecond,
			Burst:     c.CMR.RateLimit.Burst,
		},
	}, nil
}
