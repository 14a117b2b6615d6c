package procstream

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix prefixes the environment variables that override a
// [RunnerConfig], e.g. PROCSTREAM_MAX_PROCESSES.
const EnvPrefix = "PROCSTREAM"

// RunnerConfig is the file and environment form of the [Runner] options.
type RunnerConfig struct {
	ReadBufferSize int           `mapstructure:"read_buffer_size"`
	EventBuffer    int           `mapstructure:"event_buffer"`
	GracePeriod    time.Duration `mapstructure:"grace_period"`
	MaxProcesses   int           `mapstructure:"max_processes"`
}

// DefaultRunnerConfig returns the configuration NewRunner uses without options.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		ReadBufferSize: DefaultReadBufferSize,
		EventBuffer:    DefaultEventBuffer,
		GracePeriod:    DefaultGracePeriod,
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultRunnerConfig()
	v.SetDefault("read_buffer_size", d.ReadBufferSize)
	v.SetDefault("event_buffer", d.EventBuffer)
	v.SetDefault("grace_period", d.GracePeriod)
	v.SetDefault("max_processes", d.MaxProcesses)
}

// LoadConfig reads a RunnerConfig from the file at path (any format viper
// understands) and applies PROCSTREAM_* environment overrides on top.
// An empty path or a missing file yields the defaults plus the environment.
func LoadConfig(path string) (RunnerConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return RunnerConfig{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg RunnerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return RunnerConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return RunnerConfig{}, err
	}
	return cfg, nil
}

// Validate reports the first out-of-range field.
func (c RunnerConfig) Validate() error {
	switch {
	case c.ReadBufferSize <= 0:
		return fmt.Errorf("read_buffer_size must be positive, got %d", c.ReadBufferSize)
	case c.EventBuffer < 0:
		return fmt.Errorf("event_buffer must be non-negative, got %d", c.EventBuffer)
	case c.GracePeriod < 0:
		return fmt.Errorf("grace_period must be non-negative, got %s", c.GracePeriod)
	case c.MaxProcesses < 0:
		return fmt.Errorf("max_processes must be non-negative, got %d", c.MaxProcesses)
	}
	return nil
}

// Options converts c to Runner options. c must be valid.
func (c RunnerConfig) Options() []Option {
	return []Option{
		WithReadBufferSize(c.ReadBufferSize),
		WithEventBuffer(c.EventBuffer),
		WithGracePeriod(c.GracePeriod),
		WithMaxProcesses(c.MaxProcesses),
	}
}

// NewRunnerFromConfig validates cfg and creates a Runner from it.
func NewRunnerFromConfig(cfg RunnerConfig, logger *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid runner config: %w", err)
	}
	return NewRunner(append(cfg.Options(), WithLogger(logger))...), nil
}
