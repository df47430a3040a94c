package config

import (
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/posebridge/internal/core/bones"
	"github.com/zeusync/posebridge/internal/core/tick"
	"github.com/zeusync/posebridge/internal/server"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the whole process configuration.
type Config struct {
	Server server.Config `json:"server" yaml:"server"`
	Tick   tick.Config   `json:"tick" yaml:"tick"`
	Bones  bones.Config  `json:"bones" yaml:"bones"`
	Log    LogConfig     `json:"log" yaml:"log"`
	Demo   DemoConfig    `json:"demo" yaml:"demo"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level" env:"POSEBRIDGE_LOG_LEVEL"`
}

// DemoConfig seeds the in-memory host with characters.
type DemoConfig struct {
	Characters []string `json:"characters" yaml:"characters" env:"POSEBRIDGE_DEMO_CHARACTERS" envSeparator:","`
}

func Default() Config {
	return Config{
		Server: server.DefaultServerConfig(),
		Tick:   tick.DefaultConfig(),
		Bones:  bones.DefaultConfig(),
		Log:    LogConfig{Level: "info"},
		Demo:   DemoConfig{Characters: []string{"Alisaie", "Alphinaud"}},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then POSEBRIDGE_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "open config")
		}
		defer f.Close()
		if err := Decode(f, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode overlays YAML from r onto cfg.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "decode config")
	}
	return nil
}

func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Wrapf(ErrInvalidConfig, "server.port %d", c.Server.Port)
	}
	if c.Server.StreamInterval <= 0 {
		return errors.Wrap(ErrInvalidConfig, "server.streamInterval must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.Wrap(ErrInvalidConfig, "server.requestTimeout must be positive")
	}
	if _, err := server.ParseBoneMethod(c.Server.DefaultBoneMethod); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if c.Tick.Rate <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "tick.rate %d", c.Tick.Rate)
	}
	if !(c.Bones.EaseRate > 0 && c.Bones.EaseRate <= 1) {
		return errors.Wrapf(ErrInvalidConfig, "bones.easeRate %v", c.Bones.EaseRate)
	}
	return nil
}
