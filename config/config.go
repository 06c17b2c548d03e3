package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
	"github.com/pyralisxc/Medieval-Sim-sub001/market"
	"github.com/pyralisxc/Medieval-Sim-sub001/storage"
)

const configFileName = "marketplace.toml"

// Config ties together all package configuration types. It is loaded and
// validated once at startup; the running system only ever sees the
// resulting immutable snapshot.
type Config struct {
	Logging logging.Config
	Market  market.Config
	Storage storage.Config
}

// NewDefaultConfig returns defaults for every package, with stores rooted
// under the given directory path.
func NewDefaultConfig(defaultStoreDirPath string) Config {
	return Config{
		Logging: logging.NewDefaultConfig(),
		Market:  market.NewDefaultConfig(),
		Storage: storage.NewDefaultConfig(filepath.Join(defaultStoreDirPath, "registrystore")),
	}
}

// Read loads the TOML config file from dir, layered over defaults, and
// validates the marketplace parameters. A missing file yields pure
// defaults.
func Read(dir string) (*Config, error) {
	cfg := NewDefaultConfig(dir)
	path := filepath.Join(dir, configFileName)
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, validate(&cfg)
		}
		return nil, errors.Wrapf(err, "error reading config file %s", path)
	}
	if _, err := toml.Decode(string(buf), &cfg); err != nil {
		return nil, errors.Wrapf(err, "error parsing config file %s", path)
	}
	return &cfg, validate(&cfg)
}

// Write stores the config as TOML in dir, e.g. to seed a fresh install.
func Write(dir string, cfg Config) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "error creating config directory")
	}
	f, err := os.Create(filepath.Join(dir, configFileName))
	if err != nil {
		return errors.Wrap(err, "error creating config file")
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func validate(cfg *Config) error {
	if _, err := cfg.Market.Params.Snapshot(); err != nil {
		return errors.Wrap(err, "invalid marketplace parameters")
	}
	return nil
}
