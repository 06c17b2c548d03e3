package matching

import (
	"github.com/pyralisxc/Medieval-Sim-sub001/config/encoding"
	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
)

const namedLogger = "matching"

// Config contains the configurable items for this package.
type Config struct {
	Level encoding.LogLevel
}

// NewDefaultConfig creates an instance of the package-specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
	}
}
