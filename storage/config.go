package storage

import (
	"github.com/pyralisxc/Medieval-Sim-sub001/config/encoding"
	"github.com/pyralisxc/Medieval-Sim-sub001/logging"
)

// Config contains the configurable items for this package.
type Config struct {
	Level encoding.LogLevel
	// Dir is the on-disk location of the registry store.
	Dir string
	// SyncWrites makes every write hit disk before returning. Slower,
	// but a crash can never lose an acknowledged save.
	SyncWrites bool
}

// NewDefaultConfig creates an instance of the package-specific
// configuration, with stores rooted under the given directory path.
func NewDefaultConfig(defaultStoreDirPath string) Config {
	return Config{
		Level:      encoding.LogLevel{Level: logging.InfoLevel},
		Dir:        defaultStoreDirPath,
		SyncWrites: true,
	}
}
