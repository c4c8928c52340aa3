package config

import "github.com/rs/zerolog"

// GetDefaultDebuggerConfig obtains a default configuration for a debugger. Storage is not read from any node by
// default.
func GetDefaultDebuggerConfig() *DebuggerConfig {
	return &DebuggerConfig{
		Logging: LoggingConfig{
			Level:                zerolog.InfoLevel,
			EnableConsoleLogging: true,
			NoColor:              false,
			LogDirectory:         "",
		},
		StorageSource: StorageSourceConfig{
			RPCAddress:      "",
			BlockNumber:     0,
			PoolSize:        20,
			PersistentCache: false,
			CacheDirectory:  "cache",
		},
	}
}
