// Package config describes the configuration of a debugger: how it logs, and where it reads account storage the
// trace did not capture.
package config

import (
	"encoding/json"
	"net/url"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DebuggerConfig describes the configuration options used by a debugger.Debugger.
type DebuggerConfig struct {
	// Logging describes the configuration used for logging.
	Logging LoggingConfig `json:"loggingConfig"`

	// StorageSource describes the configuration used to read account storage from a node.
	StorageSource StorageSourceConfig `json:"storageSource"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level"`

	// EnableConsoleLogging describes whether console logging is enabled
	EnableConsoleLogging bool `json:"enableConsoleLogging"`

	// NoColor indicates whether console output is printed without ANSI colors
	NoColor bool `json:"noColor"`

	// LogDirectory describes the directory where structured log _files_ will be outputted. If the string is empty, then
	// no log files are kept
	LogDirectory string `json:"logDirectory"`
}

// StorageSourceConfig describes the node account storage is read from when a trace step does not capture the slot
// being decoded.
type StorageSourceConfig struct {
	// RPCAddress describes the JSON-RPC endpoint of the node. If empty, storage the trace did not capture is read as
	// zero.
	RPCAddress string `json:"rpcAddress"`

	// BlockNumber describes the block height storage is read at.
	BlockNumber uint64 `json:"blockNumber"`

	// PoolSize describes the amount of RPC clients used to read storage concurrently.
	PoolSize uint `json:"poolSize"`

	// PersistentCache describes whether storage read from the node is cached on disk across debugging sessions.
	PersistentCache bool `json:"persistentCache"`

	// CacheDirectory describes the directory the persistent cache is kept in.
	CacheDirectory string `json:"cacheDirectory"`
}

// Enabled reports whether storage is read from a node.
func (s StorageSourceConfig) Enabled() bool {
	return s.RPCAddress != ""
}

// ReadDebuggerConfigFromFile reads a JSON-serialized DebuggerConfig from a provided file path. Options missing from
// the file keep their default value.
// Returns the DebuggerConfig if it succeeds, or an error if one occurs.
func ReadDebuggerConfigFromFile(path string) (*DebuggerConfig, error) {
	// Read our configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Parse the configuration over the defaults
	debuggerConfig := GetDefaultDebuggerConfig()
	err = json.Unmarshal(b, debuggerConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return debuggerConfig, nil
}

// WriteToFile writes the DebuggerConfig to a provided file path in a JSON-serialized format.
// Returns an error if one occurs.
func (d *DebuggerConfig) WriteToFile(path string) error {
	// Serialize the configuration
	b, err := json.MarshalIndent(d, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	// Save it to the provided output path and return the result
	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Validate validates that the DebuggerConfig meets certain requirements.
// Returns an error if one occurs.
func (d *DebuggerConfig) Validate() error {
	// Verify the log level is one zerolog knows
	if d.Logging.Level < zerolog.TraceLevel || d.Logging.Level > zerolog.Disabled {
		return errors.Errorf("unknown log level %d", d.Logging.Level)
	}

	// The remaining options only matter when storage is read from a node
	source := d.StorageSource
	if !source.Enabled() {
		return nil
	}

	endpoint, err := url.Parse(source.RPCAddress)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return errors.Errorf("malformed rpc address %q", source.RPCAddress)
	}
	if source.PoolSize == 0 {
		return errors.Errorf("rpc pool size must be a positive number")
	}
	if source.PersistentCache && source.CacheDirectory == "" {
		return errors.Errorf("a cache directory must be provided when the persistent cache is enabled")
	}
	return nil
}
