// Package debugger wires a debugging session together from its configuration: logging, the storage source, the
// decoders, the storage allocator and the assignment tracker.
package debugger

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/crytic/medusa-debugger/chain/state"
	"github.com/crytic/medusa-debugger/compilation"
	"github.com/crytic/medusa-debugger/config"
	"github.com/crytic/medusa-debugger/data"
	"github.com/crytic/medusa-debugger/decoding/elementary"
	"github.com/crytic/medusa-debugger/logging"
	"github.com/crytic/medusa-debugger/logging/colors"
	"github.com/crytic/medusa-debugger/storage"
	"github.com/crytic/medusa-debugger/utils"
	"github.com/crytic/medusa-debugger/version"
	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
)

// Debugger reconstructs the source-level state of a program along an execution trace.
type Debugger struct {
	// config describes the configuration the Debugger was created with.
	config config.DebuggerConfig

	// backend reads account storage the trace did not capture.
	backend state.StorageBackend

	// tracker records the assignments of every trace step.
	tracker *data.Tracker

	// logFile holds the structured log file, if one is kept.
	logFile *os.File

	// logger describes the Debugger's log object that can be used to log important events
	logger *logging.Logger
}

// New creates a Debugger for the provided program. The global logger is configured from the provided config.
// Returns the Debugger, or an error if the config is invalid or the storage source could not be set up.
func New(ctx context.Context, debuggerConfig config.DebuggerConfig, program *compilation.Program) (*Debugger, error) {
	if program == nil {
		return nil, errors.New("cannot debug without a program")
	}
	if err := debuggerConfig.Validate(); err != nil {
		return nil, err
	}

	d := &Debugger{config: debuggerConfig}
	if err := d.setupLogging(); err != nil {
		return nil, err
	}
	d.logger = logging.GlobalLogger.NewSubLogger("module", logging.DEBUGGER_SERVICE)

	backend, err := newStorageBackend(ctx, debuggerConfig.StorageSource)
	if err != nil {
		d.closeLogFile()
		return nil, err
	}
	d.backend = backend

	session := data.NewSession(program)
	d.tracker = data.NewTracker(session, elementary.NewDispatcher(), storage.NewAllocator(), backend)
	d.logger.Info("Created debugging session ", colors.Bold, session.ID.String(), colors.Reset, " (medusa-debugger ", version.GetInfo().Short(), ", solc ", program.CompilerVersion.String(), ")")
	return d, nil
}

// setupLogging replaces the global logger with one configured from the Debugger's config. Structured logs are written
// to a new file in the log directory, if one is provided.
func (d *Debugger) setupLogging() error {
	loggingConfig := d.config.Logging
	if loggingConfig.NoColor {
		colors.DisableColor()
	}
	logging.GlobalLogger = logging.NewLogger(loggingConfig.Level, loggingConfig.EnableConsoleLogging)
	if loggingConfig.LogDirectory == "" {
		return nil
	}

	// Filename will be the "log-current_unix_timestamp.log"
	filename := "log-" + strconv.FormatInt(time.Now().Unix(), 10) + ".log"
	file, err := utils.CreateFile(loggingConfig.LogDirectory, filename)
	if err != nil {
		return err
	}
	d.logFile = file
	logging.GlobalLogger.AddWriter(file, logging.STRUCTURED)
	return nil
}

// newStorageBackend creates the source of account storage described by the config.
func newStorageBackend(ctx context.Context, source config.StorageSourceConfig) (state.StorageBackend, error) {
	if !source.Enabled() {
		return state.EmptyBackend{}, nil
	}
	if source.PersistentCache {
		return state.NewRPCBackend(ctx, source.RPCAddress, source.BlockNumber, source.PoolSize, source.CacheDirectory)
	}
	return state.NewRPCBackendNoPersistence(source.RPCAddress, source.BlockNumber, source.PoolSize)
}

// Session returns the debugging session, to read assignments from or subscribe to events of.
func (d *Debugger) Session() *data.Session {
	return d.tracker.Session()
}

// Run processes every step received from steps until the channel is closed.
// Returns an error if the context is cancelled or the session hit a fatal error.
func (d *Debugger) Run(ctx context.Context, steps <-chan *data.TraceStep) error {
	err := d.tracker.Run(ctx, steps)
	if err != nil {
		return err
	}
	d.logger.Debug("Processed trace, ", len(d.Session().Assignments()), " assignments recorded")
	return nil
}

// Advance processes a single step.
// Returns an error only if it is fatal to the session.
func (d *Debugger) Advance(ctx context.Context, step *data.TraceStep) error {
	return d.tracker.Advance(ctx, step)
}

// LearnAddress records the real address of a contract instance so far identified by a placeholder address.
func (d *Debugger) LearnAddress(dummyAddress common.Address, address common.Address) error {
	return d.tracker.LearnAddress(dummyAddress, address)
}

// Reset clears the state recorded by the session.
func (d *Debugger) Reset() error {
	return d.tracker.Reset()
}

// Close releases the storage source and the log file.
// Returns an error if the storage source could not be closed.
func (d *Debugger) Close() error {
	err := d.backend.Close()
	d.closeLogFile()
	return err
}

// closeLogFile detaches and closes the structured log file, if one is kept.
func (d *Debugger) closeLogFile() {
	if d.logFile == nil {
		return
	}
	logging.GlobalLogger.RemoveWriter(d.logFile)
	_ = d.logFile.Close()
	d.logFile = nil
}
