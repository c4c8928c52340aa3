package logging

// These constants identify the services that log through their own sub-logger. They are used as the value of the
// "module" key so log output can be filtered per package.
const (
	// DATA_SERVICE identifies the assignment tracking package
	DATA_SERVICE = "data"
	// DECODING_SERVICE identifies the pointer dispatch and byte-level decoding packages
	DECODING_SERVICE = "decoding"
	// STORAGE_SERVICE identifies the storage allocation package
	STORAGE_SERVICE = "storage"
	// STATE_SERVICE identifies the on-chain storage source package
	STATE_SERVICE = "state"
	// DEBUGGER_SERVICE identifies the top-level debugger wiring
	DEBUGGER_SERVICE = "debugger"
)
