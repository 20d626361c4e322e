package relay

import "context"

// Plugin extends a Relay with a component that shares its lifetime.
// Plugins are initialized in registration order when the relay starts and
// shut down in reverse order when it stops.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// StatusReader is the read-only view of a running relay given to plugins.
type StatusReader interface {
	// State returns the lifecycle state name.
	State() string

	// Entries returns a snapshot of the retransmission queue.
	Entries() []Entry
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	CaptureDir string
	Logger     Logger
	Status     StatusReader
}
