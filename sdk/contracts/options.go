package contracts

// EmitterOptions defines the configuration options for the MIDI emitter.
type EmitterOptions struct {
	Logger      Logger     // Logger for port lifecycle and send failures.
	LogLevel    LogLevel   // Level applied to Logger when set explicitly.
	ClientName  string     // Client name registered with the platform MIDI service.
	MusicalPort string     // Name of the port carrying notes.
	ControlPort string     // Name of the port carrying transport CCs.
	Driver      MIDIDriver // Overrides the platform driver when non-nil.

	levelSet bool
}

// LevelSet reports whether WithLogLevel was applied.
func (o *EmitterOptions) LevelSet() bool { return o.levelSet }

// Option is a function that modifies EmitterOptions.
type Option func(*EmitterOptions)

// WithLogger sets the logger for the emitter.
func WithLogger(l Logger) Option {
	return func(opts *EmitterOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the emitter.
func WithLogLevel(level LogLevel) Option {
	return func(opts *EmitterOptions) {
		opts.LogLevel = level
		opts.levelSet = true
	}
}

// WithClientName sets the client name announced to the MIDI service.
func WithClientName(name string) Option {
	return func(opts *EmitterOptions) {
		opts.ClientName = name
	}
}

// WithPorts names the musical and control output ports.
func WithPorts(musical, control string) Option {
	return func(opts *EmitterOptions) {
		opts.MusicalPort = musical
		opts.ControlPort = control
	}
}

// WithDriver replaces the platform driver, e.g. with an in-memory one.
func WithDriver(d MIDIDriver) Option {
	return func(opts *EmitterOptions) {
		opts.Driver = d
	}
}
