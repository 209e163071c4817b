package midi

import (
	"github.com/leandrodaf/airdaw/internal/logger"
	"github.com/leandrodaf/airdaw/sdk/contracts"
)

// Default port and client names.
const (
	DefaultClientName  = "airdaw"
	DefaultMusicalPort = "AirDAW Musical"
	DefaultControlPort = "AirDAW Control"
)

// applyDefaultOptions fills in anything the caller left unset.
func applyDefaultOptions(opts ...contracts.Option) contracts.EmitterOptions {
	options := &contracts.EmitterOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.ClientName == "" {
		options.ClientName = DefaultClientName
	}
	if options.MusicalPort == "" {
		options.MusicalPort = DefaultMusicalPort
	}
	if options.ControlPort == "" {
		options.ControlPort = DefaultControlPort
	}
	if options.LevelSet() {
		options.Logger.SetLevel(options.LogLevel)
	}
	return *options
}
