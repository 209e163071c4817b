package main

import (
	"fmt"
	"time"

	"github.com/leandrodaf/airdaw/internal/logger"
	"github.com/leandrodaf/airdaw/sdk/contracts"
	"github.com/leandrodaf/airdaw/sdk/midi"
)

func main() {
	log, err := logger.New(logger.Options{Level: contracts.InfoLevel, Format: "console"})
	if err != nil {
		fmt.Println("failed to build logger:", err)
		return
	}
	defer log.Sync()

	devices, err := midi.ListPorts(contracts.WithLogger(log))
	if err != nil {
		log.Error("Failed to list MIDI ports", log.Field().Error("error", err))
		return
	}
	fmt.Println("Available MIDI ports:", contracts.PortNames(devices))

	emitter, err := midi.NewEmitter(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithPorts(midi.DefaultMusicalPort, midi.DefaultControlPort),
	)
	if err != nil {
		log.Error("Failed to open MIDI ports", log.Field().Error("error", err))
		return
	}
	defer emitter.Close()

	// Toggle record, play a C major arpeggio on the lead channel, toggle again.
	if err := emitter.Emit(contracts.ControlChangeCommand(1, 20, 127)); err != nil {
		log.Error("Failed to send record", log.Field().Error("error", err))
		return
	}
	for _, note := range []uint8{60, 64, 67, 72} {
		if err := emitter.Emit(contracts.NoteOnCommand(1, note, 100)); err != nil {
			log.Error("Failed to send note", log.Field().Error("error", err))
			return
		}
		time.Sleep(250 * time.Millisecond)
		_ = emitter.Emit(contracts.NoteOffCommand(1, note))
	}
	_ = emitter.Emit(contracts.ControlChangeCommand(1, 20, 127))
	fmt.Println("Done.")
}
