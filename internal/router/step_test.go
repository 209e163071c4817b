package router

import (
	"testing"
	"time"

	"github.com/leandrodaf/airdaw/internal/hit"
	"github.com/leandrodaf/airdaw/internal/mapping"
	"github.com/leandrodaf/airdaw/internal/receiver"
	"github.com/leandrodaf/airdaw/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

var epoch = time.Unix(1_700_000_000, 0)

func ms(n int) time.Time { return epoch.Add(time.Duration(n) * time.Millisecond) }

func program(p uint8) *uint8 { return &p }

func drumNote(n uint8) *uint8 { return &n }

func testConfig() Config {
	return Config{
		Mapping: mapping.NoteMapping{
			DistanceLow: 15, DistanceHigh: 60, NoteLow: 48, NoteHigh: 72, CloserIsHigher: true,
		},
		LeadChannel:       1,
		LeadVelocity:      100,
		PercussionChannel: 10,
		DrumNote:          36,
		DrumVelocity:      110,
		ControlChannel:    1,
		RecordCC:          20,
		InsertTrackCC:     21,
		BPM:               120,
		CountInBeats:      4,
		WatchdogTimeout:   500 * time.Millisecond,
		Instruments: map[string]Instrument{
			"piano": {Kind: Lead, Program: program(0)},
			"drums": {Kind: Drum, Note: drumNote(38)},
		},
	}
}

func playing() contracts.GestureSnapshot {
	return contracts.GestureSnapshot{Instrument: "piano", Mode: contracts.ModePlay, NoteActive: true}
}

func fresh(now time.Time, cm float64) receiver.Snapshot {
	return receiver.Snapshot{Distance: cm, HasDistance: true, LastSeen: now}
}

// harness drives Step and keeps the state between ticks.
type harness struct {
	t   *testing.T
	cfg Config
	st  State
}

func newHarness(t *testing.T) *harness {
	return &harness{t: t, cfg: testConfig()}
}

func (h *harness) tick(in Input) Output {
	h.t.Helper()
	var out Output
	h.st, out = Step(h.st, in, h.cfg)
	return out
}

// settle runs one tick so the first instrument selection is out of the way.
func (h *harness) settle(now time.Time, g contracts.GestureSnapshot, sensor receiver.Snapshot) Output {
	return h.tick(Input{Now: now, Gesture: g, Sensor: sensor})
}

func musical(out Output) []contracts.MidiCommand {
	var cmds []contracts.MidiCommand
	for _, c := range out.Commands {
		if c.Port == contracts.MusicalPort {
			cmds = append(cmds, c)
		}
	}
	return cmds
}

func eventsOf(out Output, kind EventKind) int {
	n := 0
	for _, e := range out.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestStep_EndToEndDistanceSequence(t *testing.T) {
	h := newHarness(t)
	g := playing()
	g.Instrument = "violin"

	var got [][]contracts.MidiCommand
	for i, cm := range []float64{50, 50, 45, 45} {
		now := ms(i * 10)
		got = append(got, h.tick(Input{Now: now, Gesture: g, Sensor: fresh(now, cm)}).Commands)
	}

	assert.Equal(t, []contracts.MidiCommand{contracts.NoteOnCommand(1, 53, 100)}, got[0])
	assert.Empty(t, got[1])
	assert.Equal(t, []contracts.MidiCommand{
		contracts.NoteOffCommand(1, 53),
		contracts.NoteOnCommand(1, 56, 100),
	}, got[2])
	assert.Empty(t, got[3])
}

func TestStep_StableDistanceEmitsOneNoteOn(t *testing.T) {
	h := newHarness(t)

	noteOns := 0
	for i := 0; i < 50; i++ {
		now := ms(i * 10)
		for _, c := range h.tick(Input{Now: now, Gesture: playing(), Sensor: fresh(now, 30)}).Commands {
			if c.Kind == contracts.NoteOn {
				noteOns++
			}
		}
	}
	assert.Equal(t, 1, noteOns)
	assert.True(t, h.st.Holding)
	assert.EqualValues(t, 64, h.st.HeldNote)
}

func TestStep_NoteOffAlwaysPrecedesNextNoteOn(t *testing.T) {
	h := newHarness(t)

	var all []contracts.MidiCommand
	for i, cm := range []float64{20, 25, 30, 35, 40, 35, 30} {
		now := ms(i * 10)
		all = append(all, musical(h.tick(Input{Now: now, Gesture: playing(), Sensor: fresh(now, cm)}))...)
	}

	held := -1
	for _, c := range all {
		switch c.Kind {
		case contracts.NoteOn:
			require.Equal(t, -1, held, "NoteOn while note %d still held", held)
			held = int(c.Data1)
		case contracts.NoteOff:
			require.Equal(t, held, int(c.Data1))
			held = -1
		}
	}
}

func TestStep_WatchdogTripsOnce(t *testing.T) {
	h := newHarness(t)
	h.settle(ms(0), playing(), fresh(ms(0), 40))
	require.True(t, h.st.Holding)

	silent := receiver.Snapshot{Distance: 40, HasDistance: true, LastSeen: ms(0)}
	var noteOffs, trips int
	for n := 10; n <= 3000; n += 10 {
		out := h.tick(Input{Now: ms(n), Gesture: playing(), Sensor: silent})
		for _, c := range out.Commands {
			if c.Kind == contracts.NoteOff {
				noteOffs++
				assert.Equal(t, 500, n, "NoteOff exactly at the timeout")
			}
			assert.NotEqual(t, contracts.NoteOn, c.Kind, "no music while tripped")
		}
		trips += eventsOf(out, EventWatchdogTripped)
	}

	assert.Equal(t, 1, noteOffs)
	assert.Equal(t, 1, trips)
	assert.True(t, h.st.WatchdogTripped)
	assert.False(t, h.st.Holding)
}

func TestStep_WatchdogWithoutHeldNoteEmitsNothing(t *testing.T) {
	h := newHarness(t)
	idle := contracts.GestureSnapshot{Instrument: "piano", Mode: contracts.ModeIdle}
	h.settle(ms(0), idle, receiver.Snapshot{LastSeen: ms(0)})

	out := h.tick(Input{Now: ms(600), Gesture: idle, Sensor: receiver.Snapshot{LastSeen: ms(0)}})
	assert.Empty(t, out.Commands)
	assert.Equal(t, 1, eventsOf(out, EventWatchdogTripped))
}

func TestStep_WatchdogRecoversOnFreshData(t *testing.T) {
	h := newHarness(t)
	h.settle(ms(0), playing(), fresh(ms(0), 40))
	h.tick(Input{Now: ms(600), Gesture: playing(), Sensor: receiver.Snapshot{Distance: 40, HasDistance: true, LastSeen: ms(0)}})
	require.True(t, h.st.WatchdogTripped)

	out := h.tick(Input{Now: ms(610), Gesture: playing(), Sensor: fresh(ms(610), 40)})
	assert.Equal(t, 1, eventsOf(out, EventWatchdogRecovered))
	assert.False(t, h.st.WatchdogTripped)
	assert.Equal(t, []contracts.MidiCommand{contracts.NoteOnCommand(1, 59, 100)}, out.Commands)
}

func TestStep_HitAloneRefreshesWatchdog(t *testing.T) {
	h := newHarness(t)
	h.settle(ms(0), playing(), fresh(ms(0), 40))

	sensor := receiver.Snapshot{
		Distance: 40, HasDistance: true, LastSeen: ms(450),
		Hits: []hit.Event{{Velocity: 80, At: ms(450)}},
	}
	out := h.tick(Input{Now: ms(900), Gesture: playing(), Sensor: sensor})
	assert.False(t, h.st.WatchdogTripped)
	assert.Equal(t, []contracts.MidiCommand{
		contracts.NoteOnCommand(10, 36, 80),
		contracts.NoteOffCommand(10, 36),
	}, out.Commands)
}

func TestStep_CountInMute(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 2*time.Second, h.cfg.CountIn())

	h.settle(ms(0), playing(), fresh(ms(0), 40))
	require.True(t, h.st.Holding)

	rec := playing()
	rec.Recording = true
	out := h.tick(Input{Now: ms(1000), Gesture: rec, Sensor: fresh(ms(1000), 20)})
	assert.Equal(t, []contracts.MidiCommand{
		contracts.ControlChangeCommand(1, 20, 127),
		contracts.NoteOffCommand(1, 59),
	}, out.Commands)
	assert.Equal(t, ms(3000), h.st.MuteUntil)

	for n := 1010; n < 3000; n += 10 {
		sensor := fresh(ms(n), float64(15+n%40))
		sensor.Hits = []hit.Event{{Velocity: 100, At: ms(n)}}
		out := h.tick(Input{Now: ms(n), Gesture: rec, Sensor: sensor})
		require.Empty(t, out.Commands, "muted at %dms", n)
	}

	out = h.tick(Input{Now: ms(3000), Gesture: rec, Sensor: fresh(ms(3000), 20)})
	assert.Equal(t, []contracts.MidiCommand{contracts.NoteOnCommand(1, 69, 100)}, out.Commands)
}

func TestStep_RecordingFallingEdgeDuringMute(t *testing.T) {
	h := newHarness(t)
	h.settle(ms(0), playing(), fresh(ms(0), 40))

	rec := playing()
	rec.Recording = true
	h.tick(Input{Now: ms(100), Gesture: rec, Sensor: fresh(ms(100), 40)})

	out := h.tick(Input{Now: ms(500), Gesture: playing(), Sensor: fresh(ms(500), 40)})
	assert.Equal(t, []contracts.MidiCommand{contracts.ControlChangeCommand(1, 20, 127)}, out.Commands,
		"control change fires on the falling edge even while muted")
	assert.Equal(t, 1, eventsOf(out, EventRecordingStopped))
	assert.False(t, h.st.RecordingPrev)
}

func TestStep_InsertTrackOnRecordStart(t *testing.T) {
	h := newHarness(t)
	h.cfg.InsertOnRecordStart = true
	h.settle(ms(0), playing(), fresh(ms(0), 40))

	rec := playing()
	rec.Recording = true
	out := h.tick(Input{Now: ms(10), Gesture: rec, Sensor: fresh(ms(10), 40)})
	assert.Equal(t, []contracts.MidiCommand{
		contracts.ControlChangeCommand(1, 20, 127),
		contracts.ControlChangeCommand(1, 21, 127),
		contracts.NoteOffCommand(1, 59),
	}, out.Commands)
}

func TestStep_PercussionOneShots(t *testing.T) {
	h := newHarness(t)
	h.settle(ms(0), playing(), fresh(ms(0), 40))

	sensor := fresh(ms(10), 40)
	sensor.Hits = []hit.Event{{Velocity: 90, At: ms(5)}, {Velocity: 200, At: ms(8)}}
	out := h.tick(Input{Now: ms(10), Gesture: playing(), Sensor: sensor})

	assert.Equal(t, []contracts.MidiCommand{
		contracts.NoteOnCommand(10, 36, 90),
		contracts.NoteOffCommand(10, 36),
		contracts.NoteOnCommand(10, 36, 127),
		contracts.NoteOffCommand(10, 36),
	}, out.Commands)
}

func TestStep_NoteActiveFalseReleasesAndRetriggers(t *testing.T) {
	h := newHarness(t)
	h.settle(ms(0), playing(), fresh(ms(0), 40))

	off := playing()
	off.NoteActive = false
	out := h.tick(Input{Now: ms(10), Gesture: off, Sensor: fresh(ms(10), 40)})
	assert.Equal(t, []contracts.MidiCommand{contracts.NoteOffCommand(1, 59)}, out.Commands)
	assert.False(t, h.st.Holding)

	out = h.tick(Input{Now: ms(20), Gesture: playing(), Sensor: fresh(ms(20), 40)})
	assert.Equal(t, []contracts.MidiCommand{contracts.NoteOnCommand(1, 59, 100)}, out.Commands,
		"same quantized note re-triggers after release")
}

func TestStep_IdleModeReleases(t *testing.T) {
	h := newHarness(t)
	h.settle(ms(0), playing(), fresh(ms(0), 40))

	idle := playing()
	idle.Mode = contracts.ModeIdle
	out := h.tick(Input{Now: ms(10), Gesture: idle, Sensor: fresh(ms(10), 20)})
	assert.Equal(t, []contracts.MidiCommand{contracts.NoteOffCommand(1, 59)}, out.Commands)
	assert.Equal(t, 1, eventsOf(out, EventModeChanged))
}

func TestStep_NoDistanceNoNote(t *testing.T) {
	h := newHarness(t)
	out := h.tick(Input{Now: ms(0), Gesture: playing(), Sensor: receiver.Snapshot{LastSeen: ms(0)}})
	assert.Equal(t, []contracts.MidiCommand{contracts.ProgramChangeCommand(1, 0)}, out.Commands)
	assert.False(t, h.st.Holding)
}

func TestStep_InstrumentChangeSendsProgramAndReleases(t *testing.T) {
	h := newHarness(t)
	h.cfg.Instruments["strings"] = Instrument{Kind: Lead, Program: program(48)}

	out := h.settle(ms(0), playing(), fresh(ms(0), 40))
	assert.Equal(t, []contracts.MidiCommand{
		contracts.ProgramChangeCommand(1, 0),
		contracts.NoteOnCommand(1, 59, 100),
	}, out.Commands)

	g := playing()
	g.Instrument = "strings"
	out = h.tick(Input{Now: ms(10), Gesture: g, Sensor: fresh(ms(10), 40)})
	assert.Equal(t, []contracts.MidiCommand{
		contracts.NoteOffCommand(1, 59),
		contracts.ProgramChangeCommand(1, 48),
		contracts.NoteOnCommand(1, 59, 100),
	}, out.Commands)
	assert.Equal(t, 1, eventsOf(out, EventInstrumentChanged))
}

func TestStep_InsertTrackOnInstrumentChangeWhileRecording(t *testing.T) {
	h := newHarness(t)
	h.cfg.InsertOnInstrumentChange = true
	rec := playing()
	rec.Recording = true
	h.settle(ms(0), rec, fresh(ms(0), 40))

	rec.Instrument = "drums"
	out := h.tick(Input{Now: ms(10), Gesture: rec, Sensor: fresh(ms(10), 40)})
	assert.Equal(t, []contracts.MidiCommand{contracts.ControlChangeCommand(1, 21, 127)}, out.Commands,
		"drum one-shot is muted by the count-in")
}

func TestStep_DrumInstrumentFiresOnRisingEdge(t *testing.T) {
	h := newHarness(t)
	g := playing()
	g.Instrument = "drums"

	out := h.settle(ms(0), g, fresh(ms(0), 40))
	assert.Equal(t, []contracts.MidiCommand{
		contracts.NoteOnCommand(10, 38, 110),
		contracts.NoteOffCommand(10, 38),
	}, out.Commands)

	out = h.tick(Input{Now: ms(10), Gesture: g, Sensor: fresh(ms(10), 20)})
	assert.Empty(t, out.Commands, "held gesture does not retrigger")

	g.NoteActive = false
	assert.Empty(t, h.tick(Input{Now: ms(20), Gesture: g, Sensor: fresh(ms(20), 20)}).Commands)

	g.NoteActive = true
	out = h.tick(Input{Now: ms(30), Gesture: g, Sensor: fresh(ms(30), 20)})
	assert.Len(t, out.Commands, 2)
	assert.False(t, h.st.Holding, "drum instruments never hold a lead note")
}

func TestStep_DrumInstrumentNoteZeroIsKept(t *testing.T) {
	h := newHarness(t)
	h.cfg.Instruments["kick"] = Instrument{Kind: Drum, Note: drumNote(0)}
	h.cfg.Instruments["snare"] = Instrument{Kind: Drum}
	g := playing()

	g.Instrument = "kick"
	out := h.settle(ms(0), g, fresh(ms(0), 40))
	assert.Equal(t, []contracts.MidiCommand{
		contracts.NoteOnCommand(10, 0, 110),
		contracts.NoteOffCommand(10, 0),
	}, out.Commands)

	g.Instrument = "snare"
	g.NoteActive = false
	h.tick(Input{Now: ms(10), Gesture: g, Sensor: fresh(ms(10), 40)})
	g.NoteActive = true
	out = h.tick(Input{Now: ms(20), Gesture: g, Sensor: fresh(ms(20), 40)})
	assert.Equal(t, []contracts.MidiCommand{
		contracts.NoteOnCommand(10, 36, 110),
		contracts.NoteOffCommand(10, 36),
	}, out.Commands, "an instrument without a note uses the default drum note")
}

func TestStep_SnapReducesFlutter(t *testing.T) {
	h := newHarness(t)
	h.cfg.SnapCM = 5

	noteOns := 0
	for i, cm := range []float64{40.2, 39.1, 41.4, 40.9, 38.0} {
		now := ms(i * 10)
		for _, c := range h.tick(Input{Now: now, Gesture: playing(), Sensor: fresh(now, cm)}).Commands {
			if c.Kind == contracts.NoteOn {
				noteOns++
			}
		}
	}
	assert.Equal(t, 1, noteOns)
}

func TestRelease(t *testing.T) {
	cfg := testConfig()
	st, cmds := Release(State{Holding: true, HeldNote: 60, NotePrev: true}, cfg)
	assert.Equal(t, []contracts.MidiCommand{contracts.NoteOffCommand(1, 60)}, cmds)
	assert.False(t, st.Holding)

	_, cmds = Release(st, cfg)
	assert.Empty(t, cmds)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, testConfig().Validate())

	cfg := testConfig()
	cfg.LeadChannel = 0
	cfg.PercussionChannel = 17
	cfg.RecordCC = 128
	cfg.BPM = 0
	cfg.Instruments["kazoo"] = Instrument{Kind: "whistle"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChannel)
	assert.ErrorIs(t, err, ErrDataByte)
	assert.Len(t, multierr.Errors(err), 5)
}

func TestConfig_UnknownInstrumentIsLead(t *testing.T) {
	inst := testConfig().instrument("theremin")
	assert.Equal(t, Lead, inst.Kind)
	assert.Nil(t, inst.Program)
}
