package sensor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/leandrodaf/airdaw/sdk/contracts"
	"go.bug.st/serial"
)

const (
	triggerCommand    = "T\n"
	maxLineLength     = 64
	serialReadTimeout = 50 * time.Millisecond
)

var ErrBadLine = errors.New("bad echo line")

// SerialConfig describes a microcontroller that drives the HC-SR04 and
// reports each echo over a serial line.
type SerialConfig struct {
	Device string
	Baud   int
	// Timeout discards echoes longer than this (no fall edge seen in time).
	Timeout      time.Duration
	TemperatureC float64
}

// SerialSource speaks a line protocol with the microcontroller: the host
// writes "T\n" to trigger and the device answers "<echo_us>[,<temp_c>]\n".
// A reader goroutine keeps only the latest completed echo.
type SerialSource struct {
	rw        io.ReadWriteCloser
	cfg       SerialConfig
	log       contracts.Logger
	now       func() time.Time
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	latest *Sample
}

// OpenSerial opens cfg.Device and starts reading echo reports.
func OpenSerial(cfg SerialConfig, log contracts.Logger) (*SerialSource, error) {
	port, err := serial.Open(cfg.Device, &serial.Mode{BaudRate: cfg.Baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Device, err)
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("serial %s read timeout: %w", cfg.Device, err)
	}
	log.Info("serial sensor opened",
		log.Field().String("device", cfg.Device),
		log.Field().Int("baud", cfg.Baud))
	return NewSerial(port, cfg, log, time.Now), nil
}

// NewSerial runs the protocol over any stream.
func NewSerial(rw io.ReadWriteCloser, cfg SerialConfig, log contracts.Logger, now func() time.Time) *SerialSource {
	s := &SerialSource{rw: rw, cfg: cfg, log: log, now: now, done: make(chan struct{})}
	go s.readLoop()
	return s
}

// Ports lists serial devices present on the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

func (s *SerialSource) Trigger() error {
	if _, err := io.WriteString(s.rw, triggerCommand); err != nil {
		return fmt.Errorf("trigger: %w", err)
	}
	return nil
}

func (s *SerialSource) ReadEcho() (Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return Sample{}, false
	}
	smp := *s.latest
	s.latest = nil
	return smp, true
}

func (s *SerialSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.rw.Close()
		<-s.done
	})
	return err
}

func (s *SerialSource) readLoop() {
	defer close(s.done)

	chunk := make([]byte, 128)
	var lines lineSplitter
	for {
		n, err := s.rw.Read(chunk)
		if dropped := lines.feed(chunk[:n], s.handleLine); dropped > 0 {
			s.log.Debug("discarding overlong serial line", s.log.Field().Int("count", dropped))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				s.log.Debug("serial read stopped", s.log.Field().Error("error", err))
			}
			return
		}
	}
}

// lineSplitter cuts a byte stream into newline-terminated lines. A line
// longer than maxLineLength is dropped whole at its newline.
type lineSplitter struct {
	line     []byte
	overflow bool
}

// feed passes each complete line in p to emit and returns how many
// overlong lines were dropped.
func (l *lineSplitter) feed(p []byte, emit func([]byte)) int {
	dropped := 0
	for _, b := range p {
		if b != '\n' {
			if len(l.line) < maxLineLength {
				l.line = append(l.line, b)
			} else {
				l.overflow = true
			}
			continue
		}
		if l.overflow {
			dropped++
		} else {
			emit(l.line)
		}
		l.line = l.line[:0]
		l.overflow = false
	}
	return dropped
}

func (s *SerialSource) handleLine(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	echo, temp, hasTemp, err := parseEchoLine(string(line))
	if err != nil {
		s.log.Debug("discarding serial line", s.log.Field().Error("error", err))
		return
	}
	if s.cfg.Timeout > 0 && echo > s.cfg.Timeout {
		s.log.Debug("echo timeout", s.log.Field().Duration("echo", echo))
		return
	}
	if !hasTemp {
		temp = s.cfg.TemperatureC
	}

	smp := &Sample{Echo: echo, TemperatureC: temp, CapturedAt: s.now()}
	s.mu.Lock()
	s.latest = smp
	s.mu.Unlock()
}

// parseEchoLine parses "<echo_us>" or "<echo_us>,<temp_c>". Zero and
// negative echoes are rejected, as the device reports 0 on timeout.
func parseEchoLine(line string) (time.Duration, float64, bool, error) {
	usField, tempField, hasTemp := strings.Cut(line, ",")

	us, err := strconv.ParseInt(strings.TrimSpace(usField), 10, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("%w %q: %v", ErrBadLine, line, err)
	}
	if us <= 0 {
		return 0, 0, false, fmt.Errorf("%w %q: no echo", ErrBadLine, line)
	}
	echo := time.Duration(us) * time.Microsecond
	if !hasTemp {
		return echo, 0, false, nil
	}

	temp, err := strconv.ParseFloat(strings.TrimSpace(tempField), 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("%w %q: %v", ErrBadLine, line, err)
	}
	return echo, temp, true, nil
}
