package midisurface

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/germanamz/mixbridge/pkg/config"
	"github.com/germanamz/mixbridge/pkg/surface"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

const (
	actionBuffer = 64
	ledOn        = 127
	ledOff       = 0
)

// Surface is a MIDI control surface.
type Surface struct {
	log     *slog.Logger
	channel uint8

	faders      map[uint8]string               // cc -> control id
	faderOf     map[string][]uint8             // control id -> ccs
	buttons     map[uint8]config.ButtonMapping // note -> mapping
	muteLEDs    map[string][]uint8             // level id -> notes
	toggleLEDs  map[string][]uint8             // toggle id -> notes
	allButtons  []uint8
	sendMu      sync.Mutex
	send        func(gomidi.Message) error
	stopListen  func()
	actions     chan surface.Action
	closeOnce   sync.Once
	unavailable bool
}

var _ surface.Host = (*Surface)(nil)

// Open connects to the configured ports. The output port is optional; without
// it the surface sends no feedback.
func Open(cfg config.MIDIConfig, log *slog.Logger) (*Surface, error) {
	in, err := findIn(cfg.Input)
	if err != nil {
		return nil, err
	}

	var send func(gomidi.Message) error
	if cfg.Output != "" {
		out, err := findOut(cfg.Output)
		if err != nil {
			return nil, err
		}
		send, err = gomidi.SendTo(out)
		if err != nil {
			return nil, fmt.Errorf("midisurface: open output %s: %w", out, err)
		}
	}

	s := newSurface(cfg, log, send)

	stop, err := gomidi.ListenTo(in, s.handle)
	if err != nil {
		return nil, fmt.Errorf("midisurface: open input %s: %w", in, err)
	}
	s.stopListen = stop

	s.log.Info("midi surface open", "input", in.String(), "output", cfg.Output)
	return s, nil
}

func newSurface(cfg config.MIDIConfig, log *slog.Logger, send func(gomidi.Message) error) *Surface {
	if log == nil {
		log = slog.Default()
	}

	s := &Surface{
		log:        log,
		channel:    cfg.Channel,
		faders:     make(map[uint8]string, len(cfg.Faders)),
		faderOf:    make(map[string][]uint8),
		buttons:    make(map[uint8]config.ButtonMapping, len(cfg.Buttons)),
		muteLEDs:   make(map[string][]uint8),
		toggleLEDs: make(map[string][]uint8),
		send:       send,
		actions:    make(chan surface.Action, actionBuffer),
	}

	for _, f := range cfg.Faders {
		s.faders[f.CC] = f.Control
		s.faderOf[f.Control] = append(s.faderOf[f.Control], f.CC)
	}
	for _, b := range cfg.Buttons {
		s.buttons[b.Note] = b
		s.allButtons = append(s.allButtons, b.Note)
		switch b.Action {
		case config.ButtonMute:
			s.muteLEDs[b.Control] = append(s.muteLEDs[b.Control], b.Note)
		case config.ButtonPress:
			s.toggleLEDs[b.Control] = append(s.toggleLEDs[b.Control], b.Note)
		}
	}

	return s
}

// handle translates one incoming message. It runs on the driver's goroutine
// and never blocks; actions beyond the buffer are dropped.
func (s *Surface) handle(msg gomidi.Message, _ int32) {
	var channel, cc, value, note, velocity uint8

	var action surface.Action
	switch {
	case msg.GetControlChange(&channel, &cc, &value):
		id, ok := s.faders[cc]
		if !ok || channel != s.channel {
			return
		}
		action = surface.VolumeChanged{ID: id, Level: float64(value) / 127}

	case msg.GetNoteOn(&channel, &note, &velocity):
		b, ok := s.buttons[note]
		if !ok || channel != s.channel || velocity == 0 {
			return
		}
		if b.Action == config.ButtonMute {
			action = surface.MutePressed{ID: b.Control}
		} else {
			action = surface.Pressed{ID: b.Control}
		}

	default:
		return
	}

	select {
	case s.actions <- action:
	default:
		s.log.Warn("midi action buffer full, dropping", "control", action.ControlID())
	}
}

// Render implements surface.Host.
func (s *Surface) Render(snap surface.Snapshot) {
	switch snap.Kind {
	case surface.KindLevel:
		value := uint8(math.Round(surface.ClampLevel(snap.Volume) * 127))
		for _, cc := range s.faderOf[snap.ID] {
			s.write(gomidi.ControlChange(s.channel, cc, value))
		}
		for _, note := range s.muteLEDs[snap.ID] {
			s.write(gomidi.NoteOn(s.channel, note, led(snap.Muted)))
		}

	case surface.KindToggle:
		for _, note := range s.toggleLEDs[snap.ID] {
			s.write(gomidi.NoteOn(s.channel, note, led(snap.Active)))
		}
	}
}

// Clear implements surface.Host by switching every mapped button light off.
func (s *Surface) Clear() {
	for _, note := range s.allButtons {
		s.write(gomidi.NoteOn(s.channel, note, ledOff))
	}
}

// Actions implements surface.Host. The channel closes on Close.
func (s *Surface) Actions() <-chan surface.Action { return s.actions }

// Close stops listening, turns the lights off and closes the action channel.
func (s *Surface) Close() error {
	s.closeOnce.Do(func() {
		if s.stopListen != nil {
			s.stopListen()
		}
		s.Clear()
		close(s.actions)
	})
	return nil
}

func (s *Surface) write(msg gomidi.Message) {
	if s.send == nil {
		return
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if err := s.send(msg); err != nil {
		// Warn once per outage.
		if !s.unavailable {
			s.log.Warn("midi output failed", "error", err)
		}
		s.unavailable = true
		return
	}
	s.unavailable = false
}

func led(on bool) uint8 {
	if on {
		return ledOn
	}
	return ledOff
}

// Ports lists the names of the available input and output ports.
func Ports() (ins, outs []string) {
	for _, p := range gomidi.GetInPorts() {
		ins = append(ins, p.String())
	}
	for _, p := range gomidi.GetOutPorts() {
		outs = append(outs, p.String())
	}
	return ins, outs
}

// findIn returns the first input port whose name contains name, ignoring
// case.
func findIn(name string) (drivers.In, error) {
	for _, p := range gomidi.GetInPorts() {
		if matchPort(p.String(), name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("midisurface: no input port matching %q", name)
}

func findOut(name string) (drivers.Out, error) {
	for _, p := range gomidi.GetOutPorts() {
		if matchPort(p.String(), name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("midisurface: no output port matching %q", name)
}

func matchPort(port, want string) bool {
	return want != "" && strings.Contains(strings.ToLower(port), strings.ToLower(want))
}
