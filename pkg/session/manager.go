package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/germanamz/mixbridge/pkg/mixer"
	"github.com/germanamz/mixbridge/pkg/registry"
	"github.com/germanamz/mixbridge/pkg/surface"
	"github.com/germanamz/mixbridge/pkg/syncengine"
)

var (
	// ErrSuperseded is returned by an Init that was overtaken by a newer
	// Init or by Close.
	ErrSuperseded = errors.New("session: superseded by a newer connection")

	errConnectionLost = errors.New("connection to mixer lost")
)

const commandQueue = 64

// Options configures a Manager.
type Options struct {
	// Client is the remote mixer connection. Required.
	Client mixer.Client
	// Host renders controls and supplies actions. Defaults to surface.Discard.
	Host surface.Host
	// Settings supplies connection settings. Defaults to DefaultAddress and
	// an empty password.
	Settings SettingsSource
	// Status receives the status text. When nil and Host implements
	// StatusReporter, Host is used.
	Status StatusReporter
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Manager drives one mixer connection. It is safe for concurrent use.
type Manager struct {
	client   mixer.Client
	host     surface.Host
	settings SettingsSource
	reporter StatusReporter
	log      *slog.Logger
	reg      *registry.Registry
	eng      *syncengine.Engine
	bus      *EventBus

	// connMu serializes teardown and connect so two Inits never interleave
	// calls on the client.
	connMu sync.Mutex

	mu         sync.Mutex
	gen        uint64
	state      State
	status     string
	cancelInit context.CancelFunc
	stopLoop   context.CancelFunc
	loopDone   chan struct{}
}

// New creates a disconnected Manager.
func New(opts Options) *Manager {
	if opts.Host == nil {
		opts.Host = surface.Discard{}
	}
	if opts.Settings == nil {
		opts.Settings = StaticSettings{}
	}
	if opts.Status == nil {
		if r, ok := opts.Host.(StatusReporter); ok {
			opts.Status = r
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	reg := registry.New(opts.Host)

	return &Manager{
		client:   opts.Client,
		host:     opts.Host,
		settings: opts.Settings,
		reporter: opts.Status,
		log:      opts.Logger,
		reg:      reg,
		eng:      syncengine.New(opts.Client, reg, opts.Logger),
		bus:      NewEventBus(),
	}
}

// Registry returns the registry mirroring the remote mixer.
func (m *Manager) Registry() *registry.Registry { return m.reg }

// Events returns the bus on which lifecycle events are published.
func (m *Manager) Events() *EventBus { return m.bus }

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns the current status text.
func (m *Manager) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Init tears down any previous connection, connects with the current
// settings and runs a full sync. It may be called at any time, including
// while another Init is in flight; the older call then returns
// ErrSuperseded. Failures are reported through the status slot and leave
// the Manager Disconnected; there is no retry.
func (m *Manager) Init(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gen := m.begin(cancel)
	m.setState(gen, StateConnecting)
	m.report(gen, StatusConnecting)

	if err := m.connect(ctx, gen); err != nil {
		return m.fail(gen, err)
	}

	m.setState(gen, StateSyncing)
	if err := m.eng.FullSync(ctx, gen); err != nil {
		return m.fail(gen, err)
	}

	if !m.setState(gen, StateConnected) {
		return ErrSuperseded
	}
	m.report(gen, StatusConnected)
	m.bus.Publish(Event{Kind: EventSynced, State: StateConnected, Controls: m.reg.Len()})

	return nil
}

// begin starts a new generation: it cancels an in-flight Init, clears the
// registry and stops the event loop of the previous connection.
func (m *Manager) begin(cancel context.CancelFunc) uint64 {
	m.mu.Lock()
	if m.cancelInit != nil {
		m.cancelInit()
	}
	m.cancelInit = cancel
	gen := m.reg.Clear()
	m.gen = gen
	stop, done := m.detachLoopLocked()
	m.mu.Unlock()

	stopLoop(stop, done)
	return gen
}

func (m *Manager) connect(ctx context.Context, gen uint64) error {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	if !m.current(gen) {
		return ErrSuperseded
	}

	if err := m.client.Disconnect(); err != nil {
		m.log.WarnContext(ctx, "disconnect previous connection", "error", err)
	}

	settings, err := m.settings.Settings(ctx)
	if err != nil {
		return fmt.Errorf("session: read settings: %w", err)
	}
	settings = settings.withDefaults()

	m.log.InfoContext(ctx, "connecting to mixer", "address", settings.Address)
	if err := m.client.Connect(ctx, settings.Address, settings.Password); err != nil {
		return err
	}

	m.startLoop(gen, m.client.Events())
	return nil
}

// fail reports err for gen, or returns ErrSuperseded when gen is no longer
// current.
func (m *Manager) fail(gen uint64, err error) error {
	if errors.Is(err, syncengine.ErrStale) || errors.Is(err, ErrSuperseded) || !m.current(gen) {
		return ErrSuperseded
	}

	m.log.Warn("mixer session failed", "error", err)

	m.connMu.Lock()
	if m.current(gen) {
		m.mu.Lock()
		stop, done := m.detachLoopLocked()
		m.mu.Unlock()
		stopLoop(stop, done)

		if derr := m.client.Disconnect(); derr != nil {
			m.log.Warn("disconnect after failure", "error", derr)
		}
	}
	m.connMu.Unlock()

	if !m.setState(gen, StateDisconnected) {
		return ErrSuperseded
	}
	m.report(gen, ErrorText(err))

	return err
}

// Close tears the connection down without reconnecting. In-flight Inits
// return ErrSuperseded.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.cancelInit != nil {
		m.cancelInit()
		m.cancelInit = nil
	}
	gen := m.reg.Clear()
	m.gen = gen
	stop, done := m.detachLoopLocked()
	m.mu.Unlock()

	stopLoop(stop, done)

	m.connMu.Lock()
	err := m.client.Disconnect()
	m.connMu.Unlock()

	m.setState(gen, StateDisconnected)

	if err != nil {
		return fmt.Errorf("session: close: %w", err)
	}
	return nil
}

func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}

// setState moves to s if gen is current and reports whether it did.
func (m *Manager) setState(gen uint64, s State) bool {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return false
	}
	changed := m.state != s
	m.state = s
	m.mu.Unlock()

	if changed {
		m.log.Debug("session state changed", "state", s)
		m.bus.Publish(Event{Kind: EventStateChanged, State: s})
	}
	return true
}

// report writes text to the status slot if gen is current.
func (m *Manager) report(gen uint64, text string) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.status = text
	state := m.state
	m.mu.Unlock()

	if m.reporter != nil {
		m.reporter.SetStatus(text)
	}
	m.bus.Publish(Event{Kind: EventStatus, State: state, Status: text})
}

// ErrorText returns the text shown for err, preferring the remote's own
// description of a failed request.
func ErrorText(err error) string {
	var desc interface{ Description() string }
	if errors.As(err, &desc) {
		return desc.Description()
	}
	return err.Error()
}
