// Package mixertest provides an in-memory mixer.Client for tests.
package mixertest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/germanamz/mixbridge/pkg/mixer"
)

// ErrNotConnected is returned by requests issued before Connect.
var ErrNotConnected = errors.New("mixertest: not connected")

// Call records one request made against the fake.
type Call struct {
	Method string
	Args   []any
}

// SourceState is the remote state of one source.
type SourceState struct {
	Volume  float64
	Muted   bool
	Filters []mixer.Filter
}

// Client is an in-memory mixer. Configure it through the exported fields
// before Connect; the zero value has no sources or scenes.
type Client struct {
	mu sync.Mutex

	SourceOrder []string
	State       map[string]*SourceState
	SceneNames  []string
	Current     string

	// Fail maps a method name (e.g. "Volume", "Connect") to the error it
	// returns.
	Fail map[string]error

	// Gate, when set, is received from before each enumeration request
	// completes. Tests use it to hold a sync in flight.
	Gate chan struct{}

	connected bool
	connects  int
	events    chan mixer.Event
	calls     []Call
}

// New creates a fake with the given sources and scenes. Sources start at
// volume 1 and unmuted.
func New(sources []string, scenes []string, current string) *Client {
	c := &Client{
		State:      make(map[string]*SourceState),
		SceneNames: scenes,
		Current:    current,
		Fail:       make(map[string]error),
	}

	for _, s := range sources {
		c.AddSource(s, 1, false)
	}

	return c
}

// AddSource registers a source with its volume and mute state.
func (c *Client) AddSource(name string, volume float64, muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State == nil {
		c.State = make(map[string]*SourceState)
	}
	if _, ok := c.State[name]; !ok {
		c.SourceOrder = append(c.SourceOrder, name)
	}
	c.State[name] = &SourceState{Volume: volume, Muted: muted}
}

// AddFilter attaches a filter to an existing source.
func (c *Client) AddFilter(source string, f mixer.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.State[source]
	if !ok {
		panic(fmt.Sprintf("mixertest: unknown source %q", source))
	}
	st.Filters = append(st.Filters, f)
}

// Emit delivers an event as if the remote mixer pushed it. Events emitted
// while disconnected are lost; the buffer holds 64 events.
func (c *Client) Emit(e mixer.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.events != nil {
		c.events <- e
	}
}

// Calls returns a copy of the recorded requests.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallsTo returns the recorded requests to method.
func (c *Client) CallsTo(method string) []Call {
	var out []Call
	for _, call := range c.Calls() {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

// Connects returns how many times Connect succeeded.
func (c *Client) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connects
}

// Connected reports whether the fake is connected.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connected
}

func (c *Client) record(method string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call{Method: method, Args: args})
	if err := c.Fail[method]; err != nil {
		return err
	}
	if method != "Connect" && !c.connected {
		return ErrNotConnected
	}
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	gate := c.Gate
	c.mu.Unlock()

	if gate == nil {
		return nil
	}

	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect implements mixer.Client.
func (c *Client) Connect(_ context.Context, address, password string) error {
	if err := c.record("Connect", address, password); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = true
	c.connects++
	c.events = make(chan mixer.Event, 64)
	return nil
}

// Disconnect implements mixer.Client.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call{Method: "Disconnect"})
	if c.events != nil {
		close(c.events)
		c.events = nil
	}
	c.connected = false
	return nil
}

// Events implements mixer.Client.
func (c *Client) Events() <-chan mixer.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.events
}

// Sources implements mixer.Client.
func (c *Client) Sources(ctx context.Context) ([]mixer.Source, error) {
	if err := c.record("Sources"); err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]mixer.Source, 0, len(c.SourceOrder))
	for _, name := range c.SourceOrder {
		out = append(out, mixer.Source{Name: name, Kind: "input"})
	}
	return out, nil
}

func (c *Client) source(name string) (*SourceState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.State[name]
	if !ok {
		return nil, fmt.Errorf("mixertest: specified source doesn't exist: %s", name)
	}
	return st, nil
}

// Volume implements mixer.Client.
func (c *Client) Volume(_ context.Context, source string) (float64, error) {
	if err := c.record("Volume", source); err != nil {
		return 0, err
	}
	st, err := c.source(source)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return st.Volume, nil
}

// Muted implements mixer.Client.
func (c *Client) Muted(_ context.Context, source string) (bool, error) {
	if err := c.record("Muted", source); err != nil {
		return false, err
	}
	st, err := c.source(source)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return st.Muted, nil
}

// SetVolume implements mixer.Client.
func (c *Client) SetVolume(_ context.Context, source string, volume float64) error {
	if err := c.record("SetVolume", source, volume); err != nil {
		return err
	}
	st, err := c.source(source)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	st.Volume = volume
	return nil
}

// SetMute implements mixer.Client.
func (c *Client) SetMute(_ context.Context, source string, muted bool) error {
	if err := c.record("SetMute", source, muted); err != nil {
		return err
	}
	st, err := c.source(source)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	st.Muted = muted
	return nil
}

// Filters implements mixer.Client.
func (c *Client) Filters(ctx context.Context, source string) ([]mixer.Filter, error) {
	if err := c.record("Filters", source); err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	st, err := c.source(source)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]mixer.Filter, len(st.Filters))
	copy(out, st.Filters)
	return out, nil
}

// SetFilterSettings implements mixer.Client.
func (c *Client) SetFilterSettings(_ context.Context, source, filter string, settings map[string]any) error {
	if err := c.record("SetFilterSettings", source, filter, settings); err != nil {
		return err
	}
	st, err := c.source(source)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range st.Filters {
		if st.Filters[i].Name != filter {
			continue
		}
		if st.Filters[i].Settings == nil {
			st.Filters[i].Settings = make(map[string]any)
		}
		for k, v := range settings {
			st.Filters[i].Settings[k] = v
		}
		return nil
	}
	return fmt.Errorf("mixertest: specified filter doesn't exist: %s", filter)
}

// Scenes implements mixer.Client.
func (c *Client) Scenes(ctx context.Context) (mixer.SceneList, error) {
	if err := c.record("Scenes"); err != nil {
		return mixer.SceneList{}, err
	}
	if err := c.wait(ctx); err != nil {
		return mixer.SceneList{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	list := mixer.SceneList{Current: c.Current}
	for _, name := range c.SceneNames {
		list.Scenes = append(list.Scenes, mixer.Scene{Name: name})
	}
	return list, nil
}

// SetCurrentScene implements mixer.Client.
func (c *Client) SetCurrentScene(_ context.Context, scene string) error {
	if err := c.record("SetCurrentScene", scene); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !slices.Contains(c.SceneNames, scene) {
		return fmt.Errorf("mixertest: requested scene does not exist: %s", scene)
	}
	c.Current = scene
	return nil
}
