package tui

import (
	"context"
	"errors"
	"sort"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/germanamz/mixbridge/pkg/surface"
)

const actionBuffer = 64

// Options configures a Host.
type Options struct {
	// Title is shown in the header. Defaults to "mixbridge".
	Title string
	// OnReconnect is called when the user presses the reconnect key.
	OnReconnect func()
	// ProgramOptions are passed to tea.NewProgram.
	ProgramOptions []tea.ProgramOption
}

// Host is a bubbletea control surface.
type Host struct {
	opts Options

	mu      sync.Mutex
	levels  map[string]surface.Snapshot
	toggles map[string]surface.Snapshot
	status  string
	notice  string

	dirty     chan struct{}
	actions   chan surface.Action
	closeOnce sync.Once
}

var (
	_ surface.Host           = (*Host)(nil)
	_ surface.StatusReporter = (*Host)(nil)
	_ surface.Notifier       = (*Host)(nil)
)

// New creates a Host. Call Run to show it.
func New(opts Options) *Host {
	if opts.Title == "" {
		opts.Title = "mixbridge"
	}

	return &Host{
		opts:    opts,
		levels:  make(map[string]surface.Snapshot),
		toggles: make(map[string]surface.Snapshot),
		dirty:   make(chan struct{}, 1),
		actions: make(chan surface.Action, actionBuffer),
	}
}

// Render implements surface.Host.
func (h *Host) Render(s surface.Snapshot) {
	h.mu.Lock()
	switch s.Kind {
	case surface.KindLevel:
		h.levels[s.ID] = s
	case surface.KindToggle:
		h.toggles[s.ID] = s
	}
	h.mu.Unlock()

	h.markDirty()
}

// Clear implements surface.Host.
func (h *Host) Clear() {
	h.mu.Lock()
	h.levels = make(map[string]surface.Snapshot)
	h.toggles = make(map[string]surface.Snapshot)
	h.notice = ""
	h.mu.Unlock()

	h.markDirty()
}

// SetStatus implements surface.StatusReporter.
func (h *Host) SetStatus(text string) {
	h.mu.Lock()
	h.status = text
	h.mu.Unlock()

	h.markDirty()
}

// Notify implements surface.Notifier. The notice stays under the controls
// until the next one or the next Clear.
func (h *Host) Notify(text string) {
	h.mu.Lock()
	h.notice = text
	h.mu.Unlock()

	h.markDirty()
}

// Actions implements surface.Host. The channel closes when Run returns.
func (h *Host) Actions() <-chan surface.Action { return h.actions }

func (h *Host) markDirty() {
	select {
	case h.dirty <- struct{}{}:
	default:
	}
}

// snapshot returns a sorted copy of the host state.
func (h *Host) snapshot() controlsMsg {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := controlsMsg{status: h.status, notice: h.notice}
	for _, s := range h.levels {
		msg.levels = append(msg.levels, s)
	}
	for _, s := range h.toggles {
		msg.toggles = append(msg.toggles, s)
	}
	sort.Slice(msg.levels, func(i, j int) bool { return msg.levels[i].ID < msg.levels[j].ID })
	sort.Slice(msg.toggles, func(i, j int) bool { return msg.toggles[i].ID < msg.toggles[j].ID })

	return msg
}

// emit queues an action without blocking the UI. It reports false when the
// queue is full and the action was dropped.
func (h *Host) emit(a surface.Action) bool {
	select {
	case h.actions <- a:
		return true
	default:
		return false
	}
}

func (h *Host) reconnect() {
	if h.opts.OnReconnect != nil {
		h.opts.OnReconnect()
	}
}

// Run shows the surface until the user quits or ctx ends. The actions
// channel is closed on return.
func (h *Host) Run(ctx context.Context) error {
	defer h.closeOnce.Do(func() { close(h.actions) })

	opts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, h.opts.ProgramOptions...)
	p := tea.NewProgram(newModel(ctx, h), opts...)

	// Send the program reference so the model can start the bridge.
	go func() {
		p.Send(programReadyMsg{program: p})
	}()

	final, err := p.Run()
	if m, ok := final.(model); ok && m.cancelBridge != nil {
		m.cancelBridge()
	}

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// startBridge forwards host changes to the program. The goroutine only calls
// p.Send; it never touches model state. The returned function stops it and
// waits for it to exit.
func (h *Host) startBridge(ctx context.Context, p *tea.Program) context.CancelFunc {
	bridgeCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Go(func() {
		p.Send(h.snapshot())
		for {
			select {
			case <-bridgeCtx.Done():
				return
			case <-h.dirty:
				p.Send(h.snapshot())
			}
		}
	})

	return func() {
		cancel()
		wg.Wait()
	}
}
