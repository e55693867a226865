package surface

import "sync"

// Host is a control surface. Render and Clear may be called from any
// goroutine.
type Host interface {
	// Render shows a newly registered control or a change to one.
	Render(s Snapshot)

	// Clear drops every rendered control; it precedes a fresh sync.
	Clear()

	// Actions delivers user interaction. A nil channel means the host is
	// display-only.
	Actions() <-chan Action
}

// StatusReporter is implemented by hosts that show the connection status.
type StatusReporter interface {
	SetStatus(text string)
}

// Discard is a display-only Host that renders nothing.
type Discard struct{}

func (Discard) Render(Snapshot)        {}
func (Discard) Clear()                 {}
func (Discard) Actions() <-chan Action { return nil }

// Notifier is implemented by hosts that show transient messages, such as a
// command the mixer rejected.
type Notifier interface {
	Notify(text string)
}

// Fanout renders to several hosts and merges their actions into one channel.
type Fanout struct {
	hosts   []Host
	actions chan Action
	done    chan struct{}
	once    sync.Once
}

// NewFanout creates a Fanout over hosts. The merged actions channel closes
// once every host's channel has closed or Close is called.
func NewFanout(hosts ...Host) *Fanout {
	f := &Fanout{
		hosts:   hosts,
		actions: make(chan Action, 16),
		done:    make(chan struct{}),
	}

	var wg sync.WaitGroup
	for _, h := range hosts {
		ch := h.Actions()
		if ch == nil {
			continue
		}
		wg.Go(func() { f.forward(ch) })
	}

	go func() {
		wg.Wait()
		close(f.actions)
	}()

	return f
}

func (f *Fanout) forward(ch <-chan Action) {
	for {
		select {
		case <-f.done:
			return
		case a, ok := <-ch:
			if !ok {
				return
			}
			select {
			case f.actions <- a:
			case <-f.done:
				return
			}
		}
	}
}

// Close stops forwarding actions. Actions not yet taken are discarded.
func (f *Fanout) Close() error {
	f.once.Do(func() { close(f.done) })
	return nil
}

func (f *Fanout) Render(s Snapshot) {
	for _, h := range f.hosts {
		h.Render(s)
	}
}

func (f *Fanout) Clear() {
	for _, h := range f.hosts {
		h.Clear()
	}
}

func (f *Fanout) Actions() <-chan Action { return f.actions }

// SetStatus forwards to every host that reports status.
func (f *Fanout) SetStatus(text string) {
	for _, h := range f.hosts {
		if r, ok := h.(StatusReporter); ok {
			r.SetStatus(text)
		}
	}
}

// Notify forwards to every host that shows notices.
func (f *Fanout) Notify(text string) {
	for _, h := range f.hosts {
		if n, ok := h.(Notifier); ok {
			n.Notify(text)
		}
	}
}
