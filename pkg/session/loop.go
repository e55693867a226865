package session

import (
	"context"

	"github.com/germanamz/mixbridge/pkg/mixer"
)

// startLoop starts applying events for gen. It does nothing if gen is no
// longer current.
func (m *Manager) startLoop(gen uint64, events <-chan mixer.Event) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		cancel()
		return
	}
	m.stopLoop, m.loopDone = cancel, done
	m.mu.Unlock()

	go func() {
		defer close(done)
		m.eventLoop(ctx, gen, events)
	}()
}

func (m *Manager) detachLoopLocked() (context.CancelFunc, chan struct{}) {
	stop, done := m.stopLoop, m.loopDone
	m.stopLoop, m.loopDone = nil, nil
	return stop, done
}

func stopLoop(stop context.CancelFunc, done chan struct{}) {
	if stop == nil {
		return
	}
	stop()
	<-done
}

// eventLoop applies remote events in arrival order until ctx ends or the
// connection closes.
func (m *Manager) eventLoop(ctx context.Context, gen uint64, events <-chan mixer.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				m.lost(ctx, gen)
				return
			}
			m.eng.Apply(ctx, ev)
		}
	}
}

// lost handles an events channel closed by the remote side.
func (m *Manager) lost(ctx context.Context, gen uint64) {
	if ctx.Err() != nil {
		return
	}

	m.log.WarnContext(ctx, "mixer connection lost")

	m.mu.Lock()
	if m.gen == gen {
		m.stopLoop, m.loopDone = nil, nil
	}
	m.mu.Unlock()

	if m.setState(gen, StateDisconnected) {
		m.report(gen, errConnectionLost.Error())
	}
}

// Run consumes actions from the host until ctx ends or the host closes its
// action channel. Actions are resolved against the registry as they arrive
// and the resulting commands are sent in order by a single goroutine.
// Actions arriving while not Connected are dropped.
func (m *Manager) Run(ctx context.Context) error {
	actions := m.host.Actions()
	cmds := make(chan mixer.Command, commandQueue)

	senderDone := make(chan struct{})
	go func() {
		defer close(senderDone)
		for cmd := range cmds {
			m.send(ctx, cmd)
		}
	}()
	defer func() {
		close(cmds)
		<-senderDone
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a, ok := <-actions:
			if !ok {
				return nil
			}

			if s := m.State(); s != StateConnected {
				m.log.DebugContext(ctx, "action dropped while not connected", "control", a.ControlID(), "state", s)
				continue
			}

			cmd, ok := m.eng.Resolve(a)
			if !ok {
				m.log.DebugContext(ctx, "action has no remote counterpart", "control", a.ControlID())
				continue
			}

			select {
			case cmds <- cmd:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// send executes one command. Failures are logged and published; the
// session stays connected.
func (m *Manager) send(ctx context.Context, cmd mixer.Command) {
	if ctx.Err() != nil {
		return
	}

	if err := m.eng.Execute(ctx, cmd); err != nil {
		m.log.WarnContext(ctx, "command failed", "command", cmd, "error", err)
		m.bus.Publish(Event{Kind: EventCommandFailed, State: m.State(), Command: cmd, Err: err})
	}
}
