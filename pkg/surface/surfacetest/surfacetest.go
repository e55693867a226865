// Package surfacetest provides a recording surface.Host for tests.
package surfacetest

import (
	"sync"

	"github.com/germanamz/mixbridge/pkg/surface"
)

// Recorder is a surface.Host that remembers the latest snapshot of every
// control, the number of Clear calls, and every status and notice.
type Recorder struct {
	mu       sync.Mutex
	controls map[string]surface.Snapshot
	renders  int
	clears   int
	statuses []string
	notices  []string
	actions  chan surface.Action
}

// NewRecorder creates a Recorder whose action channel buffers 16 actions.
func NewRecorder() *Recorder {
	return &Recorder{
		controls: make(map[string]surface.Snapshot),
		actions:  make(chan surface.Action, 16),
	}
}

func key(kind surface.Kind, id string) string { return kind.String() + "/" + id }

func (r *Recorder) Render(s surface.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.controls[key(s.Kind, s.ID)] = s
	r.renders++
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.controls = make(map[string]surface.Snapshot)
	r.clears++
}

func (r *Recorder) Actions() <-chan surface.Action { return r.actions }

func (r *Recorder) SetStatus(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.statuses = append(r.statuses, text)
}

func (r *Recorder) Notify(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notices = append(r.notices, text)
}

// Notices returns every notice shown so far.
func (r *Recorder) Notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.notices))
	copy(out, r.notices)
	return out
}

// Push queues an action as if the user performed it.
func (r *Recorder) Push(a surface.Action) { r.actions <- a }

// Close closes the action channel.
func (r *Recorder) Close() { close(r.actions) }

// Control returns the latest snapshot rendered for a control.
func (r *Recorder) Control(kind surface.Kind, id string) (surface.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.controls[key(kind, id)]
	return s, ok
}

// Len returns the number of controls currently rendered.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controls)
}

// Renders returns the total number of Render calls.
func (r *Recorder) Renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders
}

// Clears returns the number of Clear calls.
func (r *Recorder) Clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}

// Statuses returns every status reported so far.
func (r *Recorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.statuses))
	copy(out, r.statuses)
	return out
}

// LastStatus returns the most recent status, or "".
func (r *Recorder) LastStatus() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}
