package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/germanamz/mixbridge/pkg/surface"
	"github.com/germanamz/mixbridge/pkg/surface/surfacetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGet(t *testing.T) {
	r := &Registry{}
	mic := surface.NewLevel("Mic", surface.LevelOptions{Source: "Mic"})

	r.Put(LevelKey("Mic"), mic)

	c, ok := r.Get(LevelKey("Mic"))
	require.True(t, ok)
	assert.Same(t, mic, c)
}

func TestGetMissing(t *testing.T) {
	r := &Registry{}

	_, ok := r.Get(LevelKey("missing"))
	assert.False(t, ok)

	_, ok = r.Level("missing")
	assert.False(t, ok)
}

func TestPutOverwrite(t *testing.T) {
	r := &Registry{}
	first := surface.NewLevel("Mic", surface.LevelOptions{Volume: 0.1})
	second := surface.NewLevel("Mic", surface.LevelOptions{Volume: 0.9})

	r.Put(LevelKey("Mic"), first)
	r.Put(LevelKey("Mic"), second)

	l, ok := r.Level("Mic")
	require.True(t, ok)
	assert.Equal(t, 0.9, l.Volume())
	assert.Equal(t, 1, r.Len())
}

func TestKindsDoNotCollide(t *testing.T) {
	r := &Registry{}
	r.Put(LevelKey("Main"), surface.NewLevel("Main", surface.LevelOptions{}))
	r.Put(ToggleKey("Main"), surface.NewToggle("Main", surface.ToggleOptions{}))

	assert.Equal(t, 2, r.Len())

	_, ok := r.Level("Main")
	assert.True(t, ok)
	_, ok = r.Toggle("Main")
	assert.True(t, ok)
}

func TestTypedLookupWrongKind(t *testing.T) {
	r := &Registry{}
	r.Put(LevelKey("Scene A"), surface.NewToggle("Scene A", surface.ToggleOptions{}))

	_, ok := r.Level("Scene A")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	host := surfacetest.NewRecorder()
	r := New(host)
	mic := surface.NewLevel("Mic", surface.LevelOptions{})
	r.Put(LevelKey("Mic"), mic)
	r.Put(ToggleKey("Scene A"), surface.NewToggle("Scene A", surface.ToggleOptions{}))

	gen := r.Clear()

	assert.Equal(t, uint64(1), gen)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 1, host.Clears())
	assert.Equal(t, 0, host.Len())

	// A cleared control no longer renders.
	renders := host.Renders()
	mic.SetVolume(0.3)
	assert.Equal(t, renders, host.Renders())
}

func TestPutRendersAndAttaches(t *testing.T) {
	host := surfacetest.NewRecorder()
	r := New(host)
	mic := surface.NewLevel("Mic", surface.LevelOptions{Volume: 0.4})

	r.Put(LevelKey("Mic"), mic)

	snap, ok := host.Control(surface.KindLevel, "Mic")
	require.True(t, ok)
	assert.Equal(t, 0.4, snap.Volume)

	mic.SetMuted(true)
	snap, _ = host.Control(surface.KindLevel, "Mic")
	assert.True(t, snap.Muted)
}

func TestPutIfCurrent(t *testing.T) {
	r := &Registry{}
	stale := r.Generation()
	current := r.Clear()

	ok := r.PutIfCurrent(stale, LevelKey("Old"), surface.NewLevel("Old", surface.LevelOptions{}))
	assert.False(t, ok)

	ok = r.PutIfCurrent(current, LevelKey("New"), surface.NewLevel("New", surface.LevelOptions{}))
	assert.True(t, ok)

	assert.Equal(t, []Key{LevelKey("New")}, r.Keys())
}

func TestKeysOrder(t *testing.T) {
	r := &Registry{}
	r.Put(ToggleKey("b"), surface.NewToggle("b", surface.ToggleOptions{}))
	r.Put(LevelKey("z"), surface.NewLevel("z", surface.LevelOptions{}))
	r.Put(LevelKey("a"), surface.NewLevel("a", surface.LevelOptions{}))
	r.Put(ToggleKey("a"), surface.NewToggle("a", surface.ToggleOptions{}))

	assert.Equal(t, []Key{LevelKey("a"), LevelKey("z"), ToggleKey("a"), ToggleKey("b")}, r.Keys())
	assert.Len(t, r.Levels(), 2)
	assert.Len(t, r.Toggles(), 2)
	assert.Len(t, r.Snapshots(), 4)
}

// gateHost blocks its first Render until release is closed.
type gateHost struct {
	*surfacetest.Recorder
	entered chan struct{}
	release chan struct{}
	first   sync.Once
}

func newGateHost() *gateHost {
	return &gateHost{
		Recorder: surfacetest.NewRecorder(),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (h *gateHost) Render(s surface.Snapshot) {
	h.first.Do(func() {
		close(h.entered)
		<-h.release
	})
	h.Recorder.Render(s)
}

func TestClearOrdersAfterInFlightRender(t *testing.T) {
	host := newGateHost()
	r := New(host)
	gen := r.Generation()

	put := make(chan bool, 1)
	go func() {
		put <- r.PutIfCurrent(gen, LevelKey("Old"), surface.NewLevel("Old", surface.LevelOptions{}))
	}()
	<-host.entered

	cleared := make(chan struct{})
	go func() {
		r.Clear()
		close(cleared)
	}()

	select {
	case <-cleared:
		t.Fatal("Clear finished while a render was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(host.release)
	require.True(t, <-put)
	<-cleared

	assert.Zero(t, r.Len())
	_, shown := host.Control(surface.KindLevel, "Old")
	assert.False(t, shown, "host still shows a control the registry dropped")
}

func TestClearedControlStopsRendering(t *testing.T) {
	host := surfacetest.NewRecorder()
	r := New(host)
	mic := surface.NewLevel("Mic", surface.LevelOptions{Source: "Mic"})
	r.Put(LevelKey("Mic"), mic)

	r.Clear()
	mic.SetVolume(0.7)

	assert.Zero(t, host.Len())
}
