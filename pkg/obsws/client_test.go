package obsws_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/germanamz/mixbridge/pkg/mixer"
	"github.com/germanamz/mixbridge/pkg/obsws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOBS is a minimal obs-websocket v4 server. Handlers map a request type
// to a function returning the response fields; returning a nil map leaves
// the request unanswered.
type fakeOBS struct {
	t        *testing.T
	srv      *httptest.Server
	password string

	mu       sync.Mutex
	requests []map[string]any
	conn     *websocket.Conn
	handlers map[string]func(req map[string]any) map[string]any
}

func newFakeOBS(t *testing.T, password string) *fakeOBS {
	t.Helper()

	f := &fakeOBS{
		t:        t,
		password: password,
		handlers: make(map[string]func(map[string]any) map[string]any),
	}
	f.handle("GetAuthRequired", func(map[string]any) map[string]any {
		if f.password == "" {
			return map[string]any{"authRequired": false}
		}
		return map[string]any{"authRequired": true, "salt": "salt1", "challenge": "challenge2"}
	})
	f.handle("Authenticate", func(req map[string]any) map[string]any {
		// authResponse("supersecret", "salt1", "challenge2")
		if req["auth"] != "pjK6cz3/4LdniM+C6EaEdgJiyRVjFuCEPWA4I/Jl164=" {
			return errorResponse("Authentication Failed.")
		}
		return map[string]any{}
	})

	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)

	return f
}

func errorResponse(msg string) map[string]any {
	return map[string]any{"status": "error", "error": msg}
}

func (f *fakeOBS) handle(requestType string, h func(map[string]any) map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[requestType] = h
}

func (f *fakeOBS) address() string {
	return strings.TrimPrefix(f.srv.URL, "http://")
}

func (f *fakeOBS) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	ctx := r.Context()
	for {
		var req map[string]any
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			return
		}

		f.mu.Lock()
		f.requests = append(f.requests, req)
		h := f.handlers[req["request-type"].(string)]
		f.mu.Unlock()

		var resp map[string]any
		if h == nil {
			resp = errorResponse("invalid request type")
		} else if resp = h(req); resp == nil {
			continue
		}

		out := map[string]any{"message-id": req["message-id"], "status": "ok"}
		for k, v := range resp {
			out[k] = v
		}
		if err := wsjson.Write(ctx, conn, out); err != nil {
			return
		}
	}
}

// push sends an update message to the connected client.
func (f *fakeOBS) push(msg map[string]any) {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()

	require.NotNil(f.t, conn)
	require.NoError(f.t, wsjson.Write(context.Background(), conn, msg))
}

// drop closes the server side of the connection.
func (f *fakeOBS) drop() {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()

	require.NotNil(f.t, conn)
	_ = conn.Close(websocket.StatusGoingAway, "shutting down")
}

func (f *fakeOBS) lastRequest(requestType string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i]["request-type"] == requestType {
			return f.requests[i]
		}
	}
	return nil
}

func connect(t *testing.T, f *fakeOBS, password string) *obsws.Client {
	t.Helper()

	c := obsws.New(nil)
	require.NoError(t, c.Connect(context.Background(), f.address(), password))
	t.Cleanup(func() { _ = c.Disconnect() })

	return c
}

func TestConnect_NoAuth(t *testing.T) {
	f := newFakeOBS(t, "")
	connect(t, f, "")

	assert.NotNil(t, f.lastRequest("GetAuthRequired"))
	assert.Nil(t, f.lastRequest("Authenticate"))
}

func TestConnect_Auth(t *testing.T) {
	f := newFakeOBS(t, "supersecret")
	connect(t, f, "supersecret")

	assert.NotNil(t, f.lastRequest("Authenticate"))
}

func TestConnect_WrongPassword(t *testing.T) {
	f := newFakeOBS(t, "supersecret")

	c := obsws.New(nil)
	err := c.Connect(context.Background(), f.address(), "nope")

	require.ErrorIs(t, err, obsws.ErrAuthFailed)
	assert.Contains(t, err.Error(), "Authentication Failed.")
}

func TestConnect_Unreachable(t *testing.T) {
	f := newFakeOBS(t, "")
	addr := f.address()
	f.srv.Close()

	c := obsws.New(nil)
	err := c.Connect(context.Background(), addr, "")
	require.Error(t, err)
	assert.Nil(t, c.Events())
}

func TestClient_Enumeration(t *testing.T) {
	f := newFakeOBS(t, "")
	f.handle("GetSourcesList", func(map[string]any) map[string]any {
		return map[string]any{"sources": []map[string]any{
			{"name": "Mic", "typeId": "wasapi_input_capture", "type": "input"},
			{"name": "Desktop", "typeId": "wasapi_output_capture", "type": "input"},
		}}
	})
	f.handle("GetVolume", func(req map[string]any) map[string]any {
		return map[string]any{"name": req["source"], "volume": 0.8, "muted": false}
	})
	f.handle("GetMute", func(req map[string]any) map[string]any {
		return map[string]any{"name": req["source"], "muted": true}
	})
	f.handle("GetSourceFilters", func(map[string]any) map[string]any {
		return map[string]any{"filters": []map[string]any{
			{"enabled": true, "type": "audio_monitor", "name": "Limiter", "settings": map[string]any{"volume": 40}},
		}}
	})
	f.handle("GetSceneList", func(map[string]any) map[string]any {
		return map[string]any{"current-scene": "Scene A", "scenes": []map[string]any{
			{"name": "Scene A", "sources": []any{}},
			{"name": "Scene B", "sources": []any{}},
		}}
	})

	c := connect(t, f, "")
	ctx := context.Background()

	sources, err := c.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []mixer.Source{
		{Name: "Mic", Kind: "wasapi_input_capture"},
		{Name: "Desktop", Kind: "wasapi_output_capture"},
	}, sources)

	vol, err := c.Volume(ctx, "Mic")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, vol, 1e-9)
	assert.Equal(t, "Mic", f.lastRequest("GetVolume")["source"])

	muted, err := c.Muted(ctx, "Mic")
	require.NoError(t, err)
	assert.True(t, muted)

	filters, err := c.Filters(ctx, "Mic")
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "Limiter", filters[0].Name)
	assert.Equal(t, mixer.FilterKindAudioMonitor, filters[0].Kind)
	assert.True(t, filters[0].Enabled)
	v, ok := filters[0].Volume()
	require.True(t, ok)
	assert.InDelta(t, 40.0, v, 1e-9)
	assert.Equal(t, "Mic", f.lastRequest("GetSourceFilters")["sourceName"])

	scenes, err := c.Scenes(ctx)
	require.NoError(t, err)
	assert.Equal(t, mixer.SceneList{
		Current: "Scene A",
		Scenes:  []mixer.Scene{{Name: "Scene A"}, {Name: "Scene B"}},
	}, scenes)
}

func TestClient_Commands(t *testing.T) {
	f := newFakeOBS(t, "")
	ok := func(map[string]any) map[string]any { return map[string]any{} }
	for _, rt := range []string{"SetVolume", "SetMute", "SetSourceFilterSettings", "SetCurrentScene"} {
		f.handle(rt, ok)
	}

	c := connect(t, f, "")
	ctx := context.Background()

	require.NoError(t, c.SetVolume(ctx, "Mic", 0.5))
	req := f.lastRequest("SetVolume")
	assert.Equal(t, "Mic", req["source"])
	assert.InDelta(t, 0.5, req["volume"], 1e-9)

	require.NoError(t, c.SetMute(ctx, "Mic", true))
	assert.Equal(t, true, f.lastRequest("SetMute")["mute"])

	require.NoError(t, c.SetFilterSettings(ctx, "Mic", "Limiter", map[string]any{"volume": 55.0}))
	req = f.lastRequest("SetSourceFilterSettings")
	assert.Equal(t, "Mic", req["sourceName"])
	assert.Equal(t, "Limiter", req["filterName"])
	assert.Equal(t, map[string]any{"volume": 55.0}, req["filterSettings"])

	require.NoError(t, c.SetCurrentScene(ctx, "Scene B"))
	assert.Equal(t, "Scene B", f.lastRequest("SetCurrentScene")["scene-name"])
}

func TestClient_MessageIDsUnique(t *testing.T) {
	f := newFakeOBS(t, "")
	f.handle("SetMute", func(map[string]any) map[string]any { return map[string]any{} })
	c := connect(t, f, "")

	require.NoError(t, c.SetMute(context.Background(), "Mic", true))
	require.NoError(t, c.SetMute(context.Background(), "Mic", false))

	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[any]bool)
	for _, r := range f.requests {
		assert.False(t, seen[r["message-id"]], "duplicate message-id %v", r["message-id"])
		seen[r["message-id"]] = true
	}
}

func TestClient_RequestError(t *testing.T) {
	f := newFakeOBS(t, "")
	f.handle("GetVolume", func(map[string]any) map[string]any {
		return errorResponse("specified source doesn't exist")
	})

	c := connect(t, f, "")
	_, err := c.Volume(context.Background(), "Ghost")

	var reqErr *obsws.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "GetVolume", reqErr.Request)
	assert.Equal(t, "specified source doesn't exist", reqErr.Message)
}

func TestClient_ContextCanceled(t *testing.T) {
	f := newFakeOBS(t, "")
	f.handle("GetVolume", func(map[string]any) map[string]any { return nil })

	c := connect(t, f, "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Volume(ctx, "Mic")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Events(t *testing.T) {
	f := newFakeOBS(t, "")
	c := connect(t, f, "")

	f.push(map[string]any{"update-type": "StreamStarted"})
	f.push(map[string]any{"update-type": "SourceVolumeChanged", "sourceName": "Mic", "volume": 0.3})
	f.push(map[string]any{"update-type": "SourceMuteStateChanged", "sourceName": "Mic", "muted": true})
	f.push(map[string]any{"update-type": "SwitchScenes", "scene-name": "Scene B"})

	var got []mixer.Event
	for len(got) < 3 {
		select {
		case ev := <-c.Events():
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for events, got %v", got)
		}
	}

	assert.Equal(t, []mixer.Event{
		mixer.VolumeChanged{Source: "Mic", Volume: 0.3},
		mixer.MuteChanged{Source: "Mic", Muted: true},
		mixer.SceneSwitched{Scene: "Scene B"},
	}, got)
}

func TestClient_Disconnect(t *testing.T) {
	f := newFakeOBS(t, "")
	c := connect(t, f, "")
	events := c.Events()

	require.NoError(t, c.Disconnect())

	_, open := <-events
	assert.False(t, open)

	_, err := c.Volume(context.Background(), "Mic")
	assert.ErrorIs(t, err, obsws.ErrClosed)

	require.NoError(t, c.Disconnect())
}

func TestClient_RemoteCloseFailsPending(t *testing.T) {
	f := newFakeOBS(t, "")
	received := make(chan struct{})
	f.handle("GetVolume", func(map[string]any) map[string]any {
		close(received)
		return nil
	})

	c := connect(t, f, "")
	events := c.Events()

	errc := make(chan error, 1)
	go func() {
		_, err := c.Volume(context.Background(), "Mic")
		errc <- err
	}()

	<-received
	f.drop()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, obsws.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("pending request was not failed")
	}

	select {
	case _, open := <-events:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel was not closed")
	}
}

func TestClient_Reconnect(t *testing.T) {
	f := newFakeOBS(t, "")
	c := connect(t, f, "")
	first := c.Events()

	require.NoError(t, c.Connect(context.Background(), f.address(), ""))

	_, open := <-first
	assert.False(t, open)
	assert.NotNil(t, c.Events())
	assert.NotEqual(t, first, c.Events())
}
