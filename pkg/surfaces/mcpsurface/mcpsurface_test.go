package mcpsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/germanamz/mixbridge/pkg/surface"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient connects an SDK client to s via in-memory transports. The
// server runs in a background goroutine tied to t.Cleanup.
func setupTestClient(t *testing.T, s *Surface) *mcp.ClientSession {
	t.Helper()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- s.run(ctx, serverTransport)
	}()
	t.Cleanup(func() {
		cancel()
		<-serverDone
	})

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

func newSurface() *Surface {
	s := New("mixbridge-test", "1.0.0")
	s.Render(surface.Snapshot{Kind: surface.KindLevel, ID: "Mic", Name: "Mic", Volume: 0.8, Muted: true})
	s.Render(surface.Snapshot{Kind: surface.KindLevel, ID: "Desktop", Name: "Desktop", Volume: 0.5})
	s.Render(surface.Snapshot{Kind: surface.KindToggle, ID: "A", Name: "A", Active: true})
	s.Render(surface.Snapshot{Kind: surface.KindToggle, ID: "B", Name: "B"})
	return s
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) *mcp.CallToolResult {
	t.Helper()

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()

	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func nextAction(t *testing.T, s *Surface) surface.Action {
	t.Helper()

	select {
	case a := <-s.Actions():
		return a
	case <-time.After(time.Second):
		t.Fatal("no action emitted")
		return nil
	}
}

func TestListTools(t *testing.T) {
	session := setupTestClient(t, New("srv", "1.0.0"))

	result, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"list_controls", "set_level", "toggle_mute", "press"}, names)
}

func TestListControls(t *testing.T) {
	s := newSurface()
	s.SetStatus("Connected")
	session := setupTestClient(t, s)

	res := callTool(t, session, "list_controls", map[string]any{})
	assert.False(t, res.IsError)

	var got listResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	assert.Equal(t, "Connected", got.Status)
	require.Len(t, got.Controls, 4)

	assert.Equal(t, "level", got.Controls[0].Kind)
	assert.Equal(t, "Desktop", got.Controls[0].ID)
	assert.Equal(t, "Mic", got.Controls[1].ID)
	require.NotNil(t, got.Controls[1].Level)
	assert.InDelta(t, 0.8, *got.Controls[1].Level, 1e-9)
	require.NotNil(t, got.Controls[1].Muted)
	assert.True(t, *got.Controls[1].Muted)
	assert.Nil(t, got.Controls[1].Active)

	assert.Equal(t, "toggle", got.Controls[2].Kind)
	assert.Equal(t, "A", got.Controls[2].ID)
	require.NotNil(t, got.Controls[2].Active)
	assert.True(t, *got.Controls[2].Active)
	assert.Nil(t, got.Controls[2].Level)
}

func TestListControlsAfterClear(t *testing.T) {
	s := newSurface()
	s.Clear()
	session := setupTestClient(t, s)

	res := callTool(t, session, "list_controls", map[string]any{})

	var got listResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	assert.Empty(t, got.Controls)
}

func TestListControlsReportsNotices(t *testing.T) {
	s := newSurface()
	for i := range maxNotices + 2 {
		s.Notify(fmt.Sprintf("notice %d", i))
	}
	session := setupTestClient(t, s)

	res := callTool(t, session, "list_controls", map[string]any{})

	var got listResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	require.Len(t, got.Notices, maxNotices)
	assert.Equal(t, "notice 2", got.Notices[0])
	assert.Equal(t, fmt.Sprintf("notice %d", maxNotices+1), got.Notices[maxNotices-1])
}

func TestRenderReplacesSnapshot(t *testing.T) {
	s := newSurface()
	s.Render(surface.Snapshot{Kind: surface.KindLevel, ID: "Mic", Name: "Mic", Volume: 0.2})

	snap, ok := s.lookup(surface.KindLevel, "Mic")
	require.True(t, ok)
	assert.InDelta(t, 0.2, snap.Volume, 1e-9)
	assert.False(t, snap.Muted)
}

func TestSetLevel(t *testing.T) {
	s := newSurface()
	session := setupTestClient(t, s)

	res := callTool(t, session, "set_level", map[string]any{"id": "Mic", "level": 0.25})
	assert.False(t, res.IsError, text(t, res))

	assert.Equal(t, surface.VolumeChanged{ID: "Mic", Level: 0.25}, nextAction(t, s))
}

func TestSetLevelClamps(t *testing.T) {
	s := newSurface()
	session := setupTestClient(t, s)

	res := callTool(t, session, "set_level", map[string]any{"id": "Mic", "level": 3})
	assert.False(t, res.IsError, text(t, res))

	assert.Equal(t, surface.VolumeChanged{ID: "Mic", Level: 1}, nextAction(t, s))
}

func TestSetLevelErrors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"unknown control", map[string]any{"id": "Nope", "level": 0.5}, "unknown level control"},
		{"toggle id", map[string]any{"id": "A", "level": 0.5}, "unknown level control"},
		{"missing level", map[string]any{"id": "Mic"}, "level is required"},
	}

	s := newSurface()
	session := setupTestClient(t, s)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, session, "set_level", tt.args)
			assert.True(t, res.IsError)
			assert.Contains(t, text(t, res), tt.want)
		})
	}

	assert.Empty(t, s.Actions())
}

func TestToggleMute(t *testing.T) {
	s := newSurface()
	session := setupTestClient(t, s)

	res := callTool(t, session, "toggle_mute", map[string]any{"id": "Mic"})
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "was muted: true")

	assert.Equal(t, surface.MutePressed{ID: "Mic"}, nextAction(t, s))
}

func TestToggleMuteUnknown(t *testing.T) {
	s := newSurface()
	session := setupTestClient(t, s)

	res := callTool(t, session, "toggle_mute", map[string]any{"id": "B"})
	assert.True(t, res.IsError)
	assert.Empty(t, s.Actions())
}

func TestPress(t *testing.T) {
	s := newSurface()
	session := setupTestClient(t, s)

	res := callTool(t, session, "press", map[string]any{"id": "B"})
	assert.False(t, res.IsError)

	assert.Equal(t, surface.Pressed{ID: "B"}, nextAction(t, s))
}

func TestPressUnknown(t *testing.T) {
	s := newSurface()
	session := setupTestClient(t, s)

	res := callTool(t, session, "press", map[string]any{"id": "Mic"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "unknown toggle")
}

func TestEmitRespectsContext(t *testing.T) {
	s := New("srv", "1.0.0")
	for range actionBuffer {
		require.NoError(t, s.emit(context.Background(), surface.Pressed{ID: "A"}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.emit(ctx, surface.Pressed{ID: "A"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunClosesActions(t *testing.T) {
	s := New("srv", "1.0.0")
	serverTransport, _ := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = s.run(ctx, serverTransport)

	_, ok := <-s.Actions()
	assert.False(t, ok)
}
