package mcpsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/germanamz/mixbridge/pkg/surface"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// actionBuffer bounds how many tool calls may be queued ahead of the session.
	actionBuffer = 16
	// maxNotices is how many recent notices list_controls reports.
	maxNotices = 8
)

// Handler executes a tool with the given JSON input and returns a text result.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Tool is one MCP tool backed by the surface.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// Surface serves the mirrored controls over MCP.
type Surface struct {
	server *mcp.Server

	mu       sync.Mutex
	controls map[string]surface.Snapshot // keyed by kind/id
	status   string
	notices  []string

	actions   chan surface.Action
	closeOnce sync.Once
}

var (
	_ surface.Host           = (*Surface)(nil)
	_ surface.StatusReporter = (*Surface)(nil)
	_ surface.Notifier       = (*Surface)(nil)
)

// New creates a Surface announcing itself with the given name and version.
func New(name, version string) *Surface {
	s := &Surface{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    name,
			Version: version,
		}, nil),
		controls: make(map[string]surface.Snapshot),
		actions:  make(chan surface.Action, actionBuffer),
	}

	for _, t := range s.Tools() {
		s.register(t)
	}

	return s
}

func key(kind surface.Kind, id string) string { return kind.String() + "/" + id }

// Render implements surface.Host.
func (s *Surface) Render(snap surface.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.controls[key(snap.Kind, snap.ID)] = snap
}

// Clear implements surface.Host.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.controls = make(map[string]surface.Snapshot)
}

// SetStatus implements surface.StatusReporter.
func (s *Surface) SetStatus(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = text
}

// Notify implements surface.Notifier. Only the most recent notices are kept.
func (s *Surface) Notify(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notices = append(s.notices, text)
	if n := len(s.notices) - maxNotices; n > 0 {
		s.notices = slices.Delete(s.notices, 0, n)
	}
}

// Actions implements surface.Host. The channel closes when Serve returns.
func (s *Surface) Actions() <-chan surface.Action { return s.actions }

func (s *Surface) lookup(kind surface.Kind, id string) (surface.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.controls[key(kind, id)]
	return snap, ok
}

// emit hands an action to the session, waiting until it is taken or ctx
// ends.
func (s *Surface) emit(ctx context.Context, a surface.Action) error {
	select {
	case s.actions <- a:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeStdio answers MCP clients on the process's stdin and stdout until ctx
// ends or the client hangs up.
func (s *Surface) ServeStdio(ctx context.Context) error {
	return s.run(ctx, &mcp.StdioTransport{})
}

// run serves one client session on t. No tool call can queue actions after
// it returns.
func (s *Surface) run(ctx context.Context, t mcp.Transport) error {
	defer s.closeOnce.Do(func() { close(s.actions) })

	return s.server.Run(ctx, t)
}

// controlView is the JSON shape of a control in tool results.
type controlView struct {
	Kind   string   `json:"kind"`
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Level  *float64 `json:"level,omitempty"`
	Muted  *bool    `json:"muted,omitempty"`
	Active *bool    `json:"active,omitempty"`
}

type listResult struct {
	Status   string        `json:"status"`
	Controls []controlView `json:"controls"`
	Notices  []string      `json:"notices,omitempty"`
}

func (s *Surface) list() listResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := listResult{
		Status:   s.status,
		Controls: make([]controlView, 0, len(s.controls)),
		Notices:  slices.Clone(s.notices),
	}
	for _, snap := range s.controls {
		v := controlView{Kind: snap.Kind.String(), ID: snap.ID, Name: snap.Name}
		switch snap.Kind {
		case surface.KindLevel:
			level, muted := snap.Volume, snap.Muted
			v.Level, v.Muted = &level, &muted
		case surface.KindToggle:
			active := snap.Active
			v.Active = &active
		}
		res.Controls = append(res.Controls, v)
	}

	sort.Slice(res.Controls, func(i, j int) bool {
		a, b := res.Controls[i], res.Controls[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ID < b.ID
	})

	return res
}

// Tools returns the tools the surface registers.
func (s *Surface) Tools() []Tool {
	return []Tool{
		{
			Name:        "list_controls",
			Description: "List the mirrored mixer controls (levels and scene toggles) with their current values and the connection status.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
			Handler:     s.handleList,
		},
		{
			Name:        "set_level",
			Description: "Set the level (0.0 to 1.0) of a level control, identified by its id.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"string","description":"Control id"},"level":{"type":"number","minimum":0,"maximum":1}},"required":["id","level"]}`),
			Handler:     s.handleSetLevel,
		},
		{
			Name:        "toggle_mute",
			Description: "Toggle the mute state of a source level control.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"string","description":"Control id"}},"required":["id"]}`),
			Handler:     s.handleToggleMute,
		},
		{
			Name:        "press",
			Description: "Press a scene toggle, switching the mixer to that scene.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"string","description":"Scene toggle id"}},"required":["id"]}`),
			Handler:     s.handlePress,
		},
	}
}

type idInput struct {
	ID string `json:"id"`
}

type levelInput struct {
	ID    string   `json:"id"`
	Level *float64 `json:"level"`
}

func (s *Surface) handleList(_ context.Context, _ json.RawMessage) (string, error) {
	data, err := json.Marshal(s.list())
	if err != nil {
		return "", fmt.Errorf("list_controls: %w", err)
	}
	return string(data), nil
}

func (s *Surface) handleSetLevel(ctx context.Context, input json.RawMessage) (string, error) {
	var in levelInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("set_level: invalid input: %w", err)
	}
	if in.Level == nil {
		return "", fmt.Errorf("set_level: level is required")
	}
	if _, ok := s.lookup(surface.KindLevel, in.ID); !ok {
		return "", fmt.Errorf("set_level: unknown level control %q", in.ID)
	}

	level := surface.ClampLevel(*in.Level)
	if err := s.emit(ctx, surface.VolumeChanged{ID: in.ID, Level: level}); err != nil {
		return "", fmt.Errorf("set_level: %w", err)
	}
	return fmt.Sprintf("level of %q set to %.2f", in.ID, level), nil
}

func (s *Surface) handleToggleMute(ctx context.Context, input json.RawMessage) (string, error) {
	var in idInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("toggle_mute: invalid input: %w", err)
	}
	snap, ok := s.lookup(surface.KindLevel, in.ID)
	if !ok {
		return "", fmt.Errorf("toggle_mute: unknown level control %q", in.ID)
	}

	if err := s.emit(ctx, surface.MutePressed{ID: in.ID}); err != nil {
		return "", fmt.Errorf("toggle_mute: %w", err)
	}
	return fmt.Sprintf("mute of %q toggled (was muted: %t)", in.ID, snap.Muted), nil
}

func (s *Surface) handlePress(ctx context.Context, input json.RawMessage) (string, error) {
	var in idInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("press: invalid input: %w", err)
	}
	if _, ok := s.lookup(surface.KindToggle, in.ID); !ok {
		return "", fmt.Errorf("press: unknown toggle %q", in.ID)
	}

	if err := s.emit(ctx, surface.Pressed{ID: in.ID}); err != nil {
		return "", fmt.Errorf("press: %w", err)
	}
	return fmt.Sprintf("pressed %q", in.ID), nil
}

// register adds t to the server. Handler errors become tool results flagged
// IsError so the client sees why a control could not be moved.
func (s *Surface) register(t Tool) {
	s.server.AddTool(&mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input := req.Params.Arguments
		if len(input) == 0 {
			input = json.RawMessage("{}")
		}

		text, err := t.Handler(ctx, input)
		if err != nil {
			return textResult(err.Error(), true), nil
		}
		return textResult(text, false), nil
	})
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isError,
	}
}
