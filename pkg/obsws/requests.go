package obsws

import (
	"context"

	"github.com/germanamz/mixbridge/pkg/mixer"
)

// Sources implements mixer.Client.
func (c *Client) Sources(ctx context.Context) ([]mixer.Source, error) {
	var resp sourcesListResponse
	if err := c.request(ctx, reqGetSourcesList, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]mixer.Source, 0, len(resp.Sources))
	for _, s := range resp.Sources {
		out = append(out, mixer.Source{Name: s.Name, Kind: s.TypeID})
	}
	return out, nil
}

// Volume implements mixer.Client.
func (c *Client) Volume(ctx context.Context, source string) (float64, error) {
	var resp volumeResponse
	if err := c.request(ctx, reqGetVolume, map[string]any{"source": source}, &resp); err != nil {
		return 0, err
	}
	return resp.Volume, nil
}

// Muted implements mixer.Client.
func (c *Client) Muted(ctx context.Context, source string) (bool, error) {
	var resp muteResponse
	if err := c.request(ctx, reqGetMute, map[string]any{"source": source}, &resp); err != nil {
		return false, err
	}
	return resp.Muted, nil
}

// SetVolume implements mixer.Client.
func (c *Client) SetVolume(ctx context.Context, source string, volume float64) error {
	return c.request(ctx, reqSetVolume, map[string]any{
		"source": source,
		"volume": volume,
	}, nil)
}

// SetMute implements mixer.Client.
func (c *Client) SetMute(ctx context.Context, source string, muted bool) error {
	return c.request(ctx, reqSetMute, map[string]any{
		"source": source,
		"mute":   muted,
	}, nil)
}

// Filters implements mixer.Client.
func (c *Client) Filters(ctx context.Context, source string) ([]mixer.Filter, error) {
	var resp filtersResponse
	if err := c.request(ctx, reqGetSourceFilters, map[string]any{"sourceName": source}, &resp); err != nil {
		return nil, err
	}

	out := make([]mixer.Filter, 0, len(resp.Filters))
	for _, f := range resp.Filters {
		out = append(out, mixer.Filter{
			Name:     f.Name,
			Kind:     f.Type,
			Enabled:  f.Enabled,
			Settings: f.Settings,
		})
	}
	return out, nil
}

// SetFilterSettings implements mixer.Client.
func (c *Client) SetFilterSettings(ctx context.Context, source, filter string, settings map[string]any) error {
	return c.request(ctx, reqSetSourceFilterSettings, map[string]any{
		"sourceName":     source,
		"filterName":     filter,
		"filterSettings": settings,
	}, nil)
}

// Scenes implements mixer.Client.
func (c *Client) Scenes(ctx context.Context) (mixer.SceneList, error) {
	var resp sceneListResponse
	if err := c.request(ctx, reqGetSceneList, nil, &resp); err != nil {
		return mixer.SceneList{}, err
	}

	list := mixer.SceneList{Current: resp.CurrentScene}
	for _, s := range resp.Scenes {
		list.Scenes = append(list.Scenes, mixer.Scene{Name: s.Name})
	}
	return list, nil
}

// SetCurrentScene implements mixer.Client.
func (c *Client) SetCurrentScene(ctx context.Context, scene string) error {
	return c.request(ctx, reqSetCurrentScene, map[string]any{"scene-name": scene}, nil)
}
