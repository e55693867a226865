// Package obsws implements mixer.Client for OBS Studio through the
// obs-websocket v4 JSON protocol.
//
// Requests carry a "request-type" and a unique "message-id"; responses are
// matched back to their request by id. Messages with an "update-type" are
// events. Only the events the sync layer understands are decoded, into
// mixer.VolumeChanged, mixer.MuteChanged and mixer.SceneSwitched; the rest
// are dropped at the boundary.
package obsws
