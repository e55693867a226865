// Package mixer describes the remote audio mixer as the synchronization core
// sees it: sources, audio-monitor filters and scenes, the request/response
// Client used to read and change them, the push Events the mixer emits, and
// the Command values local controls turn into.
//
// Concrete transports (see package obsws) decode their wire payloads into the
// Event variants defined here so the core never inspects open-ended shapes.
package mixer
