// Package config loads mixbridge configuration from YAML, resolves the
// per-user configuration directory and watches the config file so the
// session can reconnect when it changes.
package config
