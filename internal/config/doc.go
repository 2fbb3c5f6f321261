// Package config loads engine configuration: source priorities,
// autocomplete trigger events, confirm behavior, and the keymap file.
//
// The main configuration is TOML; keymaps load from a YAML file it
// points at. Watch provides fsnotify-based hot reload with debouncing,
// so priority changes apply without restarting the host.
package config
