// Package tui implements the interactive browse view.
//
// The view runs one scan session through the dnssd resolver's streaming
// variant and appends hosts to a filterable list as their first
// responses are aggregated, with a spinner while the listening window is
// open. Rescanning reuses the same resolver, so non-overlapped sessions
// stay serialized with any other scans in the process.
//
// Built on bubbletea with the bubbles list/spinner components and
// lipgloss styling.
package tui
