// Package config provides user configuration management for lanscout.
//
// This package manages a YAML-based configuration file that stores
// remembered hosts from earlier scans, named scan profiles, and
// application preferences. The configuration follows OS-specific
// conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/lanscout/config.yaml or $HOME/.config/lanscout/config.yaml
//   - macOS: $HOME/.config/lanscout/config.yaml
//   - Windows: %LOCALAPPDATA%\lanscout\config.yaml
//
// # Scan Profiles
//
// Profiles bundle a query set with scan parameters so common scans can
// be run by name. A handful of built-in profiles (browse, web, media,
// print) are created on first use and can be edited freely.
//
// # Usage Example
//
//	// Load the global registry
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Record a discovered host
//	registry.UpdateHostLastSeen("192.168.1.50", "192.168.1.50")
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
