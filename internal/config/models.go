package config

import "time"

// Registry represents the entire user configuration file.
// This stores remembered hosts, named scan profiles, and application
// preferences.
type Registry struct {
	Version     int                 `yaml:"version"`
	Hosts       map[string]*Host    `yaml:"hosts,omitempty"`    // Keyed by host ID (primary address)
	Profiles    map[string]*Profile `yaml:"profiles,omitempty"` // Named scan profiles
	Preferences *Preferences        `yaml:"preferences,omitempty"`
}

// Host represents user-defined metadata for a host seen in an earlier
// scan. This is keyed by the host ID in the Registry.
type Host struct {
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	LastAddr string    `yaml:"last_addr,omitempty"` // Last known address
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last discovery time
}

// Profile represents a named, reusable scan configuration.
type Profile struct {
	Queries       []string `yaml:"queries"`                  // Service/domain names to query
	Types         []string `yaml:"types,omitempty"`          // Record types (ptr, srv, txt, a, aaaa, any)
	WindowSecs    int      `yaml:"window_secs,omitempty"`    // Listening window in seconds
	Retries       int      `yaml:"retries,omitempty"`        // Query retransmissions
	RetryDelaySec int      `yaml:"retry_delay_s,omitempty"`  // Spacing between retransmissions
	Interfaces    []string `yaml:"interfaces,omitempty"`     // Interface name filter
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultProfile string `yaml:"default_profile,omitempty"` // Profile used when none is named
	ScanWindow     int    `yaml:"scan_window"`               // Default listening window in seconds
	RememberHosts  bool   `yaml:"remember_hosts"`            // Record discovered hosts in this file
}

// defaultProfiles returns the built-in scan profiles.
func defaultProfiles() map[string]*Profile {
	return map[string]*Profile{
		"browse": {
			Queries: []string{"_services._dns-sd._udp.local"},
		},
		"web": {
			Queries: []string{"_http._tcp.local", "_https._tcp.local"},
		},
		"media": {
			Queries: []string{"_airplay._tcp.local", "_raop._tcp.local", "_googlecast._tcp.local"},
		},
		"print": {
			Queries: []string{"_ipp._tcp.local", "_printer._tcp.local"},
		},
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:  1,
		Hosts:    make(map[string]*Host),
		Profiles: defaultProfiles(),
		Preferences: &Preferences{
			DefaultProfile: "browse",
			ScanWindow:     5,
			RememberHosts:  true,
		},
	}
}

// GetProfile retrieves a scan profile by name.
// Returns nil if the profile doesn't exist in the registry.
func (r *Registry) GetProfile(name string) *Profile {
	return r.Profiles[name]
}

// GetHost retrieves host metadata by ID.
// Returns nil if the host doesn't exist in the registry.
func (r *Registry) GetHost(id string) *Host {
	return r.Hosts[id]
}

// EnsureHost ensures a host entry exists in the registry.
// If the host doesn't exist, creates a new entry.
// Returns the host entry (existing or newly created).
func (r *Registry) EnsureHost(id string) *Host {
	if r.Hosts == nil {
		r.Hosts = make(map[string]*Host)
	}

	if host, exists := r.Hosts[id]; exists {
		return host
	}

	host := &Host{}
	r.Hosts[id] = host
	return host
}

// UpdateHostLastSeen updates the last seen timestamp and address for a host.
func (r *Registry) UpdateHostLastSeen(id, addr string) {
	host := r.EnsureHost(id)
	host.LastSeen = time.Now()
	host.LastAddr = addr
}
