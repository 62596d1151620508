package dnssd

import (
	"fmt"
	"sort"
	"strings"
)

// Host is the aggregated view of one network participant within a single
// scan session. It accumulates across every response received from the
// same sender: addresses and domain names grow without duplicates, the
// ID and display name are set once and never overwritten, and the
// service/text maps are keyed by record name with last-writer-wins
// semantics.
type Host struct {
	// ID is the host identity: the first address record seen, or the
	// sender's network address when no address record was present.
	ID string

	// Name is the display name, taken from the first label of the first
	// named record seen (pointer before service before text).
	Name string

	// Addrs are the host's addresses in first-seen order, deduplicated.
	Addrs []string

	// Names are the domain names associated with the host in first-seen
	// order, deduplicated.
	Names []string

	// Services maps service name to the advertised service.
	Services map[string]*Service

	// TextRecords maps record name to the parsed TXT metadata.
	TextRecords map[string]*TextRecord
}

// NewHost creates an empty Host with initialized maps.
func NewHost() *Host {
	return &Host{
		Services:    make(map[string]*Service),
		TextRecords: make(map[string]*TextRecord),
	}
}

// Equal reports whether two hosts refer to the same participant: same ID
// and same primary address.
func (h *Host) Equal(other *Host) bool {
	if other == nil {
		return false
	}
	return h.ID == other.ID && h.primaryAddr() == other.primaryAddr()
}

func (h *Host) primaryAddr() string {
	if len(h.Addrs) == 0 {
		return ""
	}
	return h.Addrs[0]
}

// setID assigns the identity if it has not been assigned yet.
func (h *Host) setID(id string) {
	if h.ID == "" {
		h.ID = id
	}
}

// setName assigns the display name if it has not been assigned yet.
func (h *Host) setName(name string) {
	if h.Name == "" && name != "" {
		h.Name = name
	}
}

// addAddr appends an address unless it is already present.
func (h *Host) addAddr(addr string) {
	for _, a := range h.Addrs {
		if a == addr {
			return
		}
	}
	h.Addrs = append(h.Addrs, addr)
}

// addName appends a domain name unless it is already present.
func (h *Host) addName(name string) {
	for _, n := range h.Names {
		if n == name {
			return
		}
	}
	h.Names = append(h.Names, name)
}

// merge folds another host (one mapped response) into this one. ID and
// display name keep their first assignment; addresses and names
// accumulate; a service or text record with an already-known name
// replaces the earlier one.
func (h *Host) merge(other *Host) {
	h.setID(other.ID)
	h.setName(other.Name)
	for _, a := range other.Addrs {
		h.addAddr(a)
	}
	for _, n := range other.Names {
		h.addName(n)
	}
	for name, svc := range other.Services {
		h.Services[name] = svc
	}
	for name, txt := range other.TextRecords {
		h.TextRecords[name] = txt
	}
}

// clone returns a deep copy that is safe to hand to callers while the
// original keeps mutating under the aggregator lock. Services and
// TextRecords are immutable once constructed, so sharing the pointers
// is fine; the maps and slices themselves are copied.
func (h *Host) clone() *Host {
	c := &Host{
		ID:          h.ID,
		Name:        h.Name,
		Addrs:       append([]string(nil), h.Addrs...),
		Names:       append([]string(nil), h.Names...),
		Services:    make(map[string]*Service, len(h.Services)),
		TextRecords: make(map[string]*TextRecord, len(h.TextRecords)),
	}
	for name, svc := range h.Services {
		c.Services[name] = svc
	}
	for name, txt := range h.TextRecords {
		c.TextRecords[name] = txt
	}
	return c
}

// String returns a compact one-line summary of the host.
func (h *Host) String() string {
	services := make([]string, 0, len(h.Services))
	for name := range h.Services {
		services = append(services, name)
	}
	sort.Strings(services)
	return fmt.Sprintf("%s (%s) addrs=%v services=[%s]",
		h.ID, h.Name, h.Addrs, strings.Join(services, ", "))
}

// Service is one advertised service endpoint. Immutable once constructed.
type Service struct {
	// Name is the owning name of the service record
	Name string

	// Port is the advertised port number
	Port uint16

	// TTL is the record time-to-live in seconds
	TTL uint32
}

// NewService constructs a Service. The name is required.
func NewService(name string, port uint16, ttl uint32) (*Service, error) {
	if name == "" {
		return nil, fmt.Errorf("service name must not be empty")
	}
	return &Service{Name: name, Port: port, TTL: ttl}, nil
}

// TextRecord is the parsed metadata of one TXT record. Properties map
// keys to optional values: a nil value means the entry carried no '='.
type TextRecord struct {
	// Name is the owning name of the text record
	Name string

	// TTL is the record time-to-live in seconds
	TTL uint32

	// Properties maps entry key to entry value (nil when absent)
	Properties map[string]*string
}

// NewTextRecord constructs an empty TextRecord. The name is required.
func NewTextRecord(name string, ttl uint32) (*TextRecord, error) {
	if name == "" {
		return nil, fmt.Errorf("text record name must not be empty")
	}
	return &TextRecord{
		Name:       name,
		TTL:        ttl,
		Properties: make(map[string]*string),
	}, nil
}

// SetProperty adds one property. A blank key or a key already present in
// this record is a caller error: duplicates fail loudly instead of
// silently overwriting.
func (t *TextRecord) SetProperty(key string, value *string) error {
	if key == "" {
		return fmt.Errorf("text record %q: property key must not be empty", t.Name)
	}
	if _, exists := t.Properties[key]; exists {
		return fmt.Errorf("text record %q: duplicate property key %q", t.Name, key)
	}
	t.Properties[key] = value
	return nil
}

// Get returns the value for a key and whether the key exists. A present
// key with an absent value yields ("", true).
func (t *TextRecord) Get(key string) (string, bool) {
	value, ok := t.Properties[key]
	if !ok {
		return "", false
	}
	if value == nil {
		return "", true
	}
	return *value, true
}
