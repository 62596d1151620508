package dnssd

import "sync"

// aggregator is the session-scoped, thread-safe collection of hosts.
// Entries are stored by sender address so every datagram from one sender
// lands on the same host regardless of which records it happens to
// carry; the reported sender key is the address decorated with the first
// pointer label once one is known. Transport listeners may deliver
// datagrams concurrently (one receive loop per interface), so every
// merge runs under one coarse lock. Response volumes are tens of
// senders, not millions; fine-grained locking would buy nothing here.
type aggregator struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	key  string // reported sender key, decorated at most once
	host *Host
}

func newAggregator() *aggregator {
	return &aggregator{entries: make(map[string]*entry)}
}

// merge folds one mapped response into the host for the given sender
// address, creating the entry on first sight, and returns the sender key
// with a copy of the merged host that is safe to hand out. A non-empty
// pointer label decorates the key on its first appearance and sticks
// for the rest of the session.
func (a *aggregator) merge(addr, ptrLabel string, mapped *Host) (string, *Host) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[addr]
	if !ok {
		e = &entry{key: addr, host: NewHost()}
		a.entries[addr] = e
	}
	if ptrLabel != "" && e.key == addr {
		e.key = addr + ": " + ptrLabel
	}
	e.host.merge(mapped)
	return e.key, e.host.clone()
}

// snapshot returns a deep copy of the accumulated mapping, keyed by
// sender key.
func (a *aggregator) snapshot() map[string]*Host {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]*Host, len(a.entries))
	for _, e := range a.entries {
		out[e.key] = e.host.clone()
	}
	return out
}
