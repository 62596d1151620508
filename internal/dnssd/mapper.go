package dnssd

import (
	"net"
	"strings"

	"github.com/miekg/dns"
	"github.com/tobrk/lanscout/internal/logging"
	"go.uber.org/zap"
)

// hostFromResponse maps one decoded response packet to a Host. It always
// returns a valid (possibly mostly empty) Host; nothing in a response can
// make mapping fail.
//
// Precedence is fixed: addresses first (they decide the ID), then pointer
// records, then the first service record, then the first text record.
// Display naming is first-wins across that same order. Multiple SRV or
// TXT records in one packet beyond the first are intentionally ignored;
// that matches how senders are expected to answer and keeping it strict
// makes the limitation visible instead of papering over it.
func hostFromResponse(msg *dns.Msg, from net.Addr) *Host {
	host := NewHost()

	// Answer section first, then additionals: the section order decides
	// first-seen order for addresses and names.
	records := classifySection(msg.Answer)
	records = append(records, classifySection(msg.Extra)...)

	for _, rec := range records {
		if rec.Kind == KindAddress {
			host.addAddr(rec.Addr.String())
		}
	}
	if len(host.Addrs) > 0 {
		host.setID(host.Addrs[0])
	} else {
		host.setID(senderIP(from))
	}

	for _, rec := range records {
		if rec.Kind == KindPointer {
			host.addName(rec.Target)
			host.setName(firstLabel(rec.Target))
		}
	}

	if rec, ok := firstOfKind(records, KindService); ok {
		// NewService only fails on an empty name, which a decoded record
		// cannot have.
		if svc, err := NewService(rec.Name, rec.Port, rec.TTL); err == nil {
			host.Services[svc.Name] = svc
			host.addName(svc.Name)
			host.setName(firstLabel(svc.Name))
		}
	}

	if rec, ok := firstOfKind(records, KindText); ok {
		if txt, err := NewTextRecord(rec.Name, rec.TTL); err == nil {
			host.addName(txt.Name)
			host.setName(firstLabel(txt.Name))
			for _, entry := range rec.Entries {
				key, value := parseTextEntry(entry)
				if key == "" {
					continue
				}
				if err := txt.SetProperty(key, value); err != nil {
					// Duplicate key inside one TXT record: keep the first
					// occurrence and note the rest.
					logging.Debug("Dropping duplicate text entry",
						zap.String("record", txt.Name),
						zap.String("entry", entry),
					)
				}
			}
			host.TextRecords[txt.Name] = txt
		}
	}

	return host
}

// firstOfKind returns the first record of the given kind, if any.
func firstOfKind(records []Record, kind RecordKind) (Record, bool) {
	for _, rec := range records {
		if rec.Kind == kind {
			return rec, true
		}
	}
	return Record{}, false
}

// parseTextEntry splits one TXT entry on the first '='. An entry without
// '=' is a bare key with an absent value; blank bare keys yield "".
// Trailing NUL padding is stripped from values.
func parseTextEntry(entry string) (string, *string) {
	if idx := strings.Index(entry, "="); idx >= 0 {
		value := strings.TrimRight(entry[idx+1:], "\x00")
		return entry[:idx], &value
	}
	if strings.TrimSpace(entry) == "" {
		return "", nil
	}
	return entry, nil
}

// firstPointerLabel returns the first label of the first pointer record
// in the response, or "" when none is present. The aggregator uses it to
// decorate the sender key.
func firstPointerLabel(msg *dns.Msg) string {
	records := classifySection(msg.Answer)
	records = append(records, classifySection(msg.Extra)...)
	if rec, ok := firstOfKind(records, KindPointer); ok {
		return firstLabel(rec.Target)
	}
	return ""
}

// senderIP extracts the bare IP from a network address, dropping the port.
func senderIP(from net.Addr) string {
	switch a := from.(type) {
	case *net.UDPAddr:
		return a.IP.String()
	case *net.TCPAddr:
		return a.IP.String()
	}
	if host, _, err := net.SplitHostPort(from.String()); err == nil {
		return host
	}
	return from.String()
}
