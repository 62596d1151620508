package dnssd

import (
	"net"
	"strings"

	"github.com/miekg/dns"
)

// RecordKind identifies the protocol record shapes the engine consumes.
// Anything outside the four DNS-SD shapes is classified as KindOther and
// ignored by the mapper.
type RecordKind int

const (
	KindOther RecordKind = iota
	KindAddress
	KindPointer
	KindService
	KindText
)

// String returns a human-readable name for the record kind
func (k RecordKind) String() string {
	switch k {
	case KindAddress:
		return "address"
	case KindPointer:
		return "pointer"
	case KindService:
		return "service"
	case KindText:
		return "text"
	default:
		return "other"
	}
}

// Record is a decoded resource record reduced to the fields the mapper
// needs. Exactly one of the payload fields is meaningful, selected by Kind:
//   - KindAddress: Addr
//   - KindPointer: Target
//   - KindService: Port
//   - KindText:    Entries
type Record struct {
	Kind RecordKind

	// Name is the owning name of the record
	Name string

	// TTL is the record time-to-live in seconds
	TTL uint32

	Addr    net.IP
	Target  string
	Port    uint16
	Entries []string
}

// classifyRecord converts a wire-level resource record into the engine's
// tagged representation. A and AAAA both map to KindAddress.
func classifyRecord(rr dns.RR) Record {
	hdr := rr.Header()
	rec := Record{
		Kind: KindOther,
		Name: hdr.Name,
		TTL:  hdr.Ttl,
	}

	switch v := rr.(type) {
	case *dns.A:
		rec.Kind = KindAddress
		rec.Addr = v.A
	case *dns.AAAA:
		rec.Kind = KindAddress
		rec.Addr = v.AAAA
	case *dns.PTR:
		rec.Kind = KindPointer
		rec.Target = v.Ptr
	case *dns.SRV:
		rec.Kind = KindService
		rec.Port = v.Port
	case *dns.TXT:
		rec.Kind = KindText
		rec.Entries = v.Txt
	}

	return rec
}

// classifySection converts a whole record section, preserving order.
func classifySection(rrs []dns.RR) []Record {
	records := make([]Record, 0, len(rrs))
	for _, rr := range rrs {
		records = append(records, classifyRecord(rr))
	}
	return records
}

// firstLabel returns the leading label of a domain name, i.e. everything
// before the first dot. Used to derive display names from PTR/SRV/TXT
// owning names (e.g. "printer._http._tcp.local." -> "printer").
func firstLabel(name string) string {
	if idx := strings.Index(name, "."); idx >= 0 {
		return name[:idx]
	}
	return name
}
