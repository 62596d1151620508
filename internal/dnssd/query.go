package dnssd

import (
	"fmt"

	"github.com/miekg/dns"
)

// RecordType selects which record shapes a query asks for. The values
// double as CLI flag spellings.
type RecordType string

const (
	TypePointer RecordType = "ptr"
	TypeService RecordType = "srv"
	TypeText    RecordType = "txt"
	TypeAddr    RecordType = "a"
	TypeAddr6   RecordType = "aaaa"
	TypeAny     RecordType = "any"
)

// DefaultTypes is the record-type set used when a caller asks for nothing
// specific: the three shapes DNS-SD browsing is built from.
var DefaultTypes = []RecordType{TypePointer, TypeService, TypeText}

// qtype maps a RecordType to the wire-level query type. Unrecognized
// types fall back to the ANY wildcard rather than failing.
func (t RecordType) qtype() uint16 {
	switch t {
	case TypePointer:
		return dns.TypePTR
	case TypeService:
		return dns.TypeSRV
	case TypeText:
		return dns.TypeTXT
	case TypeAddr:
		return dns.TypeA
	case TypeAddr6:
		return dns.TypeAAAA
	default:
		return dns.TypeANY
	}
}

// Class selects the record class for outgoing questions.
type Class int

const (
	// ClassInternet is the standard IN class
	ClassInternet Class = iota

	// ClassAny is the wildcard class
	ClassAny
)

func (c Class) qclass() uint16 {
	if c == ClassAny {
		return dns.ClassANY
	}
	return dns.ClassINET
}

// EncodeQuery builds the wire-format multicast query: one question per
// (query string x record type) combination, in the order given. Question
// order only matters for reproducibility, not semantics. The encoder
// performs no I/O and fails only if the underlying codec rejects the
// message.
func EncodeQuery(queries []string, types []RecordType, class Class) ([]byte, error) {
	msg := new(dns.Msg)
	msg.RecursionDesired = false

	for _, q := range queries {
		for _, t := range types {
			msg.Question = append(msg.Question, dns.Question{
				Name:   dns.Fqdn(q),
				Qtype:  t.qtype(),
				Qclass: class.qclass(),
			})
		}
	}

	payload, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("failed to pack query: %w", err)
	}
	return payload, nil
}
