// Package transport implements the multicast UDP transport consumed by
// the dnssd resolver.
//
// A Multicast transport joins the mDNS groups (224.0.0.251 and ff02::fb,
// port 5353) on every up, multicast-capable interface, or on a
// configured subset. Each Send call opens its own sockets, transmits the
// query payload on every interface, retransmits on the configured
// schedule, and feeds every datagram received inside the listening
// window to the caller's callback. The callback runs on the calling
// goroutine and never after Send has returned.
//
// The transport moves bytes only: decoding, response filtering and
// aggregation belong to the dnssd package.
package transport
