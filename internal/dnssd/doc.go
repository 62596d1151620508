// Package dnssd implements the client-side resolution and aggregation
// engine for multicast DNS service discovery.
//
// The engine broadcasts a query built from a set of service or domain
// names and collects the responses that arrive from an unknown number of
// senders over a bounded window. Responses from one sender are
// reconciled into a single Host entity: address records decide the
// identity, pointer records contribute domain names, and the first
// service and text records contribute the port and metadata facets.
//
// # Sessions
//
// One call to Resolver.Resolve is one scan session. Sessions serialize
// on the resolver's gate by default so two scans never share retry
// timers and receive windows on the same sockets; Options.Overlap opts
// a session out of that serialization.
//
//	resolver := dnssd.NewResolver(transport.NewMulticast())
//	hosts, err := resolver.Resolve(ctx, dnssd.Options{
//	    Queries: []string{"_http._tcp.local"},
//	    Window:  5 * time.Second,
//	    Retries: 2,
//	})
//
// ResolveFunc additionally streams each merged host to a callback as
// responses arrive, for progressive display.
//
// # Reliability
//
// Discovery over a broadcast medium is best effort. Malformed datagrams
// and stray queries on the multicast group are discarded silently;
// cancelling a running session returns what was aggregated so far
// rather than discarding it. Only transport-level failures surface as
// errors.
//
// The wire codec is github.com/miekg/dns; the multicast socket handling
// lives in the transport package behind the Transport interface.
package dnssd
