package dnssd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/tobrk/lanscout/internal/logging"
	"go.uber.org/zap"
)

const (
	// DefaultWindow is the default listening window for one scan session
	DefaultWindow = 3 * time.Second

	// DefaultRetries is the default number of query retransmissions
	DefaultRetries = 2

	// DefaultRetryInterval is the default spacing between retransmissions
	DefaultRetryInterval = 1 * time.Second
)

// Transport is the consumed send/listen capability. Send transmits the
// query payload on every matching interface, listens for the whole
// window, retransmits up to retries times spaced retryInterval apart,
// and calls onPacket once per received datagram. Implementations must
// not call onPacket after Send returns, and must return promptly with
// the context error when the context is cancelled.
type Transport interface {
	Send(ctx context.Context, payload []byte, window time.Duration,
		retries int, retryInterval time.Duration,
		onPacket func(src net.Addr, data []byte)) error
}

// Options configures one scan session.
type Options struct {
	// Queries are the service or domain names to ask for
	Queries []string

	// Types are the record types requested (defaults to ptr, srv, txt)
	Types []RecordType

	// Class is the record class for outgoing questions
	Class Class

	// Window is how long the session listens for responses
	Window time.Duration

	// Retries is how many times the query is retransmitted
	Retries int

	// RetryInterval is the spacing between retransmissions
	RetryInterval time.Duration

	// Overlap allows this session to run concurrently with others
	// instead of serializing on the resolver's gate. Exclusive mode
	// keeps two sessions from sharing retry timers and receive windows
	// on the same sockets; callers that know their query sets are
	// disjoint can trade that safety for throughput.
	Overlap bool
}

// withDefaults fills in zero-valued options. A zero window stays zero:
// "listen for nothing" is a meaningful request (see resolver tests).
func (o Options) withDefaults() Options {
	if len(o.Types) == 0 {
		o.Types = DefaultTypes
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = DefaultRetryInterval
	}
	return o
}

// HostFunc is the streaming callback: it is invoked with the sender key
// and a copy of the merged host after every aggregated response.
type HostFunc func(key string, host *Host)

// Resolver coordinates scan sessions over one transport. It is created
// once and lives for the process lifetime; the gate serializing
// non-overlapped sessions belongs to the resolver, so tests get an
// independent gate per instance instead of a package-level singleton.
type Resolver struct {
	transport Transport
	gate      chan struct{}
}

// NewResolver creates a resolver over the given transport.
func NewResolver(transport Transport) *Resolver {
	return &Resolver{
		transport: transport,
		gate:      make(chan struct{}, 1),
	}
}

// Resolve runs one scan session and returns the aggregated hosts keyed
// by sender. See ResolveFunc for the full contract.
func (r *Resolver) Resolve(ctx context.Context, opts Options) (map[string]*Host, error) {
	return r.ResolveFunc(ctx, opts, nil)
}

// ResolveFunc runs one scan session, invoking fn after every merged
// response for progressive consumption, and returns the final mapping.
//
// Unless opts.Overlap is set, the session first acquires the resolver's
// gate; acquisition is cancellable and a context cancelled before the
// session starts fails immediately without sending anything. Once the
// session is running, cancellation means stop early, not discard:
// whatever was aggregated before the cancellation took effect is
// returned with a nil error. Transport failures are terminal.
func (r *Resolver) ResolveFunc(ctx context.Context, opts Options, fn HostFunc) (map[string]*Host, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	if !opts.Overlap {
		select {
		case r.gate <- struct{}{}:
			defer func() { <-r.gate }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		// The gate may have been held for a while; re-check before
		// touching the network.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	payload, err := EncodeQuery(opts.Queries, opts.Types, opts.Class)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	agg := newAggregator()
	onPacket := func(src net.Addr, data []byte) {
		msg := new(dns.Msg)
		if err := msg.Unpack(data); err != nil {
			logging.Debug("Discarding undecodable datagram",
				zap.String("src", src.String()),
				zap.Int("length", len(data)),
				zap.Error(err),
			)
			return
		}
		if !msg.Response {
			// Queries from other participants share the multicast group;
			// they are not aggregation candidates.
			return
		}
		key, merged := agg.merge(senderIP(src), firstPointerLabel(msg), hostFromResponse(msg, src))
		if fn != nil {
			fn(key, merged)
		}
	}

	logging.Debug("Starting scan session",
		zap.Strings("queries", opts.Queries),
		zap.Duration("window", opts.Window),
		zap.Int("retries", opts.Retries),
		zap.Bool("overlap", opts.Overlap),
	)

	err = r.transport.Send(ctx, payload, opts.Window, opts.Retries, opts.RetryInterval, onPacket)
	if err != nil && !isCancellation(err) {
		return nil, fmt.Errorf("transport failed: %w", err)
	}
	return agg.snapshot(), nil
}

// isCancellation reports whether the transport stopped because the
// caller asked it to rather than because it broke.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
