package dnssd

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePacket is one canned datagram the fake transport replays.
type fakePacket struct {
	src  net.Addr
	data []byte
}

// span records when one Send call entered and left its transport phase.
type span struct {
	enter, exit time.Time
}

// fakeTransport replays canned packets and optionally holds the
// transport phase open so tests can observe serialization and
// cancellation behavior.
type fakeTransport struct {
	mu      sync.Mutex
	packets []fakePacket
	hold    time.Duration // keeps Send running after delivery
	err     error         // returned immediately when set
	spans   []span
	calls   int
}

func (f *fakeTransport) Send(ctx context.Context, payload []byte, window time.Duration,
	retries int, retryInterval time.Duration,
	onPacket func(src net.Addr, data []byte)) error {

	f.mu.Lock()
	f.calls++
	enter := time.Now()
	packets := f.packets
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.spans = append(f.spans, span{enter: enter, exit: time.Now()})
		f.mu.Unlock()
	}()

	if f.err != nil {
		return f.err
	}

	for _, p := range packets {
		onPacket(p.src, p.data)
	}

	if f.hold > 0 {
		select {
		case <-time.After(f.hold):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func packedResponse(t *testing.T, answer, extra []dns.RR) []byte {
	t.Helper()
	data, err := response(answer, extra).Pack()
	require.NoError(t, err)
	return data
}

func TestResolver_EmptyWindowReturnsEmptyMapping(t *testing.T) {
	resolver := NewResolver(&fakeTransport{})

	hosts, err := resolver.Resolve(context.Background(), Options{
		Queries: []string{"_http._tcp.local"},
		Window:  0,
		Retries: 0,
	})

	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestResolver_AggregatesScenario(t *testing.T) {
	// Three datagrams: a pointer-only answer and a service answer from
	// the same sender, and an address-only answer from another sender.
	ft := &fakeTransport{packets: []fakePacket{
		{src: udpAddr("10.0.0.5"), data: packedResponse(t,
			[]dns.RR{ptrRecord("_http._tcp.local.", "printer._http._tcp.local.")}, nil)},
		{src: udpAddr("10.0.0.5"), data: packedResponse(t,
			[]dns.RR{srvRecord("printer._http._tcp.local.", 9100)}, nil)},
		{src: udpAddr("10.0.0.9"), data: packedResponse(t,
			[]dns.RR{aRecord("camera.local.", "10.0.0.9")}, nil)},
	}}
	resolver := NewResolver(ft)

	hosts, err := resolver.Resolve(context.Background(), Options{
		Queries: []string{"_http._tcp.local"},
		Window:  time.Second,
	})
	require.NoError(t, err)
	require.Len(t, hosts, 2)

	printer := hosts["10.0.0.5: printer"]
	require.NotNil(t, printer, "keys: %v", hosts)
	assert.Equal(t, "printer", printer.Name)
	assert.Equal(t, "10.0.0.5", printer.ID)
	assert.Len(t, printer.Names, 1)
	require.Contains(t, printer.Services, "printer._http._tcp.local.")
	assert.Equal(t, uint16(9100), printer.Services["printer._http._tcp.local."].Port)
	assert.Empty(t, printer.TextRecords)

	camera := hosts["10.0.0.9"]
	require.NotNil(t, camera)
	assert.Equal(t, "10.0.0.9", camera.ID)
	assert.Equal(t, []string{"10.0.0.9"}, camera.Addrs)
	assert.Empty(t, camera.Services)
	assert.Empty(t, camera.TextRecords)
}

func TestResolver_DiscardsQueriesAndGarbage(t *testing.T) {
	query := new(dns.Msg)
	query.SetQuestion("_http._tcp.local.", dns.TypePTR)
	queryBytes, err := query.Pack()
	require.NoError(t, err)

	ft := &fakeTransport{packets: []fakePacket{
		{src: udpAddr("10.0.0.5"), data: queryBytes},
		{src: udpAddr("10.0.0.6"), data: []byte{0xde, 0xad}},
	}}
	resolver := NewResolver(ft)

	hosts, err := resolver.Resolve(context.Background(), Options{Queries: []string{"_http._tcp.local"}})
	require.NoError(t, err)
	assert.Empty(t, hosts, "queries and undecodable datagrams are not aggregation candidates")
}

func TestResolver_StreamsMergedHosts(t *testing.T) {
	ft := &fakeTransport{packets: []fakePacket{
		{src: udpAddr("10.0.0.5"), data: packedResponse(t,
			[]dns.RR{ptrRecord("_http._tcp.local.", "printer._http._tcp.local.")}, nil)},
		{src: udpAddr("10.0.0.5"), data: packedResponse(t,
			[]dns.RR{srvRecord("printer._http._tcp.local.", 9100)}, nil)},
	}}
	resolver := NewResolver(ft)

	var mu sync.Mutex
	var keys []string
	_, err := resolver.ResolveFunc(context.Background(), Options{Queries: []string{"_http._tcp.local"}},
		func(key string, host *Host) {
			mu.Lock()
			defer mu.Unlock()
			keys = append(keys, key)
			require.NotNil(t, host)
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.5: printer", "10.0.0.5: printer"}, keys,
		"one callback per merged datagram")
}

func TestResolver_TransportFailureIsTerminal(t *testing.T) {
	ft := &fakeTransport{err: errors.New("no multicast-capable interface available")}
	resolver := NewResolver(ft)

	_, err := resolver.Resolve(context.Background(), Options{Queries: []string{"_http._tcp.local"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport failed")
}

func TestResolver_CancelledBeforeStart(t *testing.T) {
	ft := &fakeTransport{}
	resolver := NewResolver(ft)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := resolver.Resolve(ctx, Options{Queries: []string{"_http._tcp.local"}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ft.callCount(), "no packet may be sent after pre-start cancellation")
}

func TestResolver_CancelMidSessionKeepsPartialResults(t *testing.T) {
	ft := &fakeTransport{
		packets: []fakePacket{
			{src: udpAddr("10.0.0.5"), data: packedResponse(t,
				[]dns.RR{aRecord("box.local.", "10.0.0.5")}, nil)},
		},
		hold: 5 * time.Second,
	}
	resolver := NewResolver(ft)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	hosts, err := resolver.Resolve(ctx, Options{Queries: []string{"_http._tcp.local"}, Window: 5 * time.Second})

	require.NoError(t, err, "cancellation is stop early, not an error")
	assert.Less(t, time.Since(start), time.Second, "cancellation must take effect promptly")
	require.Len(t, hosts, 1, "results aggregated before cancellation are kept")
	assert.Equal(t, "10.0.0.5", hosts["10.0.0.5"].ID)
}

func TestResolver_NonOverlappedSessionsSerialize(t *testing.T) {
	ft := &fakeTransport{hold: 60 * time.Millisecond}
	resolver := NewResolver(ft)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := resolver.Resolve(context.Background(), Options{
				Queries: []string{"_http._tcp.local"},
				Window:  60 * time.Millisecond,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ft.mu.Lock()
	defer ft.mu.Unlock()
	require.Len(t, ft.spans, 3)
	for i := 0; i < len(ft.spans); i++ {
		for j := i + 1; j < len(ft.spans); j++ {
			a, b := ft.spans[i], ft.spans[j]
			overlap := a.enter.Before(b.exit) && b.enter.Before(a.exit)
			assert.False(t, overlap, "non-overlapped sessions %d and %d ran concurrently", i, j)
		}
	}
}

func TestResolver_OverlappedSessionsRunConcurrently(t *testing.T) {
	ft := &fakeTransport{hold: 150 * time.Millisecond}
	resolver := NewResolver(ft)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := resolver.Resolve(context.Background(), Options{
				Queries: []string{"_http._tcp.local"},
				Window:  150 * time.Millisecond,
				Overlap: true,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ft.mu.Lock()
	defer ft.mu.Unlock()
	require.Len(t, ft.spans, 2)
	a, b := ft.spans[0], ft.spans[1]
	assert.True(t, a.enter.Before(b.exit) && b.enter.Before(a.exit),
		"overlapped sessions should share the transport phase")
}

func TestResolver_IndependentGatesPerResolver(t *testing.T) {
	// Two resolvers serialize independently: a session on one must not
	// block a session on the other.
	slow := &fakeTransport{hold: 200 * time.Millisecond}
	fast := &fakeTransport{}

	blocked := NewResolver(slow)
	free := NewResolver(fast)

	done := make(chan struct{})
	go func() {
		_, _ = blocked.Resolve(context.Background(), Options{Queries: []string{"a.local"}, Window: 200 * time.Millisecond})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	start := time.Now()
	_, err := free.Resolve(context.Background(), Options{Queries: []string{"b.local"}})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	<-done
}

func TestResolver_Idempotence(t *testing.T) {
	packets := []fakePacket{
		{src: udpAddr("10.0.0.5"), data: packedResponse(t,
			[]dns.RR{
				ptrRecord("_http._tcp.local.", "printer._http._tcp.local."),
				srvRecord("printer._http._tcp.local.", 9100),
				txtRecord("printer._http._tcp.local.", "path=/", "model=X1"),
			},
			[]dns.RR{aRecord("printer.local.", "10.0.0.5")})},
	}
	resolver := NewResolver(&fakeTransport{packets: packets})

	opts := Options{Queries: []string{"_http._tcp.local"}, Window: time.Second}
	first, err := resolver.Resolve(context.Background(), opts)
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	for key, host := range first {
		other := second[key]
		require.NotNil(t, other)
		assert.True(t, host.Equal(other))
		assert.Equal(t, host.Addrs, other.Addrs)
		assert.Equal(t, host.Names, other.Names)
		assert.Equal(t, host.Services, other.Services)
		assert.Equal(t, host.TextRecords, other.TextRecords)
	}
}
