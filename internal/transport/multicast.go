package transport

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/tobrk/lanscout/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

var (
	// mdnsGroupIPv4 is the IPv4 mDNS multicast group
	mdnsGroupIPv4 = net.ParseIP("224.0.0.251")

	// mdnsGroupIPv6 is the IPv6 mDNS multicast group
	mdnsGroupIPv6 = net.ParseIP("ff02::fb")

	mdnsWildcardAddrIPv4 = &net.UDPAddr{IP: net.ParseIP("224.0.0.0"), Port: 5353}
	mdnsWildcardAddrIPv6 = &net.UDPAddr{IP: net.ParseIP("ff02::"), Port: 5353}

	ipv4Addr = &net.UDPAddr{IP: mdnsGroupIPv4, Port: 5353}
	ipv6Addr = &net.UDPAddr{IP: mdnsGroupIPv6, Port: 5353}
)

// Config controls which sockets a Multicast transport opens.
type Config struct {
	// Interfaces restricts the transport to interfaces with these names.
	// Empty means every up, multicast-capable interface.
	Interfaces []string

	// DisableIPv4 skips the IPv4 socket
	DisableIPv4 bool

	// DisableIPv6 skips the IPv6 socket
	DisableIPv6 bool
}

// Multicast sends queries to the mDNS multicast groups and listens for
// responses on every matching interface. Each Send call owns its own
// sockets, so concurrent sessions do not share receive state.
type Multicast struct {
	config Config
}

// NewMulticast creates a multicast transport. The zero Config uses all
// interfaces and both address families.
func NewMulticast(config Config) *Multicast {
	return &Multicast{config: config}
}

// packet is one received datagram with its sender.
type packet struct {
	src  net.Addr
	data []byte
}

// Send transmits the payload to the multicast groups, listens for the
// whole window, and retransmits up to retries times spaced retryInterval
// apart. onPacket runs on the calling goroutine, once per datagram, and
// never after Send returns. Cancellation stops the window early and is
// reported as the context's error.
func (m *Multicast) Send(ctx context.Context, payload []byte, window time.Duration,
	retries int, retryInterval time.Duration,
	onPacket func(src net.Addr, data []byte)) error {

	ifaces, err := m.interfaces()
	if err != nil {
		return err
	}

	conns, err := openConns(ifaces, m.config)
	if err != nil {
		return err
	}

	packets := make(chan packet, 32)
	shutdown := make(chan struct{})
	var wg sync.WaitGroup
	conns.receive(packets, shutdown, &wg)

	// Stop the receive loops before returning so no callback can fire
	// after completion.
	stop := func() {
		close(shutdown)
		conns.close()
		wg.Wait()
	}

	if err := conns.write(payload, ifaces); err != nil {
		stop()
		return err
	}

	deadline := time.NewTimer(window)
	defer deadline.Stop()

	var retryC <-chan time.Time
	if retries > 0 {
		ticker := time.NewTicker(retryInterval)
		defer ticker.Stop()
		retryC = ticker.C
	}
	remaining := retries

	for {
		select {
		case p := <-packets:
			onPacket(p.src, p.data)
		case <-retryC:
			if remaining > 0 {
				remaining--
				if err := conns.write(payload, ifaces); err != nil {
					logging.Warn("Query retransmission failed", zap.Error(err))
				}
			}
		case <-deadline.C:
			stop()
			return nil
		case <-ctx.Done():
			stop()
			return ctx.Err()
		}
	}
}

// interfaces resolves the configured interface set.
func (m *Multicast) interfaces() ([]net.Interface, error) {
	all, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	ifaces := filterInterfaces(all, m.config.Interfaces)
	if len(ifaces) == 0 {
		return nil, fmt.Errorf("no multicast-capable interface available")
	}
	return ifaces, nil
}

// filterInterfaces keeps up, multicast-capable interfaces, optionally
// restricted to a set of names.
func filterInterfaces(all []net.Interface, names []string) []net.Interface {
	var ifaces []net.Interface
	for _, iface := range all {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if len(names) > 0 && !containsName(names, iface.Name) {
			continue
		}
		ifaces = append(ifaces, iface)
	}
	return ifaces
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// connSet holds the per-session multicast sockets.
type connSet struct {
	v4 *ipv4.PacketConn
	v6 *ipv6.PacketConn
}

// openConns joins the mDNS groups on the given interfaces. At least one
// address family must come up.
func openConns(ifaces []net.Interface, config Config) (*connSet, error) {
	conns := &connSet{}

	var err4, err6 error
	if !config.DisableIPv4 {
		conns.v4, err4 = joinGroupIPv4(ifaces)
		if err4 != nil {
			logging.Debug("No usable IPv4 multicast socket", zap.Error(err4))
		}
	}
	if !config.DisableIPv6 {
		conns.v6, err6 = joinGroupIPv6(ifaces)
		if err6 != nil {
			logging.Debug("No usable IPv6 multicast socket", zap.Error(err6))
		}
	}

	if conns.v4 == nil && conns.v6 == nil {
		conns.close()
		return nil, fmt.Errorf("failed to open multicast sockets (ipv4: %v, ipv6: %v)", err4, err6)
	}
	return conns, nil
}

func joinGroupIPv4(ifaces []net.Interface) (*ipv4.PacketConn, error) {
	udpConn, err := net.ListenUDP("udp4", mdnsWildcardAddrIPv4)
	if err != nil {
		return nil, err
	}

	conn := ipv4.NewPacketConn(udpConn)
	_ = conn.SetControlMessage(ipv4.FlagInterface, true)

	joined := 0
	for i := range ifaces {
		if err := conn.JoinGroup(&ifaces[i], &net.UDPAddr{IP: mdnsGroupIPv4}); err == nil {
			joined++
		}
	}
	if joined == 0 {
		_ = udpConn.Close()
		return nil, fmt.Errorf("failed to join %v on any interface", mdnsGroupIPv4)
	}
	return conn, nil
}

func joinGroupIPv6(ifaces []net.Interface) (*ipv6.PacketConn, error) {
	udpConn, err := net.ListenUDP("udp6", mdnsWildcardAddrIPv6)
	if err != nil {
		return nil, err
	}

	conn := ipv6.NewPacketConn(udpConn)
	_ = conn.SetControlMessage(ipv6.FlagInterface, true)

	joined := 0
	for i := range ifaces {
		if err := conn.JoinGroup(&ifaces[i], &net.UDPAddr{IP: mdnsGroupIPv6}); err == nil {
			joined++
		}
	}
	if joined == 0 {
		_ = udpConn.Close()
		return nil, fmt.Errorf("failed to join %v on any interface", mdnsGroupIPv6)
	}
	return conn, nil
}

// receive starts one receive loop per open socket. Loops exit when the
// shutdown channel closes or the socket is closed under them.
func (c *connSet) receive(packets chan<- packet, shutdown <-chan struct{}, wg *sync.WaitGroup) {
	deliver := func(src net.Addr, data []byte) {
		logging.LogDatagram(src.String(), data)
		select {
		case packets <- packet{src: src, data: data}:
		case <-shutdown:
		}
	}

	if c.v4 != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 65536)
			for {
				n, _, src, err := c.v4.ReadFrom(buf)
				if err != nil {
					return
				}
				data := make([]byte, n)
				copy(data, buf[:n])
				deliver(src, data)
			}
		}()
	}
	if c.v6 != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 65536)
			for {
				n, _, src, err := c.v6.ReadFrom(buf)
				if err != nil {
					return
				}
				data := make([]byte, n)
				copy(data, buf[:n])
				deliver(src, data)
			}
		}()
	}
}

// write sends the payload to the multicast groups once per interface.
// Individual interface failures are tolerated; write fails only when no
// interface accepted the payload.
func (c *connSet) write(payload []byte, ifaces []net.Interface) error {
	sent := 0

	if c.v4 != nil {
		var wcm ipv4.ControlMessage
		for i := range ifaces {
			switch runtime.GOOS {
			case "darwin", "ios", "linux":
				wcm.IfIndex = ifaces[i].Index
			default:
				if err := c.v4.SetMulticastInterface(&ifaces[i]); err != nil {
					continue
				}
			}
			if _, err := c.v4.WriteTo(payload, &wcm, ipv4Addr); err == nil {
				sent++
			}
		}
	}

	if c.v6 != nil {
		var wcm ipv6.ControlMessage
		for i := range ifaces {
			switch runtime.GOOS {
			case "darwin", "ios", "linux":
				wcm.IfIndex = ifaces[i].Index
			default:
				if err := c.v6.SetMulticastInterface(&ifaces[i]); err != nil {
					continue
				}
			}
			if _, err := c.v6.WriteTo(payload, &wcm, ipv6Addr); err == nil {
				sent++
			}
		}
	}

	if sent == 0 {
		return fmt.Errorf("failed to send query on any interface")
	}
	return nil
}

// close closes the sockets, unblocking the receive loops.
func (c *connSet) close() {
	if c.v4 != nil {
		_ = c.v4.Close()
	}
	if c.v6 != nil {
		_ = c.v6.Close()
	}
}
