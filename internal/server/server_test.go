package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobrk/lanscout/internal/dnssd"
)

// fakeScanner serves canned hosts, streaming each through the callback
// before returning the full map.
type fakeScanner struct {
	hosts map[string]*dnssd.Host
	err   error

	lastOpts dnssd.Options
}

func (f *fakeScanner) ResolveFunc(ctx context.Context, opts dnssd.Options, fn dnssd.HostFunc) (map[string]*dnssd.Host, error) {
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	if fn != nil {
		for key, host := range f.hosts {
			fn(key, host)
		}
	}
	return f.hosts, nil
}

func sampleHosts(t *testing.T) map[string]*dnssd.Host {
	t.Helper()

	printer := dnssd.NewHost()
	printer.ID = "10.0.0.5"
	printer.Name = "printer"
	printer.Addrs = []string{"10.0.0.5"}
	printer.Names = []string{"printer._ipp._tcp.local."}
	svc, err := dnssd.NewService("printer._ipp._tcp.local.", 631, 120)
	require.NoError(t, err)
	printer.Services[svc.Name] = svc

	camera := dnssd.NewHost()
	camera.ID = "10.0.0.9"
	camera.Addrs = []string{"10.0.0.9"}

	return map[string]*dnssd.Host{
		"10.0.0.5: printer": printer,
		"10.0.0.9":          camera,
	}
}

func newTestServer(t *testing.T, scanner Scanner) *httptest.Server {
	t.Helper()

	s, err := New(&Config{MaxWindow: 10 * time.Second}, scanner)
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHandleHosts(t *testing.T) {
	scanner := &fakeScanner{hosts: sampleHosts(t)}
	ts := newTestServer(t, scanner)

	resp, err := http.Get(ts.URL + "/api/hosts?q=_ipp._tcp.local&window=3&retries=2")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var views map[string]hostView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	require.Len(t, views, 2)

	printer := views["10.0.0.5: printer"]
	assert.Equal(t, "10.0.0.5", printer.ID)
	assert.Equal(t, "printer", printer.Name)
	require.Contains(t, printer.Services, "printer._ipp._tcp.local.")
	assert.Equal(t, uint16(631), printer.Services["printer._ipp._tcp.local."].Port)

	assert.Equal(t, []string{"_ipp._tcp.local"}, scanner.lastOpts.Queries)
	assert.Equal(t, 3*time.Second, scanner.lastOpts.Window)
	assert.Equal(t, 2, scanner.lastOpts.Retries)
}

func TestHandleHostsValidation(t *testing.T) {
	ts := newTestServer(t, &fakeScanner{})

	tests := []struct {
		name string
		path string
		code int
	}{
		{name: "missing query", path: "/api/hosts", code: http.StatusBadRequest},
		{name: "bad window", path: "/api/hosts?q=a.local&window=soon", code: http.StatusBadRequest},
		{name: "bad retries", path: "/api/hosts?q=a.local&retries=x", code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}

func TestHandleHostsMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &fakeScanner{})

	resp, err := http.Post(ts.URL+"/api/hosts", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandleHostsScanFailure(t *testing.T) {
	ts := newTestServer(t, &fakeScanner{err: errors.New("transport failed")})

	resp, err := http.Get(ts.URL + "/api/hosts?q=_ipp._tcp.local")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestScanRequestWindowCap(t *testing.T) {
	req := scanRequest{Queries: []string{"a.local"}, WindowSecs: 600}
	opts, err := req.options(10 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, opts.Window, "requested window must be capped")

	req = scanRequest{Queries: []string{"a.local"}}
	opts, err = req.options(10 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, dnssd.DefaultWindow, opts.Window, "omitted window takes the default")
}

func TestWebSocketStream(t *testing.T) {
	scanner := &fakeScanner{hosts: sampleHosts(t)}
	ts := newTestServer(t, scanner)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(scanRequest{Queries: []string{"_ipp._tcp.local"}, WindowSecs: 1}))

	hostEvents := 0
	for {
		var event wsEvent
		require.NoError(t, conn.ReadJSON(&event))

		switch event.Type {
		case "host":
			hostEvents++
			assert.NotEmpty(t, event.Key)
			require.NotNil(t, event.Host)
		case "done":
			assert.Empty(t, event.Error)
			assert.Len(t, event.Hosts, 2)
			assert.Equal(t, 2, hostEvents, "one host event per streamed merge")
			return
		default:
			t.Fatalf("unexpected event type %q", event.Type)
		}
	}
}

func TestWebSocketBadRequest(t *testing.T) {
	ts := newTestServer(t, &fakeScanner{})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(scanRequest{})) // no queries

	var event wsEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "done", event.Type)
	assert.NotEmpty(t, event.Error)
}
