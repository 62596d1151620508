package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tobrk/lanscout/internal/dnssd"
	"github.com/tobrk/lanscout/internal/logging"
	"go.uber.org/zap"
)

// scanRequest is the wire form of one scan's parameters, shared by the
// REST query string and the WebSocket request message.
type scanRequest struct {
	Queries       []string `json:"queries"`
	Types         []string `json:"types,omitempty"`
	WindowSecs    int      `json:"window_secs,omitempty"`
	Retries       int      `json:"retries,omitempty"`
	RetryDelaySec int      `json:"retry_delay_s,omitempty"`
	Overlap       bool     `json:"overlap,omitempty"`
}

// options converts the request into engine options, applying the
// server-side window cap.
func (req *scanRequest) options(maxWindow time.Duration) (dnssd.Options, error) {
	if len(req.Queries) == 0 {
		return dnssd.Options{}, fmt.Errorf("at least one query is required")
	}

	window := time.Duration(req.WindowSecs) * time.Second
	if window <= 0 {
		window = dnssd.DefaultWindow
	}
	if window > maxWindow {
		window = maxWindow
	}

	types := make([]dnssd.RecordType, 0, len(req.Types))
	for _, t := range req.Types {
		types = append(types, dnssd.RecordType(strings.ToLower(t)))
	}

	return dnssd.Options{
		Queries:       req.Queries,
		Types:         types,
		Window:        window,
		Retries:       req.Retries,
		RetryInterval: time.Duration(req.RetryDelaySec) * time.Second,
		Overlap:       req.Overlap,
	}, nil
}

// hostView is the JSON shape of one discovered host.
type hostView struct {
	ID       string                       `json:"id"`
	Name     string                       `json:"name,omitempty"`
	Addrs    []string                     `json:"addrs,omitempty"`
	Names    []string                     `json:"names,omitempty"`
	Services map[string]serviceView       `json:"services,omitempty"`
	Text     map[string]map[string]string `json:"text,omitempty"`
}

type serviceView struct {
	Port uint16 `json:"port"`
	TTL  uint32 `json:"ttl"`
}

func viewOfHost(h *dnssd.Host) hostView {
	view := hostView{
		ID:    h.ID,
		Name:  h.Name,
		Addrs: h.Addrs,
		Names: h.Names,
	}
	if len(h.Services) > 0 {
		view.Services = make(map[string]serviceView, len(h.Services))
		for name, svc := range h.Services {
			view.Services[name] = serviceView{Port: svc.Port, TTL: svc.TTL}
		}
	}
	if len(h.TextRecords) > 0 {
		view.Text = make(map[string]map[string]string, len(h.TextRecords))
		for name, txt := range h.TextRecords {
			props := make(map[string]string, len(txt.Properties))
			for key := range txt.Properties {
				value, _ := txt.Get(key)
				props[key] = value
			}
			view.Text[name] = props
		}
	}
	return view
}

// handleHosts runs one blocking scan and returns the aggregated result.
//
//	GET /api/hosts?q=_http._tcp.local&q=_ipp._tcp.local&window=5&retries=2
func (s *Server) handleHosts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := scanRequest{
		Queries: r.URL.Query()["q"],
		Types:   r.URL.Query()["type"],
	}
	if v := r.URL.Query().Get("window"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid window", http.StatusBadRequest)
			return
		}
		req.WindowSecs = secs
	}
	if v := r.URL.Query().Get("retries"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid retries", http.StatusBadRequest)
			return
		}
		req.Retries = n
	}
	req.Overlap = r.URL.Query().Get("overlap") == "true"

	opts, err := req.options(s.config.MaxWindow)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hosts, err := s.scanner.ResolveFunc(r.Context(), opts, nil)
	if err != nil {
		logging.Error("Scan failed", zap.Error(err))
		http.Error(w, "scan failed", http.StatusBadGateway)
		return
	}

	// Stable key order for reproducible output
	keys := make([]string, 0, len(hosts))
	for key := range hosts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	views := make(map[string]hostView, len(hosts))
	for _, key := range keys {
		views[key] = viewOfHost(hosts[key])
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		logging.Error("Failed to encode response", zap.Error(err))
	}
}
