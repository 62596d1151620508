package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tobrk/lanscout/internal/config"
	"github.com/tobrk/lanscout/internal/dnssd"
	"github.com/tobrk/lanscout/internal/logging"
	"github.com/tobrk/lanscout/internal/server"
	"github.com/tobrk/lanscout/internal/transport"
	"github.com/tobrk/lanscout/internal/tui"
	"github.com/tobrk/lanscout/internal/urls"
)

// Scan command flags
var (
	queries       []string
	profileName   string
	recordTypes   []string
	windowSecs    int
	retries       int
	retryDelaySec int
	overlap       bool
	ifaceNames    []string
	outputFormat  string

	serveHost string
	servePort int
	logLevel  string
)

func init() {
	// Common flags for scan-driven commands (persistent on root)
	rootCmd.PersistentFlags().StringSliceVarP(&queries, "query", "q", nil, "Service or domain name to query (repeatable)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Named scan profile from the config file")
	rootCmd.PersistentFlags().StringSliceVar(&recordTypes, "type", nil, "Record types to request (ptr, srv, txt, a, aaaa, any)")
	rootCmd.PersistentFlags().IntVar(&windowSecs, "window", 0, "Listening window in seconds (0 = profile/default)")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 2, "Query retransmissions")
	rootCmd.PersistentFlags().IntVar(&retryDelaySec, "retry-delay", 1, "Seconds between retransmissions")
	rootCmd.PersistentFlags().StringSliceVar(&ifaceNames, "iface", nil, "Restrict to named network interfaces")

	// Add subcommands directly to root
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(serveCmd)
}

// scanCmd runs one scan and prints the aggregated hosts
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the local network for services",
	Long: `Scan the local network using mDNS/DNS-SD discovery.

Broadcasts one query per requested service name and record type, listens
for responses across the scan window, and prints one entry per host that
answered. Interrupting a scan (Ctrl-C) prints whatever was collected up
to that point.

See ` + urls.ServiceTypes + ` for common service types to query.`,
	Example: `  # Browse for everything advertising DNS-SD
  lanscout scan

  # Look for web servers and printers, 10 second window
  lanscout scan -q _http._tcp.local -q _ipp._tcp.local --window 10

  # Use a named profile from the config file
  lanscout scan --profile media

  # JSON output for scripting
  lanscout scan --format json`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&overlap, "overlap", false, "Allow this scan to run concurrently with others")
	scanCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := logging.InitializeFromEnv(); err != nil {
		return err
	}
	defer logging.Sync()

	opts, err := buildOptions()
	if err != nil {
		return err
	}

	// Ctrl-C stops the window early but keeps partial results
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := dnssd.NewResolver(transport.NewMulticast(transport.Config{Interfaces: ifaceNames}))

	if outputFormat == "detailed" {
		fmt.Printf("Scanning %s (window: %ds)...\n\n", strings.Join(opts.Queries, ", "), int(opts.Window.Seconds()))
	}

	hosts, err := resolver.Resolve(ctx, opts)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	rememberHosts(hosts)

	switch outputFormat {
	case "json":
		data, err := json.MarshalIndent(hosts, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	default:
		printHosts(hosts)
	}

	return nil
}

// buildOptions merges flags with the named (or default) profile.
func buildOptions() (dnssd.Options, error) {
	registry, err := config.LoadRegistry()
	if err != nil {
		return dnssd.Options{}, fmt.Errorf("failed to load config: %w", err)
	}

	name := profileName
	if name == "" {
		name = registry.Preferences.DefaultProfile
	}
	profile := registry.GetProfile(name)
	if profileName != "" && profile == nil {
		return dnssd.Options{}, fmt.Errorf("unknown profile %q (see %s)", profileName, urls.GettingStarted)
	}

	opts := dnssd.Options{
		Retries:       retries,
		RetryInterval: time.Duration(retryDelaySec) * time.Second,
		Overlap:       overlap,
	}

	if profile != nil {
		opts.Queries = profile.Queries
		for _, t := range profile.Types {
			opts.Types = append(opts.Types, dnssd.RecordType(t))
		}
		if profile.WindowSecs > 0 {
			opts.Window = time.Duration(profile.WindowSecs) * time.Second
		}
		if profile.Retries > 0 {
			opts.Retries = profile.Retries
		}
		if profile.RetryDelaySec > 0 {
			opts.RetryInterval = time.Duration(profile.RetryDelaySec) * time.Second
		}
		if len(ifaceNames) == 0 {
			ifaceNames = profile.Interfaces
		}
	}

	// Explicit flags win over the profile
	if len(queries) > 0 {
		opts.Queries = queries
	}
	if len(recordTypes) > 0 {
		opts.Types = nil
		for _, t := range recordTypes {
			opts.Types = append(opts.Types, dnssd.RecordType(strings.ToLower(t)))
		}
	}
	if windowSecs > 0 {
		opts.Window = time.Duration(windowSecs) * time.Second
	}
	if opts.Window <= 0 {
		opts.Window = time.Duration(registry.Preferences.ScanWindow) * time.Second
	}
	if len(opts.Queries) == 0 {
		return dnssd.Options{}, fmt.Errorf("no queries given: use --query or --profile")
	}

	return opts, nil
}

// rememberHosts records discovered hosts in the config registry.
func rememberHosts(hosts map[string]*dnssd.Host) {
	registry, err := config.LoadRegistry()
	if err != nil || !registry.Preferences.RememberHosts {
		return
	}
	for _, host := range hosts {
		addr := host.ID
		if len(host.Addrs) > 0 {
			addr = host.Addrs[0]
		}
		registry.UpdateHostLastSeen(host.ID, addr)
	}
	if err := registry.Save(); err != nil {
		logging.Warn("Failed to save config: " + err.Error())
	}
}

func printHosts(hosts map[string]*dnssd.Host) {
	if len(hosts) == 0 {
		fmt.Println("No hosts found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Check that you are on the same network segment as the devices")
		fmt.Println("  - Multicast may be filtered on WiFi guest networks and VPNs")
		fmt.Println("  - Try increasing --window for slower networks")
		fmt.Printf("  - See %s for common fixes\n", urls.Troubleshooting)
		return
	}

	keys := make([]string, 0, len(hosts))
	for key := range hosts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Printf("Found %d host(s):\n\n", len(hosts))

	for i, key := range keys {
		host := hosts[key]
		name := host.Name
		if name == "" {
			name = host.ID
		}
		fmt.Printf("%d. %s\n", i+1, name)
		fmt.Printf("   ID:       %s\n", host.ID)
		if len(host.Addrs) > 0 {
			fmt.Printf("   Addrs:    %s\n", strings.Join(host.Addrs, ", "))
		}
		if len(host.Names) > 0 {
			fmt.Printf("   Names:    %s\n", strings.Join(host.Names, ", "))
		}
		for svcName, svc := range host.Services {
			fmt.Printf("   Service:  %s port %d (ttl %ds)\n", svcName, svc.Port, svc.TTL)
		}
		for txtName, txt := range host.TextRecords {
			pairs := make([]string, 0, len(txt.Properties))
			for key := range txt.Properties {
				value, _ := txt.Get(key)
				if value == "" {
					pairs = append(pairs, key)
				} else {
					pairs = append(pairs, key+"="+value)
				}
			}
			sort.Strings(pairs)
			fmt.Printf("   Text:     %s [%s]\n", txtName, strings.Join(pairs, " "))
		}
		fmt.Println()
	}
}

// browseCmd launches the interactive browse view
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the network interactively",
	Long: `Launch the interactive browse view.

Hosts appear in a filterable list as their responses arrive; press r to
rescan and q to quit.`,
	RunE: runBrowse,
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if err := logging.InitializeFromEnv(); err != nil {
		return err
	}
	defer logging.Sync()

	opts, err := buildOptions()
	if err != nil {
		return err
	}

	resolver := dnssd.NewResolver(transport.NewMulticast(transport.Config{Interfaces: ifaceNames}))

	model := tui.NewModel(resolver, opts)
	program := tea.NewProgram(model, tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("browse view failed: %w", err)
	}

	if m, ok := final.(tui.Model); ok {
		rememberHosts(m.Hosts())
	}
	return nil
}

// serveCmd exposes discovery over HTTP/WebSocket
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve discovery over HTTP and WebSocket",
	Long: `Run a local HTTP server exposing the discovery engine.

GET /api/hosts runs one scan and returns the aggregated hosts as JSON;
GET /ws streams hosts over WebSocket as responses arrive.`,
	Example: `  # Serve on the default port
  lanscout serve

  # Bind explicitly and enable logging
  lanscout serve --host 127.0.0.1 --port 8035 --log-level info`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Address to bind")
	serveCmd.Flags().IntVar(&servePort, "port", 8035, "Port to bind")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	resolver := dnssd.NewResolver(transport.NewMulticast(transport.Config{Interfaces: ifaceNames}))

	srv, err := server.New(&server.Config{
		Host:     serveHost,
		Port:     servePort,
		LogLevel: logLevel,
	}, resolver)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
