package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tobrk/lanscout/internal/dnssd"
)

// Scanner is the discovery capability the browse view drives.
// Satisfied by *dnssd.Resolver.
type Scanner interface {
	ResolveFunc(ctx context.Context, opts dnssd.Options, fn dnssd.HostFunc) (map[string]*dnssd.Host, error)
}

// Messages for async scan events
type hostMsg struct {
	key  string
	host *dnssd.Host
}

type scanDoneMsg struct {
	err error
}

// browseKeyMap defines key bindings for the browse screen
type browseKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Rescan key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Rescan, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Rescan, k.Quit},
	}
}

var browseKeys = browseKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// hostItem wraps a Host for use with bubbles/list
type hostItem struct {
	key  string
	host *dnssd.Host
}

// FilterValue implements list.Item; filter by name, ID or any address.
func (i hostItem) FilterValue() string {
	return i.host.Name + " " + i.host.ID + " " + strings.Join(i.host.Addrs, " ")
}

// Title returns the host display name for list display
func (i hostItem) Title() string {
	if i.host.Name != "" {
		return i.host.Name
	}
	return i.host.ID
}

// Description returns host details for list display
func (i hostItem) Description() string {
	parts := []string{i.host.ID}
	if len(i.host.Addrs) > 1 {
		parts = append(parts, fmt.Sprintf("%d addrs", len(i.host.Addrs)))
	}
	names := make([]string, 0, len(i.host.Services))
	for name, svc := range i.host.Services {
		names = append(names, fmt.Sprintf("%s:%d", firstSegment(name), svc.Port))
	}
	sort.Strings(names)
	if len(names) > 0 {
		parts = append(parts, strings.Join(names, " "))
	}
	return strings.Join(parts, " · ")
}

func firstSegment(name string) string {
	if idx := strings.Index(name, "."); idx >= 0 {
		return name[:idx]
	}
	return name
}

// Model is the live browse view: it runs a scan session and appends
// hosts to the list as their first responses are aggregated.
type Model struct {
	scanner Scanner
	opts    dnssd.Options

	list     list.Model
	spinner  spinner.Model
	keys     browseKeyMap
	scanning bool
	err      error
	hosts    map[string]*dnssd.Host

	events chan tea.Msg
	cancel context.CancelFunc

	width  int
	height int
}

// NewModel creates a browse model over the given scanner and options.
func NewModel(scanner Scanner, opts dnssd.Options) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	delegate := list.NewDefaultDelegate()
	hostList := list.New([]list.Item{}, delegate, terminalWidth(), 20)
	hostList.SetShowTitle(false)
	hostList.SetShowStatusBar(false)
	hostList.SetShowHelp(false)

	return Model{
		scanner: scanner,
		opts:    opts,
		list:    hostList,
		spinner: sp,
		keys:    browseKeys,
		hosts:   make(map[string]*dnssd.Host),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startScan())
}

// startScan launches one scan session in the background. Host merges and
// completion arrive through the events channel so the UI can render
// progressively.
func (m *Model) startScan() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan tea.Msg, 32)

	m.cancel = cancel
	m.events = events
	m.scanning = true
	m.err = nil
	m.hosts = make(map[string]*dnssd.Host)
	m.list.SetItems(nil)

	scanner, opts := m.scanner, m.opts
	go func() {
		_, err := scanner.ResolveFunc(ctx, opts, func(key string, host *dnssd.Host) {
			events <- hostMsg{key: key, host: host}
		})
		events <- scanDoneMsg{err: err}
	}()

	return waitForEvent(events)
}

// waitForEvent relays the next scan event into the update loop.
func waitForEvent(events chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, max(msg.Height-4, 5))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.Rescan):
			if m.scanning {
				return m, nil
			}
			return m, tea.Batch(m.spinner.Tick, m.startScan())
		}

	case hostMsg:
		m.hosts[msg.key] = msg.host
		m.setListItems()
		return m, waitForEvent(m.events)

	case scanDoneMsg:
		m.scanning = false
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		if !m.scanning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// setListItems rebuilds the list in stable key order so hosts don't jump
// around as responses trickle in.
func (m *Model) setListItems() {
	keys := make([]string, 0, len(m.hosts))
	for key := range m.hosts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := make([]list.Item, 0, len(keys))
	for _, key := range keys {
		items = append(items, hostItem{key: key, host: m.hosts[key]})
	}
	m.list.SetItems(items)
}

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("lanscout"))
	b.WriteString("\n")

	if m.scanning {
		b.WriteString(statusStyle.Render(fmt.Sprintf("%s Scanning %s · %s found",
			m.spinner.View(),
			strings.Join(m.opts.Queries, ", "),
			countStyle.Render(fmt.Sprintf("%d", len(m.hosts))),
		)))
	} else if m.err != nil {
		b.WriteString(errorStyle.Render("Scan failed: " + m.err.Error()))
	} else {
		b.WriteString(statusStyle.Render(fmt.Sprintf("Scan complete · %s hosts",
			countStyle.Render(fmt.Sprintf("%d", len(m.hosts))),
		)))
	}
	b.WriteString("\n")

	b.WriteString(m.list.View())
	b.WriteString(helpStyle.Render("↑/↓ navigate · r rescan · q quit"))

	return b.String()
}

// Hosts returns the hosts aggregated by the most recent scan.
func (m Model) Hosts() map[string]*dnssd.Host {
	return m.hosts
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
