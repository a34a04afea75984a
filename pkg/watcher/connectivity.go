package watcher

import (
	"context"
	"net"
	"sync"
	"time"
)

// DefaultProbeInterval is how often connectivity is re-checked.
const DefaultProbeInterval = 15 * time.Second

// DefaultProbeTimeout bounds a single reachability probe.
const DefaultProbeTimeout = 3 * time.Second

// Monitor polls TCP reachability of the configured provider hosts and fires
// a callback on the offline-to-online transition, debounced so flapping
// links do not trigger a replay storm.
type Monitor struct {
	hosts    []string
	interval time.Duration
	timeout  time.Duration
	debounce *Debouncer

	// dial is swappable for tests.
	dial func(ctx context.Context, host string) error

	mu     sync.Mutex
	online bool
	known  bool
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithProbeInterval sets the polling interval.
func WithProbeInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithProbeTimeout sets the per-probe timeout.
func WithProbeTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// NewMonitor creates a connectivity monitor over the given hosts.
func NewMonitor(hosts []string, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		hosts:    hosts,
		interval: DefaultProbeInterval,
		timeout:  DefaultProbeTimeout,
		debounce: NewDebouncer(DefaultDebounce),
	}
	m.dial = m.dialHost
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Monitor) dialHost(ctx context.Context, host string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, "443"))
	if err != nil {
		return err
	}
	return conn.Close()
}

// probe reports whether any configured host is reachable. No hosts
// configured means nothing to replay against, treated as offline.
func (m *Monitor) probe(ctx context.Context) bool {
	for _, host := range m.hosts {
		probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err := m.dial(probeCtx, host)
		cancel()
		if err == nil {
			return true
		}
	}
	return false
}

// Online returns the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Run polls until the context is cancelled, invoking onReconnect
// (debounced) each time connectivity returns after an observed outage.
// The initial observation never fires the callback.
func (m *Monitor) Run(ctx context.Context, onReconnect func()) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer m.debounce.Cancel()

	for {
		online := m.probe(ctx)

		m.mu.Lock()
		wasOnline, known := m.online, m.known
		m.online, m.known = online, true
		m.mu.Unlock()

		if known && !wasOnline && online {
			m.debounce.Trigger(onReconnect)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
