// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Default configuration values.
const (
	defaultMaxWorkers = 256
)

// trackedServer is one tracker entry: the identity the caller configured
// and the trust state recorded for it.
type trackedServer struct {
	identity  ServerIdentity
	status    ValidationStatus
	updatedAt time.Time
}

// tracker maps each configured server of a network to its entry.
type tracker map[AddressKey]trackedServer

// Coordinator owns the Private DNS state of every network: the mode,
// the tracker of configured servers and the registry of validation
// workers. All of it is guarded by a single mutex that is never held
// across network I/O or backoff sleeps.
type Coordinator struct {
	mu       sync.Mutex
	modes    map[int]PrivacyMode
	marks    map[int]uint32
	trackers map[int]tracker
	registry map[int]map[AddressKey]*worker
	workers  map[*worker]struct{} // registered and orphaned
	closed   bool

	validator        Validator
	stats            StatsPersister
	events           *eventReporter
	metrics          *coordinatorMetrics
	logger           *slog.Logger
	clock            clock.Clock
	backoff          Backoff
	connectTimeout   time.Duration
	maxWorkers       int
	probeZone        string
	initialListeners []EventListener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// backoffHook is called by a worker right after it arms its backoff
	// timer. Tests use it to advance a mock clock without racing.
	backoffHook func(server ServerIdentity, d time.Duration)
}

// New creates a new [Coordinator]. Use functional options to customize
// behavior.
//
//	// Default configuration:
//	c := privatedns.New()
//	defer c.Close()
//
//	// Custom configuration:
//	c := privatedns.New(
//	    privatedns.WithConnectTimeout(10 * time.Second),
//	    privatedns.WithListener(listener),
//	)
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		modes:          make(map[int]PrivacyMode),
		marks:          make(map[int]uint32),
		trackers:       make(map[int]tracker),
		registry:       make(map[int]map[AddressKey]*worker),
		workers:        make(map[*worker]struct{}),
		logger:         slog.Default(),
		clock:          clock.New(),
		backoff:        DefaultBackoff(),
		connectTimeout: defaultConnectTimeout,
		maxWorkers:     defaultMaxWorkers,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Initialize collaborators if not set by option.
	if c.validator == nil {
		c.validator = &DoTValidator{ProbeZone: c.probeZone, Logger: c.logger}
	}
	if c.stats == nil {
		c.stats = NewMemoryStats()
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.events = newEventReporter(c.logger)
	c.metrics = newCoordinatorMetrics(func() float64 {
		c.mu.Lock()
		defer c.mu.Unlock()
		return float64(len(c.workers))
	})
	c.events.add(c.metrics)
	for _, l := range c.initialListeners {
		c.events.add(l)
	}

	return c
}

// Set applies the Private DNS configuration of a network.
//
// servers are numeric IP addresses; the DoT port 853 is implied. The mode
// is derived: a non-empty hostname selects strict mode, otherwise a
// non-empty server list selects opportunistic mode, otherwise the network
// is turned off and all of its state is dropped.
//
// Every address is parsed before anything changes. The first malformed
// address, or a hostname that is blank once normalized, fails the call
// with [ErrInvalidArgument] and leaves all state untouched.
//
// Servers absent from the new list are dropped from the tracker at once.
// Servers that are new, previously failed, or whose hostname or CA
// changed are marked in process and validated in the background. A
// server that already has a worker gets no second one. Set never waits
// for validation.
func (c *Coordinator) Set(netID int, mark uint32, servers []string, hostname, caCert string) error {
	pinned := NormalizeHostname(hostname)
	if hostname != "" && pinned == "" {
		err := fmt.Errorf("%w: hostname %q is blank", ErrInvalidArgument, hostname)
		c.logger.Warn("rejected private DNS configuration", "netid", netID, "error", err)
		return err
	}
	hostname = pinned

	identities, err := parseServers(servers, hostname, caCert, c.connectTimeout)
	if err != nil {
		c.logger.Warn("rejected private DNS configuration", "netid", netID, "error", err)
		return err
	}
	mode := modeFor(hostname, len(identities))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	if mode == ModeOff {
		c.purgeLocked(netID)
		c.mu.Unlock()

		c.stats.PersistConfiguredServers(netID, []string{})
		c.logger.Info("private DNS turned off", "netid", netID)
		return nil
	}

	old := c.trackers[netID]
	registered := c.registry[netID]

	var (
		spawn []ServerIdentity
		wake  []*worker
	)
	next := make(tracker, len(identities))
	now := c.clock.Now()
	for _, id := range identities {
		cur, tracked := old[id.Address]
		if tracked && !needsValidation(cur, id) {
			next[id.Address] = cur
			continue
		}

		next[id.Address] = trackedServer{identity: id, status: StatusInProcess, updatedAt: now}
		if w, ok := registered[id.Address]; ok {
			// A worker backing off after a failure keeps its schedule when
			// the same server is pushed again. A new or changed server
			// cuts the sleep short.
			if !tracked || cur.identity.FullKey() != id.FullKey() {
				wake = append(wake, w)
			}
			continue
		}
		spawn = append(spawn, id)
	}

	if live := len(c.workers); live+len(spawn) > c.maxWorkers {
		c.mu.Unlock()
		err := fmt.Errorf("%w: network %d needs %d more workers, %d of %d live",
			ErrWorkerLimit, netID, len(spawn), live, c.maxWorkers)
		c.logger.Error("rejected private DNS configuration", "netid", netID, "error", err)
		return err
	}

	c.modes[netID] = mode
	c.marks[netID] = mark
	c.trackers[netID] = next
	if registered == nil {
		registered = make(map[AddressKey]*worker)
		c.registry[netID] = registered
	}
	for _, id := range spawn {
		c.spawnLocked(netID, mark, id)
	}
	for _, w := range wake {
		w.signal()
	}
	c.mu.Unlock()

	c.stats.PersistConfiguredServers(netID, servers)
	c.logger.Info("private DNS configuration applied",
		"netid", netID, "mode", mode.String(), "servers", len(identities), "hostname", hostname,
		"spawned", len(spawn), "woken", len(wake))
	return nil
}

// needsValidation reports whether a tracked server must be validated
// again for the configured identity.
func needsValidation(cur trackedServer, configured ServerIdentity) bool {
	return cur.status == StatusFail || cur.identity.FullKey() != configured.FullKey()
}

// GetStatus returns a snapshot of the network's mode and tracker.
// It never blocks on network I/O.
func (c *Coordinator) GetStatus(netID int) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Mode:       c.modes[netID],
		Servers:    make(map[AddressKey]ValidationStatus),
		identities: make(map[AddressKey]ServerIdentity),
		updated:    make(map[AddressKey]time.Time),
	}
	if st.Mode == ModeOff {
		return st
	}
	for key, entry := range c.trackers[netID] {
		st.Servers[key] = entry.status
		st.identities[key] = entry.identity
		st.updated[key] = entry.updatedAt
	}
	return st
}

// ServerStatus returns the validation status of one server on a network.
// It returns [StatusUnknownNetID] if the network has no Private DNS state
// and [StatusUnknownServer] if the server is not configured on it.
func (c *Coordinator) ServerStatus(netID int, server string) ValidationStatus {
	key, err := ParseAddressKey(server)

	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.trackers[netID]
	if !ok {
		return StatusUnknownNetID
	}
	if err != nil {
		return StatusUnknownServer
	}
	entry, ok := t[key]
	if !ok {
		return StatusUnknownServer
	}
	return entry.status
}

// Clear removes all Private DNS state of a network. In-flight workers are
// not interrupted; their results are discarded when they report.
func (c *Coordinator) Clear(netID int) {
	c.mu.Lock()
	c.purgeLocked(netID)
	c.mu.Unlock()

	c.logger.Debug("private DNS state cleared", "netid", netID)
}

// purgeLocked drops the network's state. Its workers stay live as
// orphans until they next report.
func (c *Coordinator) purgeLocked(netID int) {
	delete(c.modes, netID)
	delete(c.marks, netID)
	delete(c.trackers, netID)
	for _, w := range c.registry[netID] {
		w.registered = false
	}
	delete(c.registry, netID)
}

// Networks returns the IDs of all networks with Private DNS state,
// in ascending order.
func (c *Coordinator) Networks() []int {
	c.mu.Lock()
	ids := make([]int, 0, len(c.modes))
	for id := range c.modes {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	sort.Ints(ids)
	return ids
}

// AddListener registers an [EventListener] and returns the function that
// unregisters it.
func (c *Coordinator) AddListener(l EventListener) (remove func()) {
	return c.events.add(l)
}

// WritePrometheus writes the coordinator's metrics in Prometheus text
// exposition format.
func (c *Coordinator) WritePrometheus(w io.Writer) {
	c.metrics.writePrometheus(w)
}

// Wait blocks until every live validation worker, including orphaned
// ones, has exited, or until ctx is done.
//
// In strict mode a failing server keeps its worker alive for the whole
// backoff sequence, so callers should bound ctx.
func (c *Coordinator) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		var next *worker
		for w := range c.workers {
			next = w
			break
		}
		c.mu.Unlock()

		if next == nil {
			return nil
		}

		select {
		case <-next.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops all workers, aborting backoff sleeps and in-flight
// attempts, and waits for them to exit. Set fails with [ErrClosed]
// afterwards. Close must not be called from an [EventListener].
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}

// Dump writes a human-readable description of every network's state.
func (c *Coordinator) Dump(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]int, 0, len(c.modes))
	for id := range c.modes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	orphans := 0
	for wk := range c.workers {
		if !wk.registered {
			orphans++
		}
	}
	fmt.Fprintf(w, "Private DNS: %d network(s), %d live worker(s), %d orphaned\n", len(ids), len(c.workers), orphans)

	for _, id := range ids {
		fmt.Fprintf(w, "NetId %d\n", id)
		fmt.Fprintf(w, "  Mode: %s\n", c.modes[id])
		fmt.Fprintf(w, "  Mark: 0x%x\n", c.marks[id])

		t := c.trackers[id]
		keys := make([]AddressKey, 0, len(t))
		for key := range t {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })

		if len(keys) == 0 {
			fmt.Fprintf(w, "  No private DNS servers configured\n")
			continue
		}
		fmt.Fprintf(w, "  Servers:\n")
		for _, key := range keys {
			entry := t[key]
			_, active := c.registry[id][key]
			fmt.Fprintf(w, "    %s name{%s} status{%s} worker{%t}\n",
				key, entry.identity.Hostname, entry.status, active)
		}
	}
}
