// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import (
	"fmt"
	"time"
)

// outcome is what a worker reports to reconciliation.
type outcome int

const (
	// outcomeResume asks to start a reevaluation attempt after a backoff sleep.
	outcomeResume outcome = iota
	outcomeSuccess
	outcomeFailure
)

// verdict is reconciliation's answer to a worker.
type verdict int

const (
	// verdictDone stops the worker. It has already been deregistered.
	verdictDone verdict = iota

	// verdictReevaluate tells the worker to back off (after a failure)
	// or to run its attempt (after outcomeResume).
	verdictReevaluate

	// verdictRestart tells the worker its server was reconfigured under
	// it. The worker now carries the new identity and validates it with a
	// fresh backoff sequence.
	verdictRestart
)

// worker validates one server address of one network. At most one worker
// is registered per (network, address); the handle lives in the registry
// so it can be woken and joined.
type worker struct {
	c     *Coordinator
	netID int

	// Only written under c.mu from the worker's own goroutine, so the
	// worker may read them without the lock.
	server ServerIdentity
	mark   uint32

	registered bool // guarded by c.mu
	wake       chan struct{}
	done       chan struct{}
}

// spawnLocked registers a worker for server and starts it. The registry
// check and insert happen under the same lock hold as the caller's spawn
// decision, so two racing Set calls cannot both spawn.
func (c *Coordinator) spawnLocked(netID int, mark uint32, server ServerIdentity) {
	w := &worker{
		c:          c,
		netID:      netID,
		server:     server,
		mark:       mark,
		registered: true,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	c.registry[netID][server.Address] = w
	c.workers[w] = struct{}{}
	c.metrics.spawned.Inc()

	c.wg.Add(1)
	go w.run()
}

// signal asks a sleeping worker to reevaluate now. It never blocks.
func (w *worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *worker) run() {
	c := w.c
	defer c.wg.Done()
	defer close(w.done)
	defer c.finish(w)

	seq := c.backoff.Sequence()
	for {
		// Drop wake-ups that arrived while we were not sleeping; this
		// attempt already covers them.
		select {
		case <-w.wake:
		default:
		}

		ok := w.validate()
		if c.ctx.Err() != nil {
			return
		}

		result := outcomeFailure
		if ok {
			result = outcomeSuccess
		}
		switch c.reconcile(w, result, seq.HasNext()) {
		case verdictDone:
			return
		case verdictRestart:
			seq = c.backoff.Sequence()
			continue
		}

		d := seq.Next()
		c.metrics.retries.Inc()
		c.logger.Info("private DNS validation failed, reevaluating",
			"netid", w.netID, "server", w.server.Address.String(), "hostname", w.server.Hostname, "after", d)

		woken, alive := w.sleep(d)
		if !alive {
			return
		}
		if woken {
			seq = c.backoff.Sequence()
		}

		switch c.reconcile(w, outcomeResume, true) {
		case verdictDone:
			return
		case verdictRestart:
			seq = c.backoff.Sequence()
		}
	}
}

// validate runs one attempt. A panicking validator counts as a failure.
func (w *worker) validate() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.c.logger.Error("private DNS validator panicked",
				"netid", w.netID, "server", w.server.Address.String(),
				"error", fmt.Errorf("%w: %v", ErrInternalPanic, r))
			ok = false
		}
	}()
	return w.c.validator.Validate(w.c.ctx, w.server, w.netID, w.mark)
}

// sleep waits for d, a wake-up, or coordinator shutdown. It reports
// whether it was woken early and whether the worker should go on.
func (w *worker) sleep(d time.Duration) (woken, alive bool) {
	timer := w.c.clock.Timer(d)
	defer timer.Stop()

	if hook := w.c.backoffHook; hook != nil {
		hook(w.server, d)
	}

	select {
	case <-timer.C:
		return false, true
	case <-w.wake:
		return true, true
	case <-w.c.ctx.Done():
		return false, false
	}
}

// finish removes an exiting worker from the coordinator.
func (c *Coordinator) finish(w *worker) {
	c.mu.Lock()
	c.deregisterLocked(w)
	delete(c.workers, w)
	c.mu.Unlock()
}

// deregisterLocked removes w from the registry if it is still the
// registered worker for its address.
func (c *Coordinator) deregisterLocked(w *worker) {
	if !w.registered {
		return
	}
	w.registered = false
	reg := c.registry[w.netID]
	if reg[w.server.Address] == w {
		delete(reg, w.server.Address)
	}
}

// reconcile is the only place a worker's report mutates the tracker.
// Listeners are notified after the lock is released.
//
// canRetry tells whether the worker's backoff sequence has an interval
// left. The decision to stop and the deregistration happen under one
// lock hold, so a concurrent Set never sees a registered worker that is
// about to exit.
func (c *Coordinator) reconcile(w *worker, o outcome, canRetry bool) verdict {
	c.mu.Lock()
	v, ev := c.reconcileLocked(w, o, canRetry)
	if v == verdictDone {
		c.deregisterLocked(w)
	}
	c.mu.Unlock()

	if ev != nil {
		c.events.broadcast(*ev)
	}
	return v
}

func (c *Coordinator) reconcileLocked(w *worker, o outcome, canRetry bool) (verdict, *validationEvent) {
	logger := c.logger.With("netid", w.netID, "server", w.server.Address.String())

	t, ok := c.trackers[w.netID]
	if !ok {
		logger.Warn("network was cleared during private DNS validation")
		c.metrics.stale.Inc()
		return verdictDone, nil
	}

	mode, ok := c.modes[w.netID]
	if !ok {
		logger.Warn("network has no private DNS mode")
		c.metrics.stale.Inc()
		return verdictDone, nil
	}

	if !w.registered {
		logger.Warn("worker was superseded during private DNS validation")
		c.metrics.stale.Inc()
		return verdictDone, nil
	}

	key := w.server.Address
	entry, ok := t[key]
	if !ok {
		logger.Warn("server was removed during private DNS validation")
		c.metrics.stale.Inc()
		return verdictDone, nil
	}

	if entry.identity.FullKey() != w.server.FullKey() {
		logger.Warn("server was changed during private DNS validation",
			"old_hostname", w.server.Hostname, "new_hostname", entry.identity.Hostname)
		c.metrics.stale.Inc()
		w.server = entry.identity
		w.mark = c.marks[w.netID]
		return verdictRestart, nil
	}

	now := c.clock.Now()
	if o == outcomeResume {
		entry.status = StatusInProcess
		entry.updatedAt = now
		t[key] = entry
		w.mark = c.marks[w.netID]
		return verdictReevaluate, nil
	}

	success := o == outcomeSuccess
	if success {
		entry.status = StatusSuccess
	} else {
		// Failure is expected behind a captive portal.
		entry.status = StatusFail
	}
	entry.updatedAt = now
	t[key] = entry

	ev := &validationEvent{
		netID:    w.netID,
		server:   key.String(),
		hostname: w.server.Hostname,
		success:  success,
	}

	if success || mode != ModeStrict {
		return verdictDone, ev
	}
	if !canRetry {
		logger.Warn("private DNS reevaluation exhausted, waiting for reconfiguration",
			"hostname", w.server.Hostname)
		c.metrics.giveUps.Inc()
		return verdictDone, ev
	}
	return verdictReevaluate, ev
}
