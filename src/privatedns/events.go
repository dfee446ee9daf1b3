// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import (
	"fmt"
	"log/slog"
	"sync"
)

// EventListener is notified of every validation outcome that is
// recorded for a network. Stale results are not reported.
//
// Listeners are called from worker goroutines without the coordinator
// lock held, so they may call back into the [Coordinator].
type EventListener interface {
	OnValidationEvent(netID int, server, hostname string, success bool)
}

// ListenerFunc adapts a function to the [EventListener] interface.
type ListenerFunc func(netID int, server, hostname string, success bool)

// OnValidationEvent calls f.
func (f ListenerFunc) OnValidationEvent(netID int, server, hostname string, success bool) {
	f(netID, server, hostname, success)
}

// validationEvent is one outcome queued for broadcast.
type validationEvent struct {
	netID    int
	server   string
	hostname string
	success  bool
}

// eventReporter broadcasts validation events to registered listeners.
type eventReporter struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]EventListener
	order     []uint64
	logger    *slog.Logger
}

func newEventReporter(logger *slog.Logger) *eventReporter {
	return &eventReporter{
		listeners: make(map[uint64]EventListener),
		logger:    logger,
	}
}

// add registers l and returns the function that unregisters it.
func (r *eventReporter) add(l EventListener) func() {
	if l == nil {
		return func() {}
	}
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.listeners[id] = l
	r.order = append(r.order, id)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *eventReporter) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners, id)
	for i, cur := range r.order {
		if cur == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *eventReporter) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *eventReporter) broadcast(ev validationEvent) {
	r.mu.RLock()
	listeners := make([]EventListener, 0, len(r.order))
	for _, id := range r.order {
		listeners = append(listeners, r.listeners[id])
	}
	r.mu.RUnlock()

	if len(listeners) == 0 {
		r.logger.Debug("validation event not sent, no listener registered",
			"netid", ev.netID, "server", ev.server, "success", ev.success)
		return
	}

	for _, l := range listeners {
		r.notify(l, ev)
	}
	r.logger.Debug("sent validation event",
		"netid", ev.netID, "server", ev.server, "hostname", ev.hostname, "success", ev.success)
}

// notify shields the worker from a panicking listener.
func (r *eventReporter) notify(l EventListener, ev validationEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("validation listener panicked",
				"netid", ev.netID, "server", ev.server, "error", fmt.Errorf("%w: %v", ErrInternalPanic, rec))
		}
	}()
	l.OnValidationEvent(ev.netID, ev.server, ev.hostname, ev.success)
}
