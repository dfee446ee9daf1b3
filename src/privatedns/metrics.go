// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// coordinatorMetrics holds the counters of one [Coordinator]. Each
// coordinator owns its own set so instances never collide.
type coordinatorMetrics struct {
	set *metrics.Set

	spawned *metrics.Counter
	stale   *metrics.Counter
	retries *metrics.Counter
	giveUps *metrics.Counter
}

func newCoordinatorMetrics(liveWorkers func() float64) *coordinatorMetrics {
	set := metrics.NewSet()
	m := &coordinatorMetrics{
		set:     set,
		spawned: set.NewCounter("privatedns_workers_spawned_total"),
		stale:   set.NewCounter("privatedns_stale_results_total"),
		retries: set.NewCounter("privatedns_reevaluations_total"),
		giveUps: set.NewCounter("privatedns_reevaluations_exhausted_total"),
	}
	set.NewGauge("privatedns_workers_live", liveWorkers)
	return m
}

// OnValidationEvent counts recorded outcomes per network.
func (m *coordinatorMetrics) OnValidationEvent(netID int, _, _ string, success bool) {
	result := "fail"
	if success {
		result = "success"
	}
	m.set.GetOrCreateCounter(fmt.Sprintf(`privatedns_validation_events_total{netid="%d",result="%s"}`, netID, result)).Inc()
}

// validationEvents returns the number of recorded outcomes for netID.
func (m *coordinatorMetrics) validationEvents(netID int, success bool) uint64 {
	result := "fail"
	if success {
		result = "success"
	}
	return m.set.GetOrCreateCounter(fmt.Sprintf(`privatedns_validation_events_total{netid="%d",result="%s"}`, netID, result)).Get()
}

func (m *coordinatorMetrics) writePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}
