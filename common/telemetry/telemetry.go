package telemetry

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"sync/atomic"
	"time"

	"github.com/playforge/remoteconfig/common/logger"
)

// Telemetry holds lightweight operation counters, timing helpers and the
// pprof endpoint
type Telemetry struct {
	service   string
	pprofAddr string
	log       *logger.Logger

	resolveCount  atomic.Int64
	evalFailures  atomic.Int64
	snapshotLoads atomic.Int64
}

// New creates telemetry components. pprofPort 0 disables the pprof server.
func New(service string, pprofPort int, log *logger.Logger) *Telemetry {
	t := &Telemetry{
		service: service,
		log:     log,
	}
	if pprofPort > 0 {
		t.pprofAddr = fmt.Sprintf("localhost:%d", pprofPort)
	}
	return t
}

// Start starts the pprof server, bound to localhost only
func (t *Telemetry) Start(ctx context.Context) error {
	if t.pprofAddr == "" {
		return nil
	}

	go func() {
		t.log.Info("pprof server starting", "addr", t.pprofAddr)
		if err := http.ListenAndServe(t.pprofAddr, nil); err != nil {
			t.log.Error("pprof server error", "error", err)
		}
	}()

	return nil
}

// RecordDuration records operation duration
func (t *Telemetry) RecordDuration(operation string, start time.Time) {
	duration := time.Since(start)
	t.log.Debug("operation completed",
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	)
}

// RecordResolve counts one resolution request
func (t *Telemetry) RecordResolve() {
	t.resolveCount.Add(1)
}

// RecordEvaluationFailure counts a failed condition evaluation. Failures do
// not stop resolution; the counter exists for operator visibility.
func (t *Telemetry) RecordEvaluationFailure() {
	t.evalFailures.Add(1)
}

// RecordSnapshotLoad counts one resolution snapshot rebuild
func (t *Telemetry) RecordSnapshotLoad() {
	t.snapshotLoads.Add(1)
}

// Stats returns the current counter values
func (t *Telemetry) Stats() map[string]int64 {
	return map[string]int64{
		"resolve_count":       t.resolveCount.Load(),
		"evaluation_failures": t.evalFailures.Load(),
		"snapshot_loads":      t.snapshotLoads.Load(),
	}
}
