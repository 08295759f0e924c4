// Package metrics collects in-process counters and latency histograms for the
// running bot. They are exposed read-only by the status server.
package metrics

import (
	"sync/atomic"
	"time"
)

// SessionStats counts what the bot has done since the process started.
type SessionStats struct {
	Captures          atomic.Uint64
	Escapes           atomic.Uint64
	Vanishes          atomic.Uint64
	Aborts            atomic.Uint64
	Spins             atomic.Uint64
	SoftbanRecoveries atomic.Uint64
	Reconnects        atomic.Uint64
	RPCRequests       atomic.Uint64
	RPCErrors         atomic.Uint64

	RPCLatency *Histogram

	farming   atomic.Bool
	startTime time.Time
}

// NewSessionStats creates an empty collector.
func NewSessionStats() *SessionStats {
	return &SessionStats{
		RPCLatency: NewHistogram(1024),
		startTime:  time.Now(),
	}
}

// RecordRPC records one remote call and its latency.
func (s *SessionStats) RecordRPC(d time.Duration, err error) {
	s.RPCRequests.Add(1)
	if err != nil {
		s.RPCErrors.Add(1)
	}
	s.RPCLatency.Record(d)
}

// SetFarming records the current farming-mode state.
func (s *SessionStats) SetFarming(on bool) {
	s.farming.Store(on)
}

// Snapshot is the JSON view served on /stats.
type Snapshot struct {
	Uptime            string  `json:"uptime"`
	Captures          uint64  `json:"captures"`
	Escapes           uint64  `json:"escapes"`
	Vanishes          uint64  `json:"vanishes"`
	Aborts            uint64  `json:"aborts"`
	Spins             uint64  `json:"spins"`
	SoftbanRecoveries uint64  `json:"softban_recoveries"`
	Reconnects        uint64  `json:"reconnects"`
	Farming           bool    `json:"farming"`
	RPCRequests       uint64  `json:"rpc_requests"`
	RPCErrors         uint64  `json:"rpc_errors"`
	RPCLatency        Summary `json:"rpc_latency"`
}

// Snapshot reads every counter.
func (s *SessionStats) Snapshot() Snapshot {
	return Snapshot{
		Uptime:            time.Since(s.startTime).Round(time.Second).String(),
		Captures:          s.Captures.Load(),
		Escapes:           s.Escapes.Load(),
		Vanishes:          s.Vanishes.Load(),
		Aborts:            s.Aborts.Load(),
		Spins:             s.Spins.Load(),
		SoftbanRecoveries: s.SoftbanRecoveries.Load(),
		Reconnects:        s.Reconnects.Load(),
		Farming:           s.farming.Load(),
		RPCRequests:       s.RPCRequests.Load(),
		RPCErrors:         s.RPCErrors.Load(),
		RPCLatency:        s.RPCLatency.Summary(),
	}
}
