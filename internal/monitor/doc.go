// Package monitor implements the polling engine that keeps the HMI in sync
// with the controller.
//
// A Loop polls one subsystem: it sleeps, reads every configured address in
// a single batch, diffs the result against the previous snapshot and hands
// the transitions to its Sink. Sinks are only ever called from the shared
// Dispatcher goroutine, so the state they own has a single writer.
//
//	idle ──visible──▶ polling ──tick──▶ ReadBatch ──▶ Diff ──▶ Dispatcher ──▶ Sink
//	  ▲                   │
//	  └────hidden─────────┘            ctx cancelled at any point ──▶ exit
//
// The first successful poll of a session is a baseline: the sink receives
// the snapshot but no transitions, so points that are already true at
// startup do not raise events.
//
// Failed reads are skipped and retried on the next tick at the normal
// interval. There is no backoff and no timeout on the read itself; a hung
// transport stalls only its own session.
//
// The Supervisor keeps at most one running session per name. Starting a
// session cancels the previous one and waits for it to return first.
package monitor
