// Package sync drives synchronization between the local store and the
// authoritative server. A cycle pushes pending outbox entries, then pulls
// server-side changes, applying whole-entity last-writer-wins resolution:
// the server always wins a conflict and the authoritative value arrives
// via the pull that follows.
//
// The engine is an explicit value owned by the application's composition
// root. Periodic timers, queued local mutations, and reconnect signals all
// funnel into one entry point guarded against re-entrancy, so cycles never
// interleave. Status changes are published to subscribers over channels;
// the engine never calls back into its triggers.
package sync
