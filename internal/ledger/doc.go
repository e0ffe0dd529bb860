// Package ledger persists the kiosk's durable facts in SQLite: the
// append-only shift event log, worker shifts, packing attempts, kiosk
// settings and shift plans.
//
// Events are never updated or deleted. Reads return them ordered by
// timestamp with insertion order as the tie-break, so two events sharing a
// timestamp replay in the order they were written. All writes go through a
// single store-level mutex and retry on SQLITE_BUSY, which keeps concurrent
// HTTP handlers from interleaving check-then-append sequences.
package ledger
