// Package packaging implements the packing workflow for one kiosk: the
// START, BOX_CLOSED, PRINT_LABEL, TABLE_EMPTY state machine and the
// LAYOUT then PACKING step sub-workflow of the current attempt.
//
// The transition table is the single source for both legality checks and
// the UI capability flags. Every accepted transition is persisted together
// with its ledger event before the in-memory attempt changes, so a failed
// write leaves the workflow untouched.
package packaging
