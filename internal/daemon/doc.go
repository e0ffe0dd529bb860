// Package daemon coordinates the long-running packlined process.
//
// It wires configuration, the ledger store and the kiosk engine into a single
// lifecycle with flock-based locking to prevent two daemons writing the same
// ledger. The daemon runs preflight checks before serving and exposes the
// kiosk over a JSON HTTP API.
//
// Keep orchestration here: packing and timer rules live in internal/kiosk and
// the packages beneath it, request/response shapes in internal/api.
package daemon
