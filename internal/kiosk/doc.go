// Package kiosk coordinates one packing workstation.
//
// Engine owns the worker and shift context, the current packing attempt, the
// attempt's session timer and per-SKU pack statistics behind a single mutex.
// Exported methods lock for their full duration and delegate to unexported
// ...Locked variants, which never lock. Exported methods never call each
// other.
//
// MasterSupervisor, Settings and Plans are independent of the engine lock:
// they read and write the ledger directly and guard their own in-memory state.
package kiosk
