// Package api defines the wire-format types for the kiosk HTTP API and the
// converters from kiosk, packaging and ledger models.
//
// DTOs use camelCase JSON tags for the browser kiosk. Enums (pack state,
// phase, timer state) are exposed as their string values. Timestamps are
// RFC3339 with milliseconds in UTC; the raw epoch seconds are carried next to
// them where clients compute elapsed times.
package api
