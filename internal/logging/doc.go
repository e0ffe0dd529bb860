// Package logging assembles structured slog loggers for packline.
//
// It owns the console and JSON handlers, routes output to stdout and the
// daemon log file, and exposes context helpers so request handlers can tag
// log lines with shift, attempt and correlation identifiers. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
