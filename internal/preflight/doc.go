// Package preflight provides readiness checks for the filesystem paths and
// ledger database packlined depends on.
//
// The daemon runs RunAll before it accepts requests and refuses to start when
// a check fails. The CLI "packline status" command prints the same results.
package preflight
