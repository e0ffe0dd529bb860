// Command packline runs and administers the packing kiosk daemon. Besides
// the daemon controls it reads shifts, events and reports straight from the
// ledger.
package main
