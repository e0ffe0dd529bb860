// Package textutil normalizes operator input captured at the kiosk.
//
// Barcode and QR scanners act as keyboards, so whatever layout the kiosk
// keyboard is switched to leaks into the scanned text: full-width forms from
// IME input and Cyrillic letters in place of punctuation on a Russian layout.
// NormalizeScan undoes both so SKUs and worker IDs compare reliably.
package textutil
