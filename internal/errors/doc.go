// Package errors provides coded errors for user-facing failures.
//
// Codes are stable identifiers (E101, E202, ...) registered in
// registry.go, each carrying a category and a fix suggestion. The CLI
// formats them with Format; library code treats them as ordinary
// errors via errors.Is/As.
package errors
