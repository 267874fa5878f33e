// Package cli is the pgpkeeper command-line front end.
//
// Every command runs the storage migration first, then talks to the
// services package. Fatal storage conditions are reported through IsFatal so
// the caller can terminate the process.
package cli
