// Package users persists the account rows of the encrypted store, keyed by
// the blind index of the account email.
package users
