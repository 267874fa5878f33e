// Package services is the public API over the encrypted store.
//
// KeyService manages the user's own keys and account record.
// ContactsService manages contacts and their public keys, including the
// merge of keys refreshed from a key-management service. LogoutHandler
// destroys persisted state.
//
// Every mutation runs in a store transaction; errors from the store are
// wrapped and returned.
package services
