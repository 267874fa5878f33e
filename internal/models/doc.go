// Package models defines the key and contact types handled by pgpkeeper.
//
// Two families live here. Domain types (KeyDetails, PubKey, Recipient) are
// what callers and the key parser exchange. Record types (KeyRecord,
// RecipientRecord, PubKeyRecord, UserRecord) are the storage representation:
// they are serialized to JSON and sealed by the encrypted store, so their
// JSON tags are the on-disk format and must stay stable.
package models
