// Package recipients persists contact rows keyed by the blind index of the
// contact's email. A contact's public keys live in the pubkeys package; the
// caller deletes them together with the contact.
package recipients
