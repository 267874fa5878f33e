// Package pubkeys persists the public keys of contacts. Each row belongs to
// one recipient (recipient_ref) and carries the blind index of its primary
// fingerprint. Position preserves insertion order, so a recipient's keys come
// back in the order they were added, and an in-place Update keeps it.
package pubkeys
