package models

// The Sealed* types are table rows of the encrypted store. Payload is the
// AES-GCM sealed JSON of the matching *Record type; *Ref columns are blind
// indexes, never plaintext.

type SealedKey struct {
	Position  int64
	ID        string
	LongidRef []byte
	Payload   []byte
	Nonce     []byte
}

type SealedRecipient struct {
	EmailRef []byte
	Payload  []byte
	Nonce    []byte
}

// SealedPubKey rows keep insertion order through Position.
type SealedPubKey struct {
	Position       int64
	RecipientRef   []byte
	FingerprintRef []byte
	Payload        []byte
	Nonce          []byte
}

type SealedUser struct {
	EmailRef []byte
	Payload  []byte
	Nonce    []byte
}
