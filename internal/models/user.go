package models

// SessionRecord holds the connection settings of one mail transport.
type SessionRecord struct {
	Hostname       string `json:"hostname"`
	Port           int    `json:"port"`
	Username       string `json:"username"`
	Password       string `json:"password,omitempty"`
	ConnectionType string `json:"connection_type"`
	Email          string `json:"email,omitempty"`
}

// UserRecord describes the signed-in account. Email is the primary key;
// callers expect at most one active user.
type UserRecord struct {
	Email    string         `json:"email"`
	Name     string         `json:"name"`
	IsActive bool           `json:"is_active"`
	IMAP     *SessionRecord `json:"imap,omitempty"`
	SMTP     *SessionRecord `json:"smtp,omitempty"`
}

func NewUserRecord(name, email string, imap, smtp *SessionRecord) UserRecord {
	return UserRecord{Email: email, Name: name, IsActive: true, IMAP: imap, SMTP: smtp}
}
