package legacy

// SchemaV1 is the layout of the first plaintext releases. List columns hold
// JSON arrays; timestamps are unix seconds.
const SchemaV1 = `
CREATE TABLE key_info (
  private             TEXT NOT NULL,
  public              TEXT NOT NULL,
  longid              TEXT NOT NULL,
  primary_fingerprint TEXT NOT NULL DEFAULT '',
  all_fingerprints    TEXT NOT NULL DEFAULT '[]',
  all_longids         TEXT NOT NULL DEFAULT '[]',
  passphrase          TEXT,
  source              TEXT NOT NULL
);

CREATE TABLE recipients (
  email     TEXT PRIMARY KEY,
  name      TEXT,
  last_used INTEGER
);

CREATE TABLE pub_keys (
  recipient_email     TEXT NOT NULL,
  armored             TEXT NOT NULL,
  primary_fingerprint TEXT NOT NULL,
  all_fingerprints    TEXT NOT NULL DEFAULT '[]',
  all_longids         TEXT NOT NULL DEFAULT '[]',
  last_sig            INTEGER,
  created             INTEGER NOT NULL DEFAULT 0,
  expiration          INTEGER,
  emails              TEXT NOT NULL DEFAULT '[]',
  position            INTEGER NOT NULL DEFAULT 0
);
`

// SchemaV2 adds the users table. imap and smtp hold JSON session objects.
const SchemaV2 = SchemaV1 + `
CREATE TABLE users (
  email     TEXT PRIMARY KEY,
  name      TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 0,
  imap      TEXT,
  smtp      TEXT
);
`
