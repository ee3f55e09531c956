package database

const schema = `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    to_address TEXT NOT NULL,
    from_address TEXT NOT NULL,
    subject TEXT,
    text_body TEXT,
    html_body TEXT,
    received_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    message_type TEXT DEFAULT 'normal',
    otp_code TEXT,
    has_pin BOOLEAN DEFAULT 0,
    pin_hash TEXT
);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_to ON messages(to_address);
CREATE INDEX IF NOT EXISTS idx_messages_received ON messages(received_at);
`
