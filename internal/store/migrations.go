package store

const createTableSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    hostname          TEXT NOT NULL,
    bios_vendor       TEXT NOT NULL DEFAULT '',
    bios_version      TEXT NOT NULL DEFAULT '',
    bios_release_date TEXT NOT NULL DEFAULT '',
    board_product     TEXT NOT NULL DEFAULT '',
    system_uuid       TEXT NOT NULL DEFAULT '',
    setting_count     INTEGER NOT NULL DEFAULT 0,
    taken_at          TEXT NOT NULL,
    stored_at         TEXT NOT NULL,
    settings_json     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_hostname ON snapshots(hostname);
CREATE INDEX IF NOT EXISTS idx_snapshots_bios_version ON snapshots(bios_version);
CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);

CREATE TABLE IF NOT EXISTS changes (
    id            TEXT PRIMARY KEY,
    setting       TEXT NOT NULL,
    old_raw       TEXT NOT NULL DEFAULT '',
    new_raw       TEXT NOT NULL DEFAULT '',
    requested_at  TEXT NOT NULL,
    success       INTEGER NOT NULL,
    error         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_changes_setting ON changes(setting);
CREATE INDEX IF NOT EXISTS idx_changes_requested_at ON changes(requested_at);
`
