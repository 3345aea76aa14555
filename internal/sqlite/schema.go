package sqlite

// schema is applied on every open; all statements are idempotent.
// Times are Unix nanoseconds, length_km_x100 is hundredths of a kilometer.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL,
	password_hash BLOB NOT NULL,
	created_at    INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email));

CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	run_date       TEXT NOT NULL,
	start_time     TEXT NOT NULL,
	meeting_place  TEXT NOT NULL,
	venue          TEXT NOT NULL,
	length_km_x100 INTEGER NOT NULL CHECK (length_km_x100 > 0),
	max_capacity   INTEGER NOT NULL CHECK (max_capacity >= 0)
);

CREATE INDEX IF NOT EXISTS runs_schedule_idx ON runs (run_date, start_time);

CREATE TABLE IF NOT EXISTS signups (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	run_id       TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	signed_up_at INTEGER NOT NULL,
	attended     INTEGER NOT NULL DEFAULT 0,
	UNIQUE (user_id, run_id)
);

CREATE INDEX IF NOT EXISTS signups_run_signed_up_idx ON signups (run_id, signed_up_at);

CREATE TRIGGER IF NOT EXISTS signups_capacity_guard
BEFORE INSERT ON signups
WHEN (SELECT COUNT(*) FROM signups WHERE run_id = NEW.run_id)
     >= (SELECT max_capacity FROM runs WHERE id = NEW.run_id)
BEGIN
	SELECT RAISE(ABORT, 'run is full');
END;

CREATE TRIGGER IF NOT EXISTS runs_capacity_floor
BEFORE UPDATE OF max_capacity ON runs
WHEN NEW.max_capacity < (SELECT COUNT(*) FROM signups WHERE run_id = NEW.id)
BEGIN
	SELECT RAISE(ABORT, 'max_capacity below signups');
END;
`
