package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:stepwise.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/stepwise?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS participants (
  participant_id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  current_step INTEGER NOT NULL DEFAULT 1,
  is_active INTEGER NOT NULL DEFAULT 1,
  enrolled_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS staff (
  staff_id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'clinician',
  is_active INTEGER NOT NULL DEFAULT 1,
  added_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS steps (
  step_id INTEGER PRIMARY KEY AUTOINCREMENT,
  step_number INTEGER NOT NULL UNIQUE,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS assessments (
  assessment_id INTEGER PRIMARY KEY AUTOINCREMENT,
  step_id INTEGER NOT NULL REFERENCES steps(step_id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  instructions TEXT NOT NULL DEFAULT '',
  randomize INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_assessments_step ON assessments(step_id);

CREATE TABLE IF NOT EXISTS questions (
  question_id INTEGER PRIMARY KEY AUTOINCREMENT,
  assessment_id INTEGER NOT NULL REFERENCES assessments(assessment_id) ON DELETE CASCADE,
  question_text TEXT NOT NULL,
  question_type TEXT NOT NULL,
  display_order INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_questions_assessment_order ON questions(assessment_id, display_order);

CREATE TABLE IF NOT EXISTS question_options (
  option_id INTEGER PRIMARY KEY AUTOINCREMENT,
  question_id INTEGER NOT NULL REFERENCES questions(question_id) ON DELETE CASCADE,
  option_text TEXT NOT NULL,
  option_value INTEGER
);

CREATE TABLE IF NOT EXISTS assessment_attempts (
  attempt_id INTEGER PRIMARY KEY AUTOINCREMENT,
  participant_id TEXT NOT NULL REFERENCES participants(participant_id),
  assessment_id INTEGER NOT NULL REFERENCES assessments(assessment_id),
  attempt_number INTEGER NOT NULL DEFAULT 1,
  status TEXT NOT NULL DEFAULT 'in_progress',
  started_at INTEGER,
  submitted_at INTEGER,
  reviewed_by TEXT REFERENCES staff(staff_id),
  reviewed_at INTEGER,
  reviewer_notes TEXT,
  approval_viewed INTEGER NOT NULL DEFAULT 0,
  score INTEGER,
  question_order TEXT,
  current_index INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_attempts_participant_assessment ON assessment_attempts(participant_id, assessment_id);
CREATE INDEX IF NOT EXISTS idx_attempts_status ON assessment_attempts(status);
CREATE INDEX IF NOT EXISTS idx_attempts_submitted ON assessment_attempts(submitted_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_one_active
  ON assessment_attempts(participant_id, assessment_id)
  WHERE status IN ('in_progress','needs_revision');

CREATE TABLE IF NOT EXISTS responses (
  response_id INTEGER PRIMARY KEY AUTOINCREMENT,
  attempt_id INTEGER NOT NULL REFERENCES assessment_attempts(attempt_id),
  question_id INTEGER NOT NULL REFERENCES questions(question_id),
  response_text TEXT,
  selected_option_id INTEGER REFERENCES question_options(option_id),
  reviewer_comment TEXT,
  needs_revision INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL,
  UNIQUE(attempt_id, question_id)
);
CREATE INDEX IF NOT EXISTS idx_responses_attempt ON responses(attempt_id);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  typ TEXT NOT NULL,                        -- e.g., AttemptSubmitted
  key TEXT NOT NULL,                        -- natural key: attemptID
  data TEXT NOT NULL,                       -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS participants (
  participant_id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  current_step INTEGER NOT NULL DEFAULT 1,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  enrolled_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS staff (
  staff_id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'clinician',
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  added_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS steps (
  step_id BIGSERIAL PRIMARY KEY,
  step_number INTEGER NOT NULL UNIQUE,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS assessments (
  assessment_id BIGSERIAL PRIMARY KEY,
  step_id BIGINT NOT NULL REFERENCES steps(step_id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  instructions TEXT NOT NULL DEFAULT '',
  randomize BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_assessments_step ON assessments(step_id);

CREATE TABLE IF NOT EXISTS questions (
  question_id BIGSERIAL PRIMARY KEY,
  assessment_id BIGINT NOT NULL REFERENCES assessments(assessment_id) ON DELETE CASCADE,
  question_text TEXT NOT NULL,
  question_type TEXT NOT NULL,
  display_order INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_questions_assessment_order ON questions(assessment_id, display_order);

CREATE TABLE IF NOT EXISTS question_options (
  option_id BIGSERIAL PRIMARY KEY,
  question_id BIGINT NOT NULL REFERENCES questions(question_id) ON DELETE CASCADE,
  option_text TEXT NOT NULL,
  option_value INTEGER
);

CREATE TABLE IF NOT EXISTS assessment_attempts (
  attempt_id BIGSERIAL PRIMARY KEY,
  participant_id TEXT NOT NULL REFERENCES participants(participant_id),
  assessment_id BIGINT NOT NULL REFERENCES assessments(assessment_id),
  attempt_number INTEGER NOT NULL DEFAULT 1,
  status TEXT NOT NULL DEFAULT 'in_progress',
  started_at BIGINT,
  submitted_at BIGINT,
  reviewed_by TEXT REFERENCES staff(staff_id),
  reviewed_at BIGINT,
  reviewer_notes TEXT,
  approval_viewed BOOLEAN NOT NULL DEFAULT FALSE,
  score INTEGER,
  question_order TEXT,
  current_index INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_attempts_participant_assessment ON assessment_attempts(participant_id, assessment_id);
CREATE INDEX IF NOT EXISTS idx_attempts_status ON assessment_attempts(status);
CREATE INDEX IF NOT EXISTS idx_attempts_submitted ON assessment_attempts(submitted_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_one_active
  ON assessment_attempts(participant_id, assessment_id)
  WHERE status IN ('in_progress','needs_revision');

CREATE TABLE IF NOT EXISTS responses (
  response_id BIGSERIAL PRIMARY KEY,
  attempt_id BIGINT NOT NULL REFERENCES assessment_attempts(attempt_id),
  question_id BIGINT NOT NULL REFERENCES questions(question_id),
  response_text TEXT,
  selected_option_id BIGINT REFERENCES question_options(option_id),
  reviewer_comment TEXT,
  needs_revision BOOLEAN NOT NULL DEFAULT FALSE,
  updated_at BIGINT NOT NULL,
  UNIQUE(attempt_id, question_id)
);
CREATE INDEX IF NOT EXISTS idx_responses_attempt ON responses(attempt_id);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" BIGSERIAL PRIMARY KEY,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
