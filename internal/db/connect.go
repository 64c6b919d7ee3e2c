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
		// foreign_keys is per-connection in sqlite, so it has to ride in
		// the DSN to cover every pooled connection. User-supplied DSNs
		// should carry it too.
		if dsn == "" {
			dsn = "file:cutline.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/cutline?sslmode=disable"
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

CREATE TABLE IF NOT EXISTS subjects (
  exam_id TEXT NOT NULL,
  exam_type TEXT NOT NULL,
  name TEXT NOT NULL,
  question_count INTEGER NOT NULL,
  point_per_question REAL NOT NULL,
  max_score REAL NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (exam_id, exam_type, name)
);

CREATE TABLE IF NOT EXISTS answer_keys (
  exam_id TEXT NOT NULL,
  exam_type TEXT NOT NULL,
  subject TEXT NOT NULL,
  question INTEGER NOT NULL,
  correct_answer INTEGER NOT NULL,
  PRIMARY KEY (exam_id, exam_type, subject, question)
);

CREATE TABLE IF NOT EXISTS answer_key_audit (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  exam_id TEXT NOT NULL,
  exam_type TEXT NOT NULL,
  subject TEXT NOT NULL,
  question INTEGER NOT NULL,
  old_answer INTEGER NOT NULL,
  new_answer INTEGER NOT NULL,
  admin_id TEXT NOT NULL,
  edited_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS exam_region_quotas (
  exam_id TEXT NOT NULL,
  region TEXT NOT NULL,
  recruit_count INTEGER NOT NULL,
  career_recruit_count INTEGER NOT NULL DEFAULT 0,
  applicant_count INTEGER,
  exam_number_from INTEGER,
  exam_number_to INTEGER,
  PRIMARY KEY (exam_id, region)
);

CREATE TABLE IF NOT EXISTS submissions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  exam_id TEXT NOT NULL,
  exam_type TEXT NOT NULL,
  region TEXT NOT NULL,
  gender TEXT NOT NULL DEFAULT '',
  exam_number TEXT NOT NULL DEFAULT '',
  total_score REAL NOT NULL,
  final_score REAL NOT NULL,
  bonus_type TEXT NOT NULL,
  bonus_rate REAL NOT NULL,
  is_suspicious INTEGER NOT NULL DEFAULT 0,
  suspicion_reasons TEXT NOT NULL DEFAULT '[]',
  duration_sec INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  UNIQUE (user_id, exam_id, exam_type)
);

CREATE TABLE IF NOT EXISTS subject_scores (
  submission_id TEXT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
  subject TEXT NOT NULL,
  raw_score REAL NOT NULL,
  is_failed INTEGER NOT NULL,
  PRIMARY KEY (submission_id, subject)
);

CREATE TABLE IF NOT EXISTS user_answers (
  submission_id TEXT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
  subject TEXT NOT NULL,
  question INTEGER NOT NULL,
  selected INTEGER NOT NULL,
  is_correct INTEGER NOT NULL,
  PRIMARY KEY (submission_id, subject, question)
);

CREATE TABLE IF NOT EXISTS rescore_events (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL,
  exam_type TEXT NOT NULL DEFAULT '',
  admin_id TEXT NOT NULL,
  reason TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rescore_details (
  event_id TEXT NOT NULL REFERENCES rescore_events(id) ON DELETE CASCADE,
  submission_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  old_score REAL NOT NULL,
  new_score REAL NOT NULL,
  is_read INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (event_id, submission_id)
);

CREATE TABLE IF NOT EXISTS pass_cut_releases (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL,
  release_number INTEGER NOT NULL,
  participant_count INTEGER NOT NULL,
  created_by TEXT NOT NULL,
  memo TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  UNIQUE (exam_id, release_number)
);

CREATE TABLE IF NOT EXISTS pass_cut_snapshots (
  release_id TEXT NOT NULL REFERENCES pass_cut_releases(id) ON DELETE CASCADE,
  region TEXT NOT NULL,
  exam_type TEXT NOT NULL,
  participant_count INTEGER NOT NULL,
  recruit_count INTEGER NOT NULL,
  applicant_count INTEGER NOT NULL DEFAULT 0,
  coverage_rate REAL NOT NULL DEFAULT 0,
  stability_score REAL NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  one_multiple_cut_score REAL,
  sure_score REAL,
  likely_score REAL,
  possible_score REAL,
  PRIMARY KEY (release_id, region, exam_type)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS subjects (
  exam_id TEXT NOT NULL,
  exam_type TEXT NOT NULL,
  name TEXT NOT NULL,
  question_count INTEGER NOT NULL,
  point_per_question DOUBLE PRECISION NOT NULL,
  max_score DOUBLE PRECISION NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (exam_id, exam_type, name)
);

CREATE TABLE IF NOT EXISTS answer_keys (
  exam_id TEXT NOT NULL,
  exam_type TEXT NOT NULL,
  subject TEXT NOT NULL,
  question INTEGER NOT NULL,
  correct_answer INTEGER NOT NULL,
  PRIMARY KEY (exam_id, exam_type, subject, question)
);

CREATE TABLE IF NOT EXISTS answer_key_audit (
  id BIGSERIAL PRIMARY KEY,
  exam_id TEXT NOT NULL,
  exam_type TEXT NOT NULL,
  subject TEXT NOT NULL,
  question INTEGER NOT NULL,
  old_answer INTEGER NOT NULL,
  new_answer INTEGER NOT NULL,
  admin_id TEXT NOT NULL,
  edited_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS exam_region_quotas (
  exam_id TEXT NOT NULL,
  region TEXT NOT NULL,
  recruit_count INTEGER NOT NULL,
  career_recruit_count INTEGER NOT NULL DEFAULT 0,
  applicant_count INTEGER,
  exam_number_from INTEGER,
  exam_number_to INTEGER,
  PRIMARY KEY (exam_id, region)
);

CREATE TABLE IF NOT EXISTS submissions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  exam_id TEXT NOT NULL,
  exam_type TEXT NOT NULL,
  region TEXT NOT NULL,
  gender TEXT NOT NULL DEFAULT '',
  exam_number TEXT NOT NULL DEFAULT '',
  total_score DOUBLE PRECISION NOT NULL,
  final_score DOUBLE PRECISION NOT NULL,
  bonus_type TEXT NOT NULL,
  bonus_rate DOUBLE PRECISION NOT NULL,
  is_suspicious BOOLEAN NOT NULL DEFAULT FALSE,
  suspicion_reasons TEXT NOT NULL DEFAULT '[]',
  duration_sec INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL,
  UNIQUE (user_id, exam_id, exam_type)
);

CREATE TABLE IF NOT EXISTS subject_scores (
  submission_id TEXT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
  subject TEXT NOT NULL,
  raw_score DOUBLE PRECISION NOT NULL,
  is_failed BOOLEAN NOT NULL,
  PRIMARY KEY (submission_id, subject)
);

CREATE TABLE IF NOT EXISTS user_answers (
  submission_id TEXT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
  subject TEXT NOT NULL,
  question INTEGER NOT NULL,
  selected INTEGER NOT NULL,
  is_correct BOOLEAN NOT NULL,
  PRIMARY KEY (submission_id, subject, question)
);

CREATE TABLE IF NOT EXISTS rescore_events (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL,
  exam_type TEXT NOT NULL DEFAULT '',
  admin_id TEXT NOT NULL,
  reason TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS rescore_details (
  event_id TEXT NOT NULL REFERENCES rescore_events(id) ON DELETE CASCADE,
  submission_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  old_score DOUBLE PRECISION NOT NULL,
  new_score DOUBLE PRECISION NOT NULL,
  is_read BOOLEAN NOT NULL DEFAULT FALSE,
  PRIMARY KEY (event_id, submission_id)
);

CREATE TABLE IF NOT EXISTS pass_cut_releases (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL,
  release_number INTEGER NOT NULL,
  participant_count INTEGER NOT NULL,
  created_by TEXT NOT NULL,
  memo TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL,
  UNIQUE (exam_id, release_number)
);

CREATE TABLE IF NOT EXISTS pass_cut_snapshots (
  release_id TEXT NOT NULL REFERENCES pass_cut_releases(id) ON DELETE CASCADE,
  region TEXT NOT NULL,
  exam_type TEXT NOT NULL,
  participant_count INTEGER NOT NULL,
  recruit_count INTEGER NOT NULL,
  applicant_count INTEGER NOT NULL DEFAULT 0,
  coverage_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
  stability_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  one_multiple_cut_score DOUBLE PRECISION,
  sure_score DOUBLE PRECISION,
  likely_score DOUBLE PRECISION,
  possible_score DOUBLE PRECISION,
  PRIMARY KEY (release_id, region, exam_type)
);
`
