package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/checkgate/checkgate/internal/gate"
)

// DB is the concrete storage backed by SQLite.
type DB struct {
	conn *sql.DB
}

// ErrNotFound is returned when a requested evaluation does not exist.
var ErrNotFound = errors.New("not found")

// OpenSQLite opens (and creates if missing) a SQLite DB at path.
func OpenSQLite(path string) (*DB, error) {
	// Pragmas via DSN keep it portable with the modernc driver.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{conn: c}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// CreateSchema ensures all tables exist.
func (db *DB) CreateSchema() error {
	_, err := db.conn.Exec(`
CREATE TABLE IF NOT EXISTS evaluations (
  id             TEXT PRIMARY KEY,
  started_at     TEXT,          -- RFC3339
  source         TEXT,
  policy_name    TEXT,
  schema_version TEXT,
  status         TEXT NOT NULL,
  eval_json      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
  eval_id  TEXT NOT NULL,
  rule_id  TEXT NOT NULL,
  category TEXT,
  required INTEGER NOT NULL DEFAULT 0,
  outcome  TEXT NOT NULL,
  waived   INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (eval_id, rule_id),
  FOREIGN KEY(eval_id) REFERENCES evaluations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_results_eval ON results(eval_id);
CREATE INDEX IF NOT EXISTS idx_results_rule ON results(rule_id);

CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT UNIQUE NOT NULL,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'viewer',
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
  token TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL,
  FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS audit (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts TEXT NOT NULL,
  username TEXT,
  action TEXT NOT NULL,
  resource TEXT,
  meta_json TEXT
);

CREATE TABLE IF NOT EXISTS waivers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  rule_id    TEXT NOT NULL,
  source     TEXT,              -- optional exact match; NULL = any
  reason     TEXT NOT NULL,
  expires_at TEXT NOT NULL,     -- RFC3339Nano
  created_by TEXT NOT NULL,
  created_at TEXT NOT NULL,
  revoked_at TEXT               -- NULL = active
);
`)
	return err
}

// SaveEvaluation upserts an evaluation JSON and (re)writes its result rows.
func (db *DB) SaveEvaluation(ev *gate.Evaluation) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ts := ev.StartedAt.UTC().Format(time.RFC3339Nano)

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO evaluations (id, started_at, source, policy_name, schema_version, status, eval_json)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET started_at=excluded.started_at, source=excluded.source,
             policy_name=excluded.policy_name, schema_version=excluded.schema_version,
             status=excluded.status, eval_json=excluded.eval_json`,
		ev.ID, ts, ev.Source, ev.PolicyName, ev.SchemaVersion, string(ev.Result.Status), string(b),
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM results WHERE eval_id = ?`, ev.ID); err != nil {
		return err
	}
	if len(ev.Result.Rules) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO results (eval_id, rule_id, category, required, outcome, waived)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, rr := range ev.Result.Rules {
			if _, err := stmt.Exec(
				ev.ID,
				rr.RuleID,
				string(rr.Category),
				boolInt(rr.Required),
				string(rr.Outcome),
				boolInt(rr.Waived),
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadEvaluation returns the full evaluation (from stored JSON).
func (db *DB) LoadEvaluation(id string) (gate.Evaluation, error) {
	var s string
	row := db.conn.QueryRow(`SELECT eval_json FROM evaluations WHERE id = ?`, id)
	if err := row.Scan(&s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gate.Evaluation{}, ErrNotFound
		}
		return gate.Evaluation{}, err
	}
	var ev gate.Evaluation
	if err := json.Unmarshal([]byte(s), &ev); err != nil {
		return gate.Evaluation{}, err
	}
	return ev, nil
}

// LoadLatestEvaluation returns the most recently started evaluation.
func (db *DB) LoadLatestEvaluation() (gate.Evaluation, error) {
	var id string
	row := db.conn.QueryRow(`SELECT id FROM evaluations ORDER BY started_at DESC, id DESC LIMIT 1`)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gate.Evaluation{}, ErrNotFound
		}
		return gate.Evaluation{}, err
	}
	return db.LoadEvaluation(id)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
