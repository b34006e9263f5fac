// SPDX-License-Identifier: MPL-2.0

// Package graphdb exports a resolved build graph and its emitted actions to
// a SQLite database for ad-hoc queries ("which binaries link //base:log?").
package graphdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the export tables.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at dbPath with WAL mode and foreign keys
// enabled.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping database: %w", err), db.Close())
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables and indexes. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS packages (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  dir             TEXT NOT NULL,
  private         BOOLEAN NOT NULL DEFAULT FALSE,
  publish_only    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS rules (
  id              INTEGER PRIMARY KEY,
  package_id      INTEGER NOT NULL REFERENCES packages(id),
  label           TEXT NOT NULL UNIQUE,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  expanded        BOOLEAN NOT NULL DEFAULT FALSE
);

-- One row per resolved dependency, in declaration order.
CREATE TABLE IF NOT EXISTS edges (
  from_rule_id    INTEGER NOT NULL REFERENCES rules(id),
  to_rule_id      INTEGER NOT NULL REFERENCES rules(id),
  ordinal         INTEGER NOT NULL,
  PRIMARY KEY (from_rule_id, ordinal)
);

-- Link-order export list of a rule in one variant.
CREATE TABLE IF NOT EXISTS exports (
  rule_id         INTEGER NOT NULL REFERENCES rules(id),
  variant         TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  path            TEXT NOT NULL,
  PRIMARY KEY (rule_id, variant, ordinal)
);

CREATE TABLE IF NOT EXISTS actions (
  id              INTEGER PRIMARY KEY,
  kind            TEXT NOT NULL,
  rule_label      TEXT,
  variant         TEXT,
  phony           BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS action_outputs (
  action_id       INTEGER NOT NULL REFERENCES actions(id),
  path            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  PRIMARY KEY (action_id, ordinal)
);

CREATE TABLE IF NOT EXISTS action_prereqs (
  action_id       INTEGER NOT NULL REFERENCES actions(id),
  path            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  PRIMARY KEY (action_id, ordinal)
);

CREATE TABLE IF NOT EXISTS action_commands (
  action_id       INTEGER NOT NULL REFERENCES actions(id),
  ordinal         INTEGER NOT NULL,
  line            TEXT NOT NULL,
  PRIMARY KEY (action_id, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_rules_package ON rules(package_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_rule_id);
CREATE INDEX IF NOT EXISTS idx_actions_rule ON actions(rule_label);
CREATE INDEX IF NOT EXISTS idx_action_outputs_path ON action_outputs(path);
`

// clearTables lists tables children first so deletes satisfy foreign keys.
var clearTables = []string{
	"action_commands", "action_prereqs", "action_outputs", "actions",
	"exports", "edges", "rules", "packages",
}
