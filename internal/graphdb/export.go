// SPDX-License-Identifier: MPL-2.0

package graphdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mkgen/mkgen/internal/graph"
	"github.com/mkgen/mkgen/internal/recipe"
)

type (
	// Snapshot is everything one export writes.
	Snapshot struct {
		Packages []*graph.Package
		Actions  []recipe.Action
		// Variants whose export lists are recorded.
		Variants []string
		// Exports returns a rule's link-order export paths. Nil skips the
		// exports table.
		Exports func(r *graph.Rule, variant string) []string
	}

	// Counts reports the rows written per table.
	Counts struct {
		Packages int
		Rules    int
		Edges    int
		Exports  int
		Actions  int
	}
)

// Export replaces the database contents with snap in one transaction.
// Edges to rules outside snap.Packages are an error.
func (s *Store) Export(ctx context.Context, snap Snapshot) (Counts, error) {
	var counts Counts

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("export: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range clearTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return counts, fmt.Errorf("export: clear %s: %w", table, err)
		}
	}

	ruleIDs := make(map[*graph.Rule]int64)
	for _, p := range snap.Packages {
		pkgID, err := insertTx(ctx, tx,
			"INSERT INTO packages (path, dir, private, publish_only) VALUES (?, ?, ?, ?)",
			p.Path, p.Dir, p.Private, p.PublishOnly,
		)
		if err != nil {
			return counts, fmt.Errorf("export: package %s: %w", p, err)
		}
		counts.Packages++

		for _, r := range p.Rules() {
			id, err := insertTx(ctx, tx,
				"INSERT INTO rules (package_id, label, name, kind, expanded) VALUES (?, ?, ?, ?, ?)",
				pkgID, r.ID(), r.Name, string(r.Kind), r.Expanded(),
			)
			if err != nil {
				return counts, fmt.Errorf("export: rule %s: %w", r, err)
			}
			ruleIDs[r] = id
			counts.Rules++
		}
	}

	for _, p := range snap.Packages {
		for _, r := range p.Rules() {
			for i, dep := range r.Resolved() {
				depID, ok := ruleIDs[dep]
				if !ok {
					return counts, fmt.Errorf("export: %s depends on %s, which is not in the snapshot", r, dep)
				}
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO edges (from_rule_id, to_rule_id, ordinal) VALUES (?, ?, ?)",
					ruleIDs[r], depID, i,
				); err != nil {
					return counts, fmt.Errorf("export: edge %s -> %s: %w", r, dep, err)
				}
				counts.Edges++
			}

			if snap.Exports == nil || !r.Expanded() {
				continue
			}
			for _, v := range snap.Variants {
				for i, path := range snap.Exports(r, v) {
					if _, err := tx.ExecContext(ctx,
						"INSERT INTO exports (rule_id, variant, ordinal, path) VALUES (?, ?, ?, ?)",
						ruleIDs[r], v, i, path,
					); err != nil {
						return counts, fmt.Errorf("export: exports of %s: %w", r, err)
					}
					counts.Exports++
				}
			}
		}
	}

	for _, a := range snap.Actions {
		if err := insertActionTx(ctx, tx, a); err != nil {
			return counts, fmt.Errorf("export: action %s: %w", a.Output(), err)
		}
		counts.Actions++
	}

	if err := tx.Commit(); err != nil {
		return counts, fmt.Errorf("export: commit: %w", err)
	}
	return counts, nil
}

func insertActionTx(ctx context.Context, tx *sql.Tx, a recipe.Action) error {
	id, err := insertTx(ctx, tx,
		"INSERT INTO actions (kind, rule_label, variant, phony) VALUES (?, ?, ?, ?)",
		string(a.Kind), nullable(a.Rule), nullable(a.Variant), a.Phony,
	)
	if err != nil {
		return err
	}
	for i, out := range a.Outputs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO action_outputs (action_id, path, ordinal) VALUES (?, ?, ?)", id, out, i); err != nil {
			return err
		}
	}
	for i, pre := range a.Prereqs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO action_prereqs (action_id, path, ordinal) VALUES (?, ?, ?)", id, pre, i); err != nil {
			return err
		}
	}
	for i, argv := range a.Commands {
		line, err := recipe.ShellLine(argv)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO action_commands (action_id, ordinal, line) VALUES (?, ?, ?)", id, i, line); err != nil {
			return err
		}
	}
	return nil
}

func insertTx(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
