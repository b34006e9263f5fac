// SPDX-License-Identifier: MPL-2.0

package graphdb

import (
	"context"
	"fmt"
)

// Dependents returns the labels of every rule that reaches label through
// resolved dependencies, sorted.
func (s *Store) Dependents(ctx context.Context, label string) ([]string, error) {
	return s.labels(ctx, `
WITH RECURSIVE up(id) AS (
  SELECT e.from_rule_id FROM edges e JOIN rules r ON r.id = e.to_rule_id WHERE r.label = ?
  UNION
  SELECT e.from_rule_id FROM edges e JOIN up ON e.to_rule_id = up.id
)
SELECT r.label FROM rules r JOIN up ON r.id = up.id ORDER BY r.label`, label)
}

// Dependencies returns the direct resolved dependencies of label in
// declaration order.
func (s *Store) Dependencies(ctx context.Context, label string) ([]string, error) {
	return s.labels(ctx, `
SELECT t.label FROM edges e
JOIN rules f ON f.id = e.from_rule_id
JOIN rules t ON t.id = e.to_rule_id
WHERE f.label = ? ORDER BY e.ordinal`, label)
}

// ExportList returns the recorded link-order export paths of label.
func (s *Store) ExportList(ctx context.Context, label, variant string) ([]string, error) {
	return s.labels(ctx, `
SELECT x.path FROM exports x JOIN rules r ON r.id = x.rule_id
WHERE r.label = ? AND x.variant = ? ORDER BY x.ordinal`, label, variant)
}

// Producer returns the kind and rule of the action that writes path. ok is
// false when no action does.
func (s *Store) Producer(ctx context.Context, path string) (kind, rule string, ok bool, err error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT a.kind, COALESCE(a.rule_label, '') FROM actions a
JOIN action_outputs o ON o.action_id = a.id WHERE o.path = ?`, path)
	if err != nil {
		return "", "", false, fmt.Errorf("producer: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return "", "", false, rows.Err()
	}
	if err := rows.Scan(&kind, &rule); err != nil {
		return "", "", false, fmt.Errorf("producer: %w", err)
	}
	return kind, rule, true, nil
}

func (s *Store) labels(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
