package storage

import (
	"database/sql"
	"time"

	"github.com/checkgate/checkgate/internal/policy"
)

// EvalRow is a lightweight listing row for /evaluations.
type EvalRow struct {
	ID               string    `json:"id"`
	StartedAt        time.Time `json:"started_at"`
	Source           string    `json:"source,omitempty"`
	PolicyName       string    `json:"policy_name,omitempty"`
	Status           string    `json:"status"`
	RequiredFailures int       `json:"required_failures"`
}

// ListEvaluations returns a newest-first page of evaluations with counts.
func (db *DB) ListEvaluations(limit, offset int) ([]EvalRow, error) {
	const q = `
		SELECT e.id, e.started_at, COALESCE(e.source,''), COALESCE(e.policy_name,''), e.status,
		       (SELECT COUNT(1) FROM results r
		         WHERE r.eval_id = e.id AND r.required = 1 AND r.outcome != 'PASS' AND r.waived = 0) AS req_failures
		  FROM evaluations e
		 ORDER BY e.started_at DESC, e.id DESC
		 LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EvalRow
	for rows.Next() {
		var er EvalRow
		var startedAtStr string
		if err := rows.Scan(&er.ID, &startedAtStr, &er.Source, &er.PolicyName, &er.Status, &er.RequiredFailures); err != nil {
			return nil, err
		}
		er.StartedAt = parseTS(startedAtStr)
		out = append(out, er)
	}
	return out, rows.Err()
}

// ListResults returns an evaluation's per-rule rows, optionally narrowed by
// category and outcome. Worst outcomes sort first for readable reports.
func (db *DB) ListResults(evalID, category, outcome string) ([]policy.RuleResult, error) {
	q := `
		SELECT rule_id, category, required, outcome, waived
		  FROM results
		 WHERE eval_id = ?`
	args := []any{evalID}
	if category != "" {
		q += ` AND category = ?`
		args = append(args, category)
	}
	if outcome != "" {
		q += ` AND outcome = ?`
		args = append(args, outcome)
	}
	q += `
		 ORDER BY
		       (CASE outcome WHEN 'FAIL' THEN 0 WHEN 'NOT_EVALUATED' THEN 1 ELSE 2 END),
		       required DESC, rule_id`
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []policy.RuleResult
	for rows.Next() {
		var (
			rr            policy.RuleResult
			cat, oc       string
			reqI, waivedI int
		)
		if err := rows.Scan(&rr.RuleID, &cat, &reqI, &oc, &waivedI); err != nil {
			return nil, err
		}
		rr.Category = policy.Category(cat)
		rr.Outcome = policy.Outcome(oc)
		rr.Required = reqI == 1
		rr.Waived = waivedI == 1
		out = append(out, rr)
	}
	return out, rows.Err()
}

// HasEvaluation reports whether an evaluation exists.
func (db *DB) HasEvaluation(id string) (bool, error) {
	const q = `SELECT 1 FROM evaluations WHERE id = ? LIMIT 1`
	var one int
	err := db.conn.QueryRow(q, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func parseTS(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
