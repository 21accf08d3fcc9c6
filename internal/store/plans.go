package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/linkage/internal/ir"
)

// ErrNotFound is returned when no plan matches a lookup.
var ErrNotFound = errors.New("plan not found")

// Record is a stored plan.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Hash      string    `json:"hash"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	Plan      *ir.Plan  `json:"plan"`
	Warnings  []string  `json:"warnings"`
}

// SavePlan stores p with the warnings raised while building it.
// Uses ON CONFLICT(hash) DO NOTHING for idempotency: saving a plan whose
// hash already exists returns the existing record unchanged.
func (s *Store) SavePlan(ctx context.Context, p *ir.Plan, warnings []string) (Record, error) {
	if p.Hash == "" {
		return Record{}, fmt.Errorf("save plan %q: plan has no hash", p.Name)
	}
	planJSON, err := marshalPlan(p)
	if err != nil {
		return Record{}, fmt.Errorf("save plan: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("save plan: %w", err)
	}
	defer tx.Rollback()

	id := s.ids.NewID()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO plans
		(id, name, hash, kind, plan, planner_version, ir_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`,
		id,
		p.Name,
		p.Hash,
		string(p.Kind),
		planJSON,
		p.PlannerVersion,
		p.IRVersion,
		s.clock.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Record{}, fmt.Errorf("save plan: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return Record{}, fmt.Errorf("save plan: %w", err)
	}
	if inserted > 0 {
		for i, w := range warnings {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO plan_warnings (plan_id, seq, message) VALUES (?, ?, ?)`,
				id, i, w,
			); err != nil {
				return Record{}, fmt.Errorf("save plan warnings: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("save plan: %w", err)
	}
	return s.GetPlan(ctx, p.Hash)
}

// GetPlan returns the plan whose id or hash equals ref. A unique hash
// prefix of at least 8 characters is also accepted.
func (s *Store) GetPlan(ctx context.Context, ref string) (Record, error) {
	if ref == "" {
		return Record{}, ErrNotFound
	}
	query := `
		SELECT id, name, hash, kind, plan, created_at
		FROM plans
		WHERE id = ? OR hash = ?
	`
	args := []any{ref, ref}
	if len(ref) >= 8 && len(ref) < 64 {
		query += ` OR hash LIKE ? ESCAPE '\'`
		args = append(args, escapeLike(ref)+"%")
	}
	query += ` ORDER BY created_at ASC, id COLLATE BINARY ASC LIMIT 2`

	recs, err := s.queryPlans(ctx, query, args...)
	if err != nil {
		return Record{}, fmt.Errorf("get plan: %w", err)
	}
	switch len(recs) {
	case 0:
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return recs[0], nil
	}
	return Record{}, fmt.Errorf("get plan: %q is ambiguous", ref)
}

// ListPlans returns stored plans ordered by creation. An empty name lists
// every plan.
//
// Returns an empty slice (not nil) if no plans exist.
func (s *Store) ListPlans(ctx context.Context, name string) ([]Record, error) {
	query := `SELECT id, name, hash, kind, plan, created_at FROM plans`
	var args []any
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY created_at ASC, id COLLATE BINARY ASC`

	recs, err := s.queryPlans(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// DeletePlan removes the plan with the given id along with its warnings.
func (s *Store) DeletePlan(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) queryPlans(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	// Release the single connection before reading warnings.
	rows.Close()

	for i := range recs {
		w, err := s.readWarnings(ctx, recs[i].ID)
		if err != nil {
			return nil, err
		}
		recs[i].Warnings = w
	}
	return recs, nil
}

func (s *Store) readWarnings(ctx context.Context, planID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message FROM plan_warnings WHERE plan_id = ? ORDER BY seq ASC`, planID)
	if err != nil {
		return nil, fmt.Errorf("query warnings: %w", err)
	}
	defer rows.Close()

	warnings := []string{}
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		warnings = append(warnings, w)
	}
	return warnings, rows.Err()
}

func scanPlan(rows *sql.Rows) (Record, error) {
	var rec Record
	var planJSON, created string
	if err := rows.Scan(&rec.ID, &rec.Name, &rec.Hash, &rec.Kind, &planJSON, &created); err != nil {
		return Record{}, fmt.Errorf("scan plan: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = t

	p, err := unmarshalPlan(planJSON)
	if err != nil {
		return Record{}, err
	}
	rec.Plan = p
	return rec, nil
}

// marshalPlan converts a plan to JSON TEXT for storage.
// HTML escaping is disabled so DDL with < and > is stored verbatim.
func marshalPlan(p *ir.Plan) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalPlan(data string) (*ir.Plan, error) {
	var p ir.Plan
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	return &p, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
