package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/silica-hdl/silica/internal/ir"
)

// Filter narrows cache listings. Zero fields match everything. Values are
// always passed as SQL parameters, never interpolated.
type Filter struct {
	// Def matches the definition (specializations) or component (models) name.
	Def string
	// Session matches rows written by one compile session.
	Session string
}

// SpecRow is one cached specialization, without the component body.
type SpecRow struct {
	Key     ir.Key
	Def     string
	Args    []int64
	Session string
}

// ModelRow is one cached existential model.
type ModelRow struct {
	Key       string
	Component string
	Model     map[string]int64
	Session   string
}

// SessionRow is one recorded compile session.
type SessionRow struct {
	ID              string
	CreatedAt       string
	CompilerVersion string
	IRVersion       string
}

// ListSpecializations returns cached specializations matching the filter,
// ordered by definition name then key so output is stable run to run.
func (c *Cache) ListSpecializations(ctx context.Context, f Filter) ([]SpecRow, error) {
	where, params := compileFilter(f, "def")
	rows, err := c.db.QueryContext(ctx,
		"SELECT key, def, args, session_id FROM specializations"+where+" ORDER BY def, key", params...)
	if err != nil {
		return nil, fmt.Errorf("list specializations: %w", err)
	}
	defer rows.Close()

	var out []SpecRow
	for rows.Next() {
		var row SpecRow
		var key, argsJSON string
		if err := rows.Scan(&key, &row.Def, &argsJSON, &row.Session); err != nil {
			return nil, fmt.Errorf("list specializations: %w", err)
		}
		row.Key = ir.Key(key)
		if err := json.Unmarshal([]byte(argsJSON), &row.Args); err != nil {
			return nil, fmt.Errorf("list specializations %q: corrupt args: %w", key, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListModels returns cached existential models matching the filter, ordered
// by component name then key.
func (c *Cache) ListModels(ctx context.Context, f Filter) ([]ModelRow, error) {
	where, params := compileFilter(f, "component")
	rows, err := c.db.QueryContext(ctx,
		"SELECT key, component, model, session_id FROM models"+where+" ORDER BY component, key", params...)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var out []ModelRow
	for rows.Next() {
		var row ModelRow
		var modelJSON string
		if err := rows.Scan(&row.Key, &row.Component, &modelJSON, &row.Session); err != nil {
			return nil, fmt.Errorf("list models: %w", err)
		}
		row.Model = make(map[string]int64)
		if err := json.Unmarshal([]byte(modelJSON), &row.Model); err != nil {
			return nil, fmt.Errorf("list models %q: corrupt model: %w", row.Key, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListSessions returns all recorded compile sessions, oldest first.
func (c *Cache) ListSessions(ctx context.Context) ([]SessionRow, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, created_at, compiler_version, ir_version FROM sessions ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var row SessionRow
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.CompilerVersion, &row.IRVersion); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// compileFilter renders a Filter as a parameterized WHERE clause. nameCol is
// the table's name column ("def" or "component").
func compileFilter(f Filter, nameCol string) (string, []any) {
	var clauses []string
	var params []any
	if f.Def != "" {
		clauses = append(clauses, nameCol+" = ?")
		params = append(params, f.Def)
	}
	if f.Session != "" {
		clauses = append(clauses, "session_id = ?")
		params = append(params, f.Session)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), params
}
