package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/silica-hdl/silica/internal/ir"
)

// PutComponent stores an emitted specialization. Insert-or-ignore: the key
// is content-addressed, so a concurrent or earlier write of the same key
// holds the identical component.
func (c *Cache) PutComponent(ctx context.Context, comp *ir.Component) error {
	argsJSON, err := ir.MarshalCanonical(comp.Args)
	if err != nil {
		return fmt.Errorf("put specialization: %w", err)
	}
	compJSON, err := json.Marshal(comp)
	if err != nil {
		return fmt.Errorf("put specialization: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO specializations (key, def, args, component, session_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`, string(comp.Key), comp.Name, string(argsJSON), string(compJSON), c.session)
	if err != nil {
		return fmt.Errorf("put specialization: %w", err)
	}
	return nil
}

// GetComponent loads a cached specialization. The second return is false
// when the key has never been compiled into this cache.
func (c *Cache) GetComponent(ctx context.Context, key ir.Key) (*ir.Component, bool, error) {
	var compJSON string
	err := c.db.QueryRowContext(ctx, `
		SELECT component FROM specializations WHERE key = ?
	`, string(key)).Scan(&compJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get specialization: %w", err)
	}

	var comp ir.Component
	if err := json.Unmarshal([]byte(compJSON), &comp); err != nil {
		return nil, false, fmt.Errorf("get specialization %q: corrupt row: %w", key, err)
	}
	return &comp, true, nil
}

// PutModel stores a solved existential model for one concrete context.
func (c *Cache) PutModel(ctx context.Context, component string, args []int64, model map[string]int64) error {
	key, err := ir.ModelKey(component, args)
	if err != nil {
		return fmt.Errorf("put model: %w", err)
	}
	modelJSON, err := ir.MarshalCanonical(model)
	if err != nil {
		return fmt.Errorf("put model: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO models (key, component, model, session_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`, key, component, string(modelJSON), c.session)
	if err != nil {
		return fmt.Errorf("put model: %w", err)
	}
	return nil
}

// GetModel loads the solved model for a concrete context, if present.
func (c *Cache) GetModel(ctx context.Context, component string, args []int64) (map[string]int64, bool, error) {
	key, err := ir.ModelKey(component, args)
	if err != nil {
		return nil, false, fmt.Errorf("get model: %w", err)
	}

	var modelJSON string
	err = c.db.QueryRowContext(ctx, `
		SELECT model FROM models WHERE key = ?
	`, key).Scan(&modelJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get model: %w", err)
	}

	model := make(map[string]int64)
	if err := json.Unmarshal([]byte(modelJSON), &model); err != nil {
		return nil, false, fmt.Errorf("get model %q: corrupt row: %w", key, err)
	}
	return model, true, nil
}
