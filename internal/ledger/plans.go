package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Plan is an uploaded list of SKUs to pack during one shift.
type Plan struct {
	ID        int64
	ShiftID   int64
	Name      string
	CreatedAt float64
	Items     []string
}

// CreatePlan stores a plan for the shift and returns its identifier.
func (s *Store) CreatePlan(ctx context.Context, shiftID int64, name string, items []string, ts float64) (int64, error) {
	if shiftID <= 0 {
		return 0, fmt.Errorf("%w: plan requires a shift", ErrInvalidArgument)
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("%w: plan has no items", ErrInvalidArgument)
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return 0, fmt.Errorf("encode plan items: %w", err)
	}
	res, err := s.execWithRetry(ctx,
		"INSERT INTO shift_plans (shift_id, name, created_at, items_json) VALUES (?, ?, ?, ?)",
		shiftID, strings.TrimSpace(name), ts, string(encoded),
	)
	if err != nil {
		return 0, fmt.Errorf("insert plan: %w", err)
	}
	return res.LastInsertId()
}

// Plans lists a shift's plans, newest first.
func (s *Store) Plans(ctx context.Context, shiftID int64) ([]Plan, error) {
	return s.queryPlans(ctx,
		"SELECT id, shift_id, name, created_at, items_json FROM shift_plans WHERE shift_id = ? ORDER BY created_at DESC, id DESC",
		shiftID)
}

// Plan loads one plan by identifier.
func (s *Store) Plan(ctx context.Context, id int64) (*Plan, error) {
	plans, err := s.queryPlans(ctx, "SELECT id, shift_id, name, created_at, items_json FROM shift_plans WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("plan %d: %w", id, ErrNotFound)
	}
	return &plans[0], nil
}

func (s *Store) queryPlans(ctx context.Context, query string, args ...any) ([]Plan, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		var (
			plan  Plan
			items string
		)
		if err := rows.Scan(&plan.ID, &plan.ShiftID, &plan.Name, &plan.CreatedAt, &items); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		if err := json.Unmarshal([]byte(items), &plan.Items); err != nil {
			return nil, fmt.Errorf("decode plan %d items: %w", plan.ID, err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}
