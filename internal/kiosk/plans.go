package kiosk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"packline/internal/clock"
	"packline/internal/ledger"
	"packline/internal/logging"
	"packline/internal/textutil"
)

// PlanStore persists shift plans.
type PlanStore interface {
	CreatePlan(ctx context.Context, shiftID int64, name string, items []string, ts float64) (int64, error)
	Plans(ctx context.Context, shiftID int64) ([]ledger.Plan, error)
	Plan(ctx context.Context, id int64) (*ledger.Plan, error)
	ActiveShifts(ctx context.Context) ([]ledger.Shift, error)
}

const defaultPlanName = "Shift plan"

// PlanUpload is a plan submitted by the operator: explicit items, or text
// with one SKU per line.
type PlanUpload struct {
	Name  string
	Text  string
	Items []string
}

// PlanSummary identifies a plan and its size.
type PlanSummary struct {
	ID    int64
	Name  string
	Count int
}

// PlanDetail is a plan with its SKUs.
type PlanDetail struct {
	PlanSummary
	Items []string
}

// PlanList is the active shift's plans and its selection.
type PlanList struct {
	ShiftID    int64
	Plans      []PlanSummary
	SelectedID int64
	Selected   *PlanDetail
}

// Plans manages the SKU lists uploaded for the active shift. The selected
// plan is kept in memory per shift.
type Plans struct {
	store    PlanStore
	settings *Settings
	clock    clock.Clock
	logger   *slog.Logger

	mu       sync.Mutex
	selected map[int64]int64
}

// NewPlans builds the plan service. Uploads are gated by the
// operator_can_edit_qty setting.
func NewPlans(store PlanStore, settings *Settings, clk clock.Clock, logger *slog.Logger) *Plans {
	if clk == nil {
		clk = clock.System{}
	}
	return &Plans{
		store:    store,
		settings: settings,
		clock:    clk,
		logger:   logging.NewComponentLogger(logger, "plans"),
		selected: make(map[int64]int64),
	}
}

// Upload stores a plan for the active shift.
func (p *Plans) Upload(ctx context.Context, upload PlanUpload) (PlanSummary, error) {
	shiftID, err := p.shift(ctx)
	if err != nil {
		return PlanSummary{}, err
	}
	allowed, err := p.settings.Allowed(ctx, KeyOperatorCanEditQty)
	if err != nil {
		return PlanSummary{}, err
	}
	if !allowed {
		return PlanSummary{}, fmt.Errorf("%w: editing the plan is disabled", ErrForbidden)
	}

	raw := upload.Items
	if len(raw) == 0 && upload.Text != "" {
		raw = strings.Split(strings.ReplaceAll(upload.Text, "\r\n", "\n"), "\n")
	}
	items := make([]string, 0, len(raw))
	for _, item := range raw {
		if sku := textutil.NormalizeScan(item); sku != "" {
			items = append(items, sku)
		}
	}
	if len(items) == 0 {
		return PlanSummary{}, fmt.Errorf("%w: plan has no SKUs", ErrValidation)
	}
	name := strings.TrimSpace(upload.Name)
	if name == "" {
		name = defaultPlanName
	}

	id, err := p.store.CreatePlan(ctx, shiftID, name, items, p.clock.Now())
	if err != nil {
		return PlanSummary{}, fmt.Errorf("store plan: %w", err)
	}
	logging.WithContext(ctx, p.logger).Info("plan uploaded",
		logging.Int64(logging.FieldShiftID, shiftID),
		logging.Int64("plan_id", id),
		logging.Int("items", len(items)),
	)
	return PlanSummary{ID: id, Name: name, Count: len(items)}, nil
}

// List returns the active shift's plans, newest first, with the selection.
func (p *Plans) List(ctx context.Context) (PlanList, error) {
	shiftID, err := p.shift(ctx)
	if err != nil {
		return PlanList{}, err
	}
	plans, err := p.store.Plans(ctx, shiftID)
	if err != nil {
		return PlanList{}, fmt.Errorf("list plans: %w", err)
	}
	out := PlanList{ShiftID: shiftID, Plans: make([]PlanSummary, 0, len(plans))}
	for _, plan := range plans {
		out.Plans = append(out.Plans, summarize(plan))
	}

	p.mu.Lock()
	selectedID := p.selected[shiftID]
	p.mu.Unlock()
	if selectedID == 0 {
		return out, nil
	}
	plan, err := p.store.Plan(ctx, selectedID)
	if errors.Is(err, ledger.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return PlanList{}, err
	}
	if plan.ShiftID == shiftID {
		out.SelectedID = selectedID
		detail := detailOf(*plan)
		out.Selected = &detail
	}
	return out, nil
}

// Select marks planID as the active shift's plan. A plan from another shift
// is reported as ledger.ErrNotFound.
func (p *Plans) Select(ctx context.Context, planID int64) (PlanDetail, error) {
	shiftID, err := p.shift(ctx)
	if err != nil {
		return PlanDetail{}, err
	}
	plan, err := p.store.Plan(ctx, planID)
	if err != nil {
		return PlanDetail{}, err
	}
	if plan.ShiftID != shiftID {
		return PlanDetail{}, fmt.Errorf("plan %d for shift %d: %w", planID, shiftID, ledger.ErrNotFound)
	}

	p.mu.Lock()
	p.selected[shiftID] = planID
	p.mu.Unlock()
	return detailOf(*plan), nil
}

func (p *Plans) shift(ctx context.Context) (int64, error) {
	id, err := activeShiftID(ctx, p.store)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, ErrNoShift
	}
	return id, nil
}

func summarize(plan ledger.Plan) PlanSummary {
	return PlanSummary{ID: plan.ID, Name: plan.Name, Count: len(plan.Items)}
}

func detailOf(plan ledger.Plan) PlanDetail {
	return PlanDetail{PlanSummary: summarize(plan), Items: plan.Items}
}
