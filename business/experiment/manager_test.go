package experiment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/datatypes"

	"stumbleDiscovery/domain"
)

type fakeExperimentRepo struct {
	experiments map[string]domain.Experiment
	assignments map[string]domain.Assignment
	events      []domain.ExperimentEvent
	counts      []domain.VariantCounts

	insertHook func() error
	eventErr   error
}

func newFakeExperimentRepo() *fakeExperimentRepo {
	return &fakeExperimentRepo{
		experiments: make(map[string]domain.Experiment),
		assignments: make(map[string]domain.Assignment),
	}
}

func assignmentKey(userID uint, experimentID string) string {
	return fmt.Sprintf("%d|%s", userID, experimentID)
}

func (f *fakeExperimentRepo) Create(_ context.Context, exp domain.Experiment) error {
	f.experiments[exp.ID] = exp
	return nil
}

func (f *fakeExperimentRepo) GetByID(_ context.Context, id string) (domain.Experiment, error) {
	exp, ok := f.experiments[id]
	if !ok {
		return domain.Experiment{}, domain.ErrExperimentNotFound
	}
	return exp, nil
}

func (f *fakeExperimentRepo) List(_ context.Context) ([]domain.Experiment, error) {
	out := make([]domain.Experiment, 0, len(f.experiments))
	for _, exp := range f.experiments {
		out = append(out, exp)
	}
	return out, nil
}

func (f *fakeExperimentRepo) ListByStatus(_ context.Context, status string) ([]domain.Experiment, error) {
	var out []domain.Experiment
	for _, exp := range f.experiments {
		if exp.Status == status {
			out = append(out, exp)
		}
	}
	return out, nil
}

func (f *fakeExperimentRepo) Update(_ context.Context, exp domain.Experiment) error {
	if _, ok := f.experiments[exp.ID]; !ok {
		return domain.ErrExperimentNotFound
	}
	f.experiments[exp.ID] = exp
	return nil
}

func (f *fakeExperimentRepo) GetAssignment(_ context.Context, userID uint, experimentID string) (*domain.Assignment, error) {
	a, ok := f.assignments[assignmentKey(userID, experimentID)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (f *fakeExperimentRepo) InsertAssignment(_ context.Context, assignment domain.Assignment) error {
	if f.insertHook != nil {
		if err := f.insertHook(); err != nil {
			return err
		}
	}
	key := assignmentKey(assignment.UserID, assignment.ExperimentID)
	if _, exists := f.assignments[key]; exists {
		return domain.ErrAssignmentConflict
	}
	f.assignments[key] = assignment
	return nil
}

func (f *fakeExperimentRepo) AppendEvent(_ context.Context, event domain.ExperimentEvent) error {
	if f.eventErr != nil {
		return f.eventErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeExperimentRepo) VariantCounts(_ context.Context, _ string) ([]domain.VariantCounts, error) {
	return f.counts, nil
}

func twoVariants() []domain.Variant {
	return []domain.Variant{
		{Name: "control", Allocation: 50},
		{Name: "treatment", Allocation: 50, Weights: datatypes.JSONMap{"trending_span": 0.5}},
	}
}

func TestCreateValidatesAllocations(t *testing.T) {
	m := NewManager(newFakeExperimentRepo())
	ctx := context.Background()

	cases := []struct {
		name     string
		variants []domain.Variant
	}{
		{"empty", nil},
		{"sums under 100", []domain.Variant{{Name: "a", Allocation: 60}, {Name: "b", Allocation: 30}}},
		{"sums over 100", []domain.Variant{{Name: "a", Allocation: 60}, {Name: "b", Allocation: 60}}},
		{"negative allocation", []domain.Variant{{Name: "a", Allocation: 150}, {Name: "b", Allocation: -50}}},
		{"duplicate names", []domain.Variant{{Name: "a", Allocation: 50}, {Name: "a", Allocation: 50}}},
		{"missing name", []domain.Variant{{Name: "", Allocation: 100}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Create(ctx, "exp", tc.variants)
			var invalid *domain.InvalidExperimentConfigError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected an invalid-config error, got %v", err)
			}
		})
	}

	exp, err := m.Create(ctx, "exp", twoVariants())
	if err != nil {
		t.Fatalf("a valid variant set must be accepted: %v", err)
	}
	if exp.Status != domain.ExperimentDraft {
		t.Fatalf("new experiments start as drafts, got %s", exp.Status)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	repo := newFakeExperimentRepo()
	m := NewManager(repo)
	ctx := context.Background()

	exp, err := m.Create(ctx, "exp", twoVariants())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// draft cannot pause or complete
	if _, err := m.Pause(ctx, exp.ID); err == nil {
		t.Fatal("draft -> paused must be rejected")
	}
	if _, err := m.Complete(ctx, exp.ID, ""); err == nil {
		t.Fatal("draft -> completed must be rejected")
	}

	if _, err := m.Activate(ctx, exp.ID); err != nil {
		t.Fatalf("draft -> active: %v", err)
	}
	if _, err := m.Pause(ctx, exp.ID); err != nil {
		t.Fatalf("active -> paused: %v", err)
	}
	if _, err := m.Activate(ctx, exp.ID); err != nil {
		t.Fatalf("paused -> active: %v", err)
	}

	done, err := m.Complete(ctx, exp.ID, "treatment")
	if err != nil {
		t.Fatalf("active -> completed: %v", err)
	}
	if done.WinningVariant != "treatment" {
		t.Fatalf("winner not recorded, got %q", done.WinningVariant)
	}

	// completed is terminal
	if _, err := m.Activate(ctx, exp.ID); err == nil {
		t.Fatal("completed -> active must be rejected")
	}
	var transition *domain.InvalidTransitionError
	if _, err := m.Pause(ctx, exp.ID); !errors.As(err, &transition) {
		t.Fatalf("expected an invalid-transition error, got %v", err)
	}
}

func TestCompleteRejectsUnknownWinner(t *testing.T) {
	m := NewManager(newFakeExperimentRepo())
	ctx := context.Background()

	exp, _ := m.Create(ctx, "exp", twoVariants())
	if _, err := m.Activate(ctx, exp.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	var invalid *domain.InvalidExperimentConfigError
	if _, err := m.Complete(ctx, exp.ID, "ghost"); !errors.As(err, &invalid) {
		t.Fatalf("expected an invalid-config error for an unknown winner, got %v", err)
	}
}

func TestGetVariantIsSticky(t *testing.T) {
	repo := newFakeExperimentRepo()
	m := NewManager(repo)
	ctx := context.Background()

	exp, _ := m.Create(ctx, "exp", twoVariants())
	if _, err := m.Activate(ctx, exp.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	first, err := m.GetVariant(ctx, 42, exp.ID)
	if err != nil {
		t.Fatalf("GetVariant: %v", err)
	}

	for i := 0; i < 50; i++ {
		again, err := m.GetVariant(ctx, 42, exp.ID)
		if err != nil {
			t.Fatalf("GetVariant repeat: %v", err)
		}
		if again.Variant != first.Variant {
			t.Fatalf("assignment must be sticky: %s then %s", first.Variant, again.Variant)
		}
	}

	if !repo.experiments[exp.ID].HasAssignments {
		t.Fatal("the experiment must be flagged once assignments exist")
	}
}

func TestGetVariantConflictAdoptsFirstWrite(t *testing.T) {
	repo := newFakeExperimentRepo()
	m := NewManager(repo)
	ctx := context.Background()

	exp, _ := m.Create(ctx, "exp", twoVariants())
	if _, err := m.Activate(ctx, exp.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	// simulate a concurrent request winning the insert race
	repo.insertHook = func() error {
		repo.insertHook = nil
		repo.assignments[assignmentKey(7, exp.ID)] = domain.Assignment{
			UserID:       7,
			ExperimentID: exp.ID,
			Variant:      "control",
			Method:       "weighted_random",
			AssignedAt:   time.Now(),
		}
		return domain.ErrAssignmentConflict
	}

	got, err := m.GetVariant(ctx, 7, exp.ID)
	if err != nil {
		t.Fatalf("GetVariant: %v", err)
	}
	if got.Variant != "control" {
		t.Fatalf("the loser must adopt the first write, got %q", got.Variant)
	}
}

func TestGetVariantRequiresActiveExperiment(t *testing.T) {
	m := NewManager(newFakeExperimentRepo())
	ctx := context.Background()

	exp, _ := m.Create(ctx, "exp", twoVariants())
	_, err := m.GetVariant(ctx, 1, exp.ID)
	if err == nil {
		t.Fatal("draft experiments must not assign")
	}
	if !errors.Is(err, domain.ErrExperimentNotActive) {
		t.Fatalf("expected ErrExperimentNotActive, got %v", err)
	}
}

func TestDrawVariantRespectsFullAllocation(t *testing.T) {
	m := NewManager(newFakeExperimentRepo())
	variants := []domain.Variant{
		{Name: "all", Allocation: 100},
		{Name: "none", Allocation: 0},
	}

	for i := 0; i < 1000; i++ {
		if got := m.drawVariant(variants); got != "all" {
			t.Fatalf("a zero-allocation variant must never be drawn, got %q", got)
		}
	}
}

func TestLogEventBestEffort(t *testing.T) {
	repo := newFakeExperimentRepo()
	repo.eventErr = errors.New("store down")
	m := NewManager(repo)

	// must not panic or surface the failure
	m.LogEvent(context.Background(), "exp-1", 1, "control", "shown", 0)

	repo.eventErr = nil
	m.LogEvent(context.Background(), "exp-1", 1, "control", "shown", 0)
	if len(repo.events) != 1 {
		t.Fatalf("expected one stored event, got %d", len(repo.events))
	}

	// missing experiment context is silently skipped
	m.LogEvent(context.Background(), "", 1, "control", "shown", 0)
	if len(repo.events) != 1 {
		t.Fatal("events without an experiment id must be dropped")
	}
}

func TestComputeMetricsRecommendsSignificantWinner(t *testing.T) {
	repo := newFakeExperimentRepo()
	m := NewManager(repo)
	ctx := context.Background()

	exp, _ := m.Create(ctx, "exp", twoVariants())
	repo.counts = []domain.VariantCounts{
		{Variant: "control", Shown: 1000, Engaged: 100},
		{Variant: "treatment", Shown: 1000, Engaged: 200},
	}

	got, err := m.ComputeMetrics(ctx, exp.ID)
	if err != nil {
		t.Fatalf("ComputeMetrics: %v", err)
	}

	if got.Recommended != "treatment" {
		t.Fatalf("expected treatment recommended, got %q", got.Recommended)
	}
	if len(got.Comparisons) != 1 || !got.Comparisons[0].Significant {
		t.Fatalf("expected one significant comparison, got %+v", got.Comparisons)
	}
	if got.Variants[1].EngagementRate != 0.2 {
		t.Fatalf("treatment rate = %f, want 0.2", got.Variants[1].EngagementRate)
	}
}

func TestComputeMetricsNoRecommendationUnderSampleFloor(t *testing.T) {
	repo := newFakeExperimentRepo()
	m := NewManager(repo)
	ctx := context.Background()

	exp, _ := m.Create(ctx, "exp", twoVariants())
	repo.counts = []domain.VariantCounts{
		{Variant: "control", Shown: 20, Engaged: 2},
		{Variant: "treatment", Shown: 20, Engaged: 15},
	}

	got, err := m.ComputeMetrics(ctx, exp.ID)
	if err != nil {
		t.Fatalf("ComputeMetrics: %v", err)
	}
	if got.Recommended != "" {
		t.Fatalf("an under-sampled lift must not be recommended, got %q", got.Recommended)
	}
}
