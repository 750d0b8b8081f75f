package experiment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"stumbleDiscovery/domain"
	"stumbleDiscovery/pkg/logger"
)

// Repository is the experiment store contract. InsertAssignment must return
// domain.ErrAssignmentConflict when the (user, experiment) row already
// exists, without overwriting it.
type Repository interface {
	Create(ctx context.Context, exp domain.Experiment) error
	GetByID(ctx context.Context, id string) (domain.Experiment, error)
	List(ctx context.Context) ([]domain.Experiment, error)
	ListByStatus(ctx context.Context, status string) ([]domain.Experiment, error)
	Update(ctx context.Context, exp domain.Experiment) error
	GetAssignment(ctx context.Context, userID uint, experimentID string) (*domain.Assignment, error)
	InsertAssignment(ctx context.Context, assignment domain.Assignment) error
	AppendEvent(ctx context.Context, event domain.ExperimentEvent) error
	VariantCounts(ctx context.Context, experimentID string) ([]domain.VariantCounts, error)
}

type Manager struct {
	repo Repository

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewManager(repo Repository) *Manager {
	return &Manager{
		repo: repo,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ---- Definition lifecycle ----

// Create validates and stores a new draft experiment. Invalid variant sets
// are rejected here so runtime assignment never sees them.
func (m *Manager) Create(ctx context.Context, name string, variants []domain.Variant) (domain.Experiment, error) {
	if err := validateVariants(variants); err != nil {
		return domain.Experiment{}, err
	}
	if name == "" {
		return domain.Experiment{}, &domain.InvalidExperimentConfigError{Reason: "name is required"}
	}

	exp := domain.Experiment{
		ID:       uuid.NewString(),
		Name:     name,
		Status:   domain.ExperimentDraft,
		Variants: datatypes.NewJSONSlice(variants),
	}

	if err := m.repo.Create(ctx, exp); err != nil {
		return domain.Experiment{}, fmt.Errorf("create experiment: %w", err)
	}

	return exp, nil
}

func (m *Manager) Get(ctx context.Context, id string) (domain.Experiment, error) {
	return m.repo.GetByID(ctx, id)
}

func (m *Manager) List(ctx context.Context) ([]domain.Experiment, error) {
	return m.repo.List(ctx)
}

// Activate moves draft or paused experiments into assignment rotation.
func (m *Manager) Activate(ctx context.Context, id string) (domain.Experiment, error) {
	return m.transition(ctx, id, domain.ExperimentActive, "")
}

func (m *Manager) Pause(ctx context.Context, id string) (domain.Experiment, error) {
	return m.transition(ctx, id, domain.ExperimentPaused, "")
}

// Complete is terminal; an optional winning variant is recorded with it.
func (m *Manager) Complete(ctx context.Context, id, winner string) (domain.Experiment, error) {
	return m.transition(ctx, id, domain.ExperimentCompleted, winner)
}

func (m *Manager) transition(ctx context.Context, id, target, winner string) (domain.Experiment, error) {
	exp, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Experiment{}, err
	}

	if !validTransition(exp.Status, target) {
		return domain.Experiment{}, &domain.InvalidTransitionError{From: exp.Status, To: target}
	}

	if winner != "" {
		if findVariant(exp.Variants, winner) == nil {
			return domain.Experiment{}, &domain.InvalidExperimentConfigError{
				Reason: fmt.Sprintf("winning variant %q is not part of the experiment", winner),
			}
		}
		exp.WinningVariant = winner
	}

	exp.Status = target
	if err := m.repo.Update(ctx, exp); err != nil {
		return domain.Experiment{}, fmt.Errorf("update experiment: %w", err)
	}

	return exp, nil
}

func validTransition(from, to string) bool {
	switch from {
	case domain.ExperimentDraft:
		return to == domain.ExperimentActive
	case domain.ExperimentActive:
		return to == domain.ExperimentPaused || to == domain.ExperimentCompleted
	case domain.ExperimentPaused:
		return to == domain.ExperimentActive || to == domain.ExperimentCompleted
	default:
		return false
	}
}

func validateVariants(variants []domain.Variant) error {
	if len(variants) == 0 {
		return &domain.InvalidExperimentConfigError{Reason: "variant list is empty"}
	}

	sum := 0
	seen := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		if v.Name == "" {
			return &domain.InvalidExperimentConfigError{Reason: "variant name is required"}
		}
		if _, dup := seen[v.Name]; dup {
			return &domain.InvalidExperimentConfigError{Reason: fmt.Sprintf("duplicate variant %q", v.Name)}
		}
		seen[v.Name] = struct{}{}

		if v.Allocation < 0 {
			return &domain.InvalidExperimentConfigError{Reason: fmt.Sprintf("variant %q has negative allocation", v.Name)}
		}
		sum += v.Allocation
	}

	if sum != 100 {
		return &domain.InvalidExperimentConfigError{Reason: fmt.Sprintf("allocations sum to %d, want 100", sum)}
	}

	return nil
}

// ---- Assignment ----

// GetVariant returns the user's sticky assignment, creating it lazily on the
// first qualifying request. Concurrent first calls race on the insert; the
// loser re-reads the winning row instead of overwriting it.
func (m *Manager) GetVariant(ctx context.Context, userID uint, experimentID string) (domain.Assignment, error) {
	existing, err := m.repo.GetAssignment(ctx, userID, experimentID)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("load assignment: %w", err)
	}
	if existing != nil {
		return *existing, nil
	}

	exp, err := m.repo.GetByID(ctx, experimentID)
	if err != nil {
		return domain.Assignment{}, err
	}
	if exp.Status != domain.ExperimentActive {
		return domain.Assignment{}, fmt.Errorf("experiment %s: %w", experimentID, domain.ErrExperimentNotActive)
	}

	assignment := domain.Assignment{
		UserID:       userID,
		ExperimentID: experimentID,
		Variant:      m.drawVariant(exp.Variants),
		Method:       "weighted_random",
		AssignedAt:   time.Now(),
	}

	err = m.repo.InsertAssignment(ctx, assignment)
	if errors.Is(err, domain.ErrAssignmentConflict) {
		// first write wins; adopt the row the other request created
		existing, rerr := m.repo.GetAssignment(ctx, userID, experimentID)
		if rerr != nil {
			return domain.Assignment{}, fmt.Errorf("re-read assignment after conflict: %w", rerr)
		}
		if existing == nil {
			return domain.Assignment{}, fmt.Errorf("assignment conflict but no row found")
		}
		return *existing, nil
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("persist assignment: %w", err)
	}

	// variant payloads become immutable once any assignment exists
	if !exp.HasAssignments {
		exp.HasAssignments = true
		if uerr := m.repo.Update(ctx, exp); uerr != nil {
			logger.Warn("failed to flag experiment as assigned", "experiment_id", experimentID, "error", uerr)
		}
	}

	return assignment, nil
}

// WeightsFor resolves the scoring-weight override for a user from the first
// active experiment, if any. Returns the override payload, the experiment
// id, and the variant name; all empty when no experiment is active.
func (m *Manager) WeightsFor(ctx context.Context, userID uint) (datatypes.JSONMap, string, string, error) {
	active, err := m.repo.ListByStatus(ctx, domain.ExperimentActive)
	if err != nil {
		return nil, "", "", fmt.Errorf("list active experiments: %w", err)
	}
	if len(active) == 0 {
		return nil, "", "", nil
	}

	exp := active[0]
	assignment, err := m.GetVariant(ctx, userID, exp.ID)
	if err != nil {
		return nil, "", "", err
	}

	variant := findVariant(exp.Variants, assignment.Variant)
	if variant == nil {
		return nil, "", "", fmt.Errorf("assigned variant %q missing from experiment %s", assignment.Variant, exp.ID)
	}

	return variant.Weights, exp.ID, variant.Name, nil
}

func (m *Manager) drawVariant(variants []domain.Variant) string {
	m.mu.Lock()
	target := m.rnd.Intn(100)
	m.mu.Unlock()
	acc := 0
	for _, v := range variants {
		acc += v.Allocation
		if target < acc {
			return v.Name
		}
	}
	return variants[len(variants)-1].Name
}

func findVariant(variants []domain.Variant, name string) *domain.Variant {
	for i := range variants {
		if variants[i].Name == name {
			return &variants[i]
		}
	}
	return nil
}

// ---- Events & metrics ----

// LogEvent appends an outcome event. Best-effort: failures are logged and
// swallowed so experiment bookkeeping can never fail a discovery response.
func (m *Manager) LogEvent(ctx context.Context, experimentID string, userID uint, variant, eventType string, timeToAction time.Duration) {
	if experimentID == "" || variant == "" {
		return
	}

	event := domain.ExperimentEvent{
		ExperimentID: experimentID,
		UserID:       userID,
		Variant:      variant,
		EventType:    eventType,
		TimeToAction: timeToAction,
	}

	if err := m.repo.AppendEvent(ctx, event); err != nil {
		logger.Warn("experiment event dropped",
			"experiment_id", experimentID,
			"event_type", eventType,
			"error", err,
		)
		eventDropsTotal.WithLabelValues(eventType).Inc()
		return
	}

	eventsTotal.WithLabelValues(variant, eventType).Inc()
}

// Metrics is the aggregate view for one experiment: per-variant engagement
// plus pairwise significance against the first (control) variant.
type Metrics struct {
	ExperimentID string           `json:"experiment_id"`
	Variants     []VariantMetrics `json:"variants"`
	Comparisons  []Comparison     `json:"comparisons"`
	Recommended  string           `json:"recommended_winner,omitempty"`
}

type VariantMetrics struct {
	Variant        string  `json:"variant"`
	Shown          int64   `json:"shown"`
	Engaged        int64   `json:"engaged"`
	EngagementRate float64 `json:"engagement_rate"`
}

// ComputeMetrics aggregates raw events and runs the significance tests. A
// winner is recommended only when its lift over control is significant and
// the minimum sample size is met on both sides.
func (m *Manager) ComputeMetrics(ctx context.Context, experimentID string) (Metrics, error) {
	exp, err := m.repo.GetByID(ctx, experimentID)
	if err != nil {
		return Metrics{}, err
	}

	counts, err := m.repo.VariantCounts(ctx, experimentID)
	if err != nil {
		return Metrics{}, fmt.Errorf("aggregate events: %w", err)
	}

	byName := make(map[string]domain.VariantCounts, len(counts))
	for _, c := range counts {
		byName[c.Variant] = c
	}

	out := Metrics{ExperimentID: experimentID}
	for _, v := range exp.Variants {
		c := byName[v.Name]
		vm := VariantMetrics{Variant: v.Name, Shown: c.Shown, Engaged: c.Engaged}
		if c.Shown > 0 {
			vm.EngagementRate = float64(c.Engaged) / float64(c.Shown)
		}
		out.Variants = append(out.Variants, vm)
	}

	if len(exp.Variants) < 2 {
		return out, nil
	}

	control := byName[exp.Variants[0].Name]
	best := ""
	bestLift := 0.0
	for _, v := range exp.Variants[1:] {
		c := byName[v.Name]
		cmp := twoProportionTest(
			v.Name, c.Engaged, c.Shown,
			exp.Variants[0].Name, control.Engaged, control.Shown,
		)
		out.Comparisons = append(out.Comparisons, cmp)

		if cmp.Significant && cmp.Difference > bestLift {
			best = v.Name
			bestLift = cmp.Difference
		}
	}
	out.Recommended = best

	return out, nil
}
