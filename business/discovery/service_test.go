package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	"stumbleDiscovery/domain"
)

type fakeContentRepo struct {
	items     []domain.ContentItem
	lastQuery CandidateQuery
	fetchErr  error
}

func (f *fakeContentRepo) FetchCandidates(_ context.Context, q CandidateQuery) ([]domain.ContentItem, error) {
	f.lastQuery = q
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	seen := make(map[string]struct{}, len(q.SessionSeen))
	for _, id := range q.SessionSeen {
		seen[id] = struct{}{}
	}

	var out []domain.ContentItem
	for _, item := range f.items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeContentRepo) FindByID(_ context.Context, id string) (domain.ContentItem, error) {
	for _, item := range f.items {
		if item.ID == id {
			return item, nil
		}
	}
	return domain.ContentItem{}, errors.New("not found")
}

type fakeUserRepo struct {
	user domain.UserContext
}

func (f *fakeUserRepo) GetUserContext(_ context.Context, _ uint) (domain.UserContext, error) {
	return f.user, nil
}

type fakeReputationRepo struct {
	reputations map[string]domain.DomainReputation
}

func (f *fakeReputationRepo) GetByDomains(_ context.Context, _ []string) (map[string]domain.DomainReputation, error) {
	return f.reputations, nil
}

type fakeSimilarity struct{}

func (fakeSimilarity) Similarity(_ context.Context, a, b []string) float64 {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; ok {
			return 1.0
		}
	}
	return 0.0
}

type fakeInteractionRepo struct {
	saved []domain.Interaction
}

func (f *fakeInteractionRepo) Save(_ context.Context, interaction domain.Interaction) error {
	f.saved = append(f.saved, interaction)
	return nil
}

type fakeVariants struct {
	overrides datatypes.JSONMap
}

func (f fakeVariants) WeightsFor(_ context.Context, _ uint) (datatypes.JSONMap, string, string, error) {
	return f.overrides, "exp-1", "treatment", nil
}

type recordedEvent struct {
	experimentID string
	variant      string
	eventType    string
}

type fakeEventSink struct {
	events []recordedEvent
}

func (f *fakeEventSink) LogEvent(_ context.Context, experimentID string, _ uint, variant, eventType string, _ time.Duration) {
	f.events = append(f.events, recordedEvent{experimentID: experimentID, variant: variant, eventType: eventType})
}

func testService(content *fakeContentRepo, user domain.UserContext) (*Service, *fakeEventSink) {
	sink := &fakeEventSink{}
	svc := NewService(
		content,
		&fakeUserRepo{user: user},
		&fakeReputationRepo{},
		nil,
		fakeSimilarity{},
		nil,
		nil,
		sink,
		&fakeInteractionRepo{},
		nil,
		50,
		time.Second,
	)
	return svc, sink
}

func catalogFixture() []domain.ContentItem {
	now := time.Now()
	return []domain.ContentItem{
		{ID: "c1", Topics: []string{"science"}, Domain: "a.example", QualityScore: 0.9, PublishedAt: now, Active: true},
		{ID: "c2", Topics: []string{"science"}, Domain: "b.example", QualityScore: 0.7, PublishedAt: now, Active: true},
		{ID: "c3", Topics: []string{"cooking"}, Domain: "c.example", QualityScore: 0.5, PublishedAt: now, Active: true},
	}
}

func TestSelectNextReturnsScoredResult(t *testing.T) {
	content := &fakeContentRepo{items: catalogFixture()}
	user := domain.UserContext{Profile: domain.UserProfile{UserID: 1, PreferredTopics: []string{"science"}, Wildness: 0}}
	svc, _ := testService(content, user)

	result, err := svc.SelectNext(context.Background(), 1, SelectOptions{})
	if err != nil {
		t.Fatalf("SelectNext: %v", err)
	}

	if result.Content.ID == "" {
		t.Fatal("a candidate must be selected")
	}
	if result.Score <= 0 {
		t.Fatalf("selected score must be positive, got %f", result.Score)
	}
	if result.Rationale == "" {
		t.Fatal("every result carries a human-readable rationale")
	}
	if content.lastQuery.Limit != 50 {
		t.Fatalf("pool limit not pushed down, got %d", content.lastQuery.Limit)
	}
}

func TestSelectNextPushesDownSessionSeen(t *testing.T) {
	content := &fakeContentRepo{items: catalogFixture()}
	svc, _ := testService(content, domain.UserContext{Profile: domain.UserProfile{UserID: 1}})

	seen := []string{"c1", "c2"}
	result, err := svc.SelectNext(context.Background(), 1, SelectOptions{SessionSeen: seen})
	if err != nil {
		t.Fatalf("SelectNext: %v", err)
	}

	if len(content.lastQuery.SessionSeen) != 2 {
		t.Fatal("session-seen ids must reach the candidate query")
	}
	if result.Content.ID != "c3" {
		t.Fatalf("seen items must not repeat, got %s", result.Content.ID)
	}
}

func TestSelectNextEmptyPool(t *testing.T) {
	content := &fakeContentRepo{}
	svc, _ := testService(content, domain.UserContext{Profile: domain.UserProfile{UserID: 1, PreferredTopics: []string{"science"}}})

	_, err := svc.SelectNext(context.Background(), 1, SelectOptions{})
	if !errors.Is(err, domain.ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestSelectNextRelaxedDropsTopicBias(t *testing.T) {
	content := &fakeContentRepo{items: catalogFixture()}
	user := domain.UserContext{Profile: domain.UserProfile{UserID: 1, PreferredTopics: []string{"science"}}}
	svc, _ := testService(content, user)

	if _, err := svc.SelectNext(context.Background(), 1, SelectOptions{}); err != nil {
		t.Fatalf("SelectNext: %v", err)
	}
	if len(content.lastQuery.PreferTopics) == 0 {
		t.Fatal("the strict pass should push the topic preference down")
	}

	if _, err := svc.SelectNext(context.Background(), 1, SelectOptions{Relaxed: true}); err != nil {
		t.Fatalf("SelectNext relaxed: %v", err)
	}
	if len(content.lastQuery.PreferTopics) != 0 {
		t.Fatal("the relaxed retry must drop the topic preference")
	}
}

func TestSelectNextPropagatesFetchTimeout(t *testing.T) {
	content := &fakeContentRepo{fetchErr: &domain.CandidateFetchTimeoutError{Err: context.DeadlineExceeded}}
	svc, _ := testService(content, domain.UserContext{Profile: domain.UserProfile{UserID: 1}})

	_, err := svc.SelectNext(context.Background(), 1, SelectOptions{})
	var timeout *domain.CandidateFetchTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected a fetch-timeout error, got %v", err)
	}
}

func TestSelectNextReducedPoolOverride(t *testing.T) {
	content := &fakeContentRepo{items: catalogFixture()}
	svc, _ := testService(content, domain.UserContext{Profile: domain.UserProfile{UserID: 1}})

	if _, err := svc.SelectNext(context.Background(), 1, SelectOptions{PoolSize: 10}); err != nil {
		t.Fatalf("SelectNext: %v", err)
	}
	if content.lastQuery.Limit != 10 {
		t.Fatalf("pool override not applied, got %d", content.lastQuery.Limit)
	}
}

func TestSelectNextVariantOverridesSizeThePool(t *testing.T) {
	content := &fakeContentRepo{items: catalogFixture()}
	user := domain.UserContext{Profile: domain.UserProfile{UserID: 1, PreferredTopics: []string{"science"}, Wildness: 100}}
	svc := NewService(
		content,
		&fakeUserRepo{user: user},
		&fakeReputationRepo{},
		nil,
		fakeSimilarity{},
		nil,
		fakeVariants{overrides: datatypes.JSONMap{"top_k_min": 1, "top_k_max": 1}},
		nil,
		&fakeInteractionRepo{},
		nil,
		50,
		time.Second,
	)

	scored, err := svc.DebugSelect(context.Background(), 1, SelectOptions{})
	if err != nil {
		t.Fatalf("DebugSelect: %v", err)
	}
	top := scored[0].Content.ID

	// pool bounds pinned to 1 by the variant make high wildness deterministic
	for i := 0; i < 25; i++ {
		result, err := svc.SelectNext(context.Background(), 1, SelectOptions{})
		if err != nil {
			t.Fatalf("SelectNext: %v", err)
		}
		if result.Content.ID != top {
			t.Fatalf("draw %d escaped the variant-sized pool: got %s, want %s", i, result.Content.ID, top)
		}
	}
}

func TestSelectNextLogsShownEvent(t *testing.T) {
	content := &fakeContentRepo{items: catalogFixture()}
	svc, sink := testService(content, domain.UserContext{Profile: domain.UserProfile{UserID: 1}})

	if _, err := svc.SelectNext(context.Background(), 1, SelectOptions{}); err != nil {
		t.Fatalf("SelectNext: %v", err)
	}

	if len(sink.events) != 1 || sink.events[0].eventType != domain.InteractionShown {
		t.Fatalf("expected one shown event, got %+v", sink.events)
	}
}

func TestDebugSelectReturnsRankedPool(t *testing.T) {
	content := &fakeContentRepo{items: catalogFixture()}
	user := domain.UserContext{Profile: domain.UserProfile{UserID: 1, PreferredTopics: []string{"science"}}}
	svc, _ := testService(content, user)

	scored, err := svc.DebugSelect(context.Background(), 1, SelectOptions{})
	if err != nil {
		t.Fatalf("DebugSelect: %v", err)
	}

	if len(scored) != 3 {
		t.Fatalf("debug must expose the whole pool, got %d", len(scored))
	}
	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[i-1].Score {
			t.Fatalf("pool not ranked descending at %d", i)
		}
	}
}

func TestRecordFeedbackDenormalizesTopics(t *testing.T) {
	content := &fakeContentRepo{items: catalogFixture()}
	interactions := &fakeInteractionRepo{}
	svc := NewService(
		content,
		&fakeUserRepo{},
		&fakeReputationRepo{},
		nil,
		fakeSimilarity{},
		nil,
		nil,
		nil,
		interactions,
		nil,
		50,
		time.Second,
	)

	if err := svc.RecordFeedback(context.Background(), 1, "c1", domain.InteractionLiked, 1500*time.Millisecond); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}

	if len(interactions.saved) != 1 {
		t.Fatalf("expected one saved interaction, got %d", len(interactions.saved))
	}
	got := interactions.saved[0]
	if got.Action != domain.InteractionLiked || got.ContentID != "c1" {
		t.Fatalf("wrong interaction saved: %+v", got)
	}
	if len(got.Topics) == 0 || got.Topics[0] != "science" {
		t.Fatalf("topics must be denormalized onto the interaction: %+v", got.Topics)
	}
}

func TestRecordFeedbackUnknownContent(t *testing.T) {
	svc, _ := testService(&fakeContentRepo{}, domain.UserContext{})

	if err := svc.RecordFeedback(context.Background(), 1, "ghost", domain.InteractionLiked, 0); err == nil {
		t.Fatal("feedback on unknown content must error")
	}
}
