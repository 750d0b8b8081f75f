package discovery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"gorm.io/datatypes"

	"stumbleDiscovery/domain"
	"stumbleDiscovery/pkg/logger"
	"stumbleDiscovery/pkg/metrics"
)

// CandidateQuery is the push-down filter handed to the store. Session-seen,
// interaction history, and blacklisted domains are excluded inside the
// query itself, never post-filtered in memory.
type CandidateQuery struct {
	UserID       uint
	SessionSeen  []string
	PreferTopics []string // order hint; empty drops the preference bias
	Limit        int
}

// ---- Repository / collaborator interfaces ----

type ContentRepository interface {
	FetchCandidates(ctx context.Context, q CandidateQuery) ([]domain.ContentItem, error)
	FindByID(ctx context.Context, id string) (domain.ContentItem, error)
}

type UserContextRepository interface {
	GetUserContext(ctx context.Context, userID uint) (domain.UserContext, error)
}

type ReputationRepository interface {
	GetByDomains(ctx context.Context, domains []string) (map[string]domain.DomainReputation, error)
}

type TrendingProvider interface {
	List(ctx context.Context, window string, limit int) ([]domain.TrendingRecord, error)
}

type SimilarityScorer interface {
	Similarity(ctx context.Context, a, b []string) float64
}

// VariantProvider supplies the active experiment's weight payload for a
// user: overrides, experiment id, variant name.
type VariantProvider interface {
	WeightsFor(ctx context.Context, userID uint) (datatypes.JSONMap, string, string, error)
}

// EventSink records experiment outcome events. Implementations must be
// best-effort and never fail the caller.
type EventSink interface {
	LogEvent(ctx context.Context, experimentID string, userID uint, variant, eventType string, timeToAction time.Duration)
}

type InteractionRepository interface {
	Save(ctx context.Context, interaction domain.Interaction) error
}

// SelectOptions tune one SelectNext call. Relaxed drops the topic-preference
// bias after an empty first pass; PoolSize overrides the configured pool
// (used by the retry after a fetch timeout).
type SelectOptions struct {
	SessionSeen []string
	Relaxed     bool
	PoolSize    int
}

type Service struct {
	contentRepo     ContentRepository
	userRepo        UserContextRepository
	reputationRepo  ReputationRepository
	trending        TrendingProvider
	matcher         SimilarityScorer
	clusters        ClusterStrategy
	variants        VariantProvider
	events          EventSink
	interactionRepo InteractionRepository
	weightCfgRepo   WeightConfigRepository

	defaultWeights Weights
	poolLimit      int
	fetchTimeout   time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func NewService(
	contentRepo ContentRepository,
	userRepo UserContextRepository,
	reputationRepo ReputationRepository,
	trending TrendingProvider,
	matcher SimilarityScorer,
	clusters ClusterStrategy,
	variants VariantProvider,
	events EventSink,
	interactionRepo InteractionRepository,
	weightCfgRepo WeightConfigRepository,
	poolLimit int,
	fetchTimeout time.Duration,
) *Service {
	if clusters == nil {
		clusters = NoopClusterStrategy{}
	}
	if poolLimit <= 0 {
		poolLimit = 100
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 2 * time.Second
	}

	return &Service{
		contentRepo:     contentRepo,
		userRepo:        userRepo,
		reputationRepo:  reputationRepo,
		trending:        trending,
		matcher:         matcher,
		clusters:        clusters,
		variants:        variants,
		events:          events,
		interactionRepo: interactionRepo,
		weightCfgRepo:   weightCfgRepo,
		defaultWeights:  DefaultWeights(),
		poolLimit:       poolLimit,
		fetchTimeout:    fetchTimeout,
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())),
		now:             time.Now,
	}
}

// SelectNext picks one item for the user: pull the candidate pool through
// the push-down filter, score every candidate, then sample from the top-K
// sized by the user's wildness.
func (s *Service) SelectNext(ctx context.Context, userID uint, opts SelectOptions) (domain.DiscoveryResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.DiscoveryResult{}, fmt.Errorf("context error: %w", err)
	}

	pool, err := s.scorePool(ctx, userID, opts)
	if err != nil {
		return domain.DiscoveryResult{}, err
	}
	scored, user := pool.scored, pool.user
	variantName, experimentID := pool.variantName, pool.experimentID

	k := poolSize(user.Profile.Wildness, pool.weights, len(scored))

	s.mu.Lock()
	idx := drawWeighted(scored, k, s.rnd)
	s.mu.Unlock()

	pick := scored[idx]
	factor, text := rationale(pick, user)

	result := domain.DiscoveryResult{
		Content:   pick.Content,
		Score:     pick.Score,
		Rationale: text,
		Factors:   pick.Factors,
		Variant:   variantName,
	}

	metrics.DiscoverySelectionsByFactor.WithLabelValues(factor).Inc()

	tid := TraceIDFromContext(ctx)
	logger.Debug("discovery_select",
		"trace_id", tid,
		"user_id", userID,
		"content_id", pick.Content.ID,
		"score", pick.Score,
		"factor", factor,
		"pool", len(scored),
		"k", k,
		"variant", variantName,
	)

	// outcome bookkeeping is fire-and-forget
	if s.events != nil {
		s.events.LogEvent(ctx, experimentID, userID, variantName, domain.InteractionShown, 0)
	}

	return result, nil
}

// DebugSelect returns the fully scored, ranked pool without sampling, for
// the admin debug endpoint.
func (s *Service) DebugSelect(ctx context.Context, userID uint, opts SelectOptions) ([]domain.ScoredContent, error) {
	pool, err := s.scorePool(ctx, userID, opts)
	if err != nil {
		return nil, err
	}
	return pool.scored, nil
}

// scoredPool carries the fetch-and-score output, including the effective
// weights, so the sampler sizes the pool under the same config (variant
// overrides included) that scored it.
type scoredPool struct {
	scored       []domain.ScoredContent
	user         domain.UserContext
	weights      Weights
	variantName  string
	experimentID string
}

// scorePool runs the shared fetch-and-score pipeline.
func (s *Service) scorePool(ctx context.Context, userID uint, opts SelectOptions) (scoredPool, error) {
	user, err := s.userRepo.GetUserContext(ctx, userID)
	if err != nil {
		return scoredPool{}, fmt.Errorf("load user context: %w", err)
	}
	user.SessionSeen = opts.SessionSeen

	var variantOverrides datatypes.JSONMap
	variantName := ""
	experimentID := ""
	if s.variants != nil {
		if ov, expID, v, verr := s.variants.WeightsFor(ctx, userID); verr == nil {
			variantOverrides, experimentID, variantName = ov, expID, v
		} else {
			// experiments must never block discovery
			logger.Warn("variant resolution failed", "user_id", userID, "error", verr)
		}
	}

	weights := s.loadWeights(ctx, variantOverrides)

	limit := s.poolLimit
	if opts.PoolSize > 0 && opts.PoolSize < limit {
		limit = opts.PoolSize
	}

	q := CandidateQuery{
		UserID:      userID,
		SessionSeen: opts.SessionSeen,
		Limit:       limit,
	}
	if !opts.Relaxed {
		q.PreferTopics = user.Profile.PreferredTopics
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	candidates, err := s.contentRepo.FetchCandidates(fetchCtx, q)
	if err != nil {
		var timeout *domain.CandidateFetchTimeoutError
		if errors.As(err, &timeout) {
			metrics.DiscoveryRequestsTotal.WithLabelValues("timeout").Inc()
			return scoredPool{}, err
		}
		return scoredPool{}, fmt.Errorf("fetch candidates: %w", err)
	}
	if len(candidates) == 0 {
		metrics.DiscoveryRequestsTotal.WithLabelValues("empty").Inc()
		return scoredPool{}, domain.ErrNoCandidates
	}

	in, err := s.buildScoreInput(ctx, user, weights, candidates)
	if err != nil {
		return scoredPool{}, err
	}

	scored := make([]domain.ScoredContent, 0, len(candidates))
	for _, c := range candidates {
		sim := s.matcher.Similarity(ctx, user.Profile.PreferredTopics, c.Topics)
		factors := scoreCandidate(c, sim, in)
		scored = append(scored, domain.ScoredContent{
			Content: c,
			Score:   finalScore(factors),
			Factors: factors,
		})
	}
	sortByScore(scored)

	metrics.DiscoveryRequestsTotal.WithLabelValues("ok").Inc()

	return scoredPool{
		scored:       scored,
		user:         user,
		weights:      weights,
		variantName:  variantName,
		experimentID: experimentID,
	}, nil
}

// buildScoreInput assembles the request-wide joins: reputation multipliers
// (one batch lookup), trending velocities, history topic counts, and the
// collaborative affinity map.
func (s *Service) buildScoreInput(ctx context.Context, user domain.UserContext, weights Weights, candidates []domain.ContentItem) (scoreInput, error) {
	now := s.now()

	domainSet := make(map[string]struct{}, len(candidates))
	domains := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := domainSet[c.Domain]; ok {
			continue
		}
		domainSet[c.Domain] = struct{}{}
		domains = append(domains, c.Domain)
	}

	reputations, err := s.reputationRepo.GetByDomains(ctx, domains)
	if err != nil {
		return scoreInput{}, fmt.Errorf("batch reputation lookup: %w", err)
	}

	trendingMap := s.trendingVelocities(ctx)

	collab, err := s.clusters.Affinities(ctx, user.Profile.UserID, candidates)
	if err != nil {
		// degraded personalization beats a failed request
		logger.Warn("cluster affinity lookup failed", "user_id", user.Profile.UserID, "error", err)
		collab = nil
	}

	topicCounts := make(map[string]int)
	topicTotal := 0
	nowBucketHits := 0
	bucket := timeBucket(now)
	for _, h := range user.History {
		for _, t := range h.Topics {
			topicCounts[t]++
			topicTotal++
		}
		if h.Action != domain.InteractionSkip && timeBucket(h.CreatedAt) == bucket {
			nowBucketHits++
		}
	}

	return scoreInput{
		user:          user,
		weights:       weights,
		reputations:   reputations,
		trending:      trendingMap,
		collab:        collab,
		topicCounts:   topicCounts,
		topicTotal:    topicTotal,
		nowBucketHits: nowBucketHits,
		historyTotal:  len(user.History),
		now:           now,
	}, nil
}

// trendingVelocities loads the day-window leaderboard and normalizes it to
// [0, 1]. Trending is an enrichment; failures degrade to no boost.
func (s *Service) trendingVelocities(ctx context.Context) map[string]float64 {
	if s.trending == nil {
		return nil
	}

	records, err := s.trending.List(ctx, domain.WindowDay, s.poolLimit)
	if err != nil || len(records) == 0 {
		return nil
	}

	max := records[0].VelocityScore
	for _, r := range records[1:] {
		if r.VelocityScore > max {
			max = r.VelocityScore
		}
	}
	if max <= 0 {
		return nil
	}

	out := make(map[string]float64, len(records))
	for _, r := range records {
		out[r.ContentID] = r.VelocityScore / max
	}
	return out
}

// RecordFeedback appends one interaction to the user's history (topics
// denormalized from the content row) and forwards it to the experiment
// sink.
func (s *Service) RecordFeedback(ctx context.Context, userID uint, contentID, action string, timeToAction time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	content, err := s.contentRepo.FindByID(ctx, contentID)
	if err != nil {
		return fmt.Errorf("load content for feedback: %w", err)
	}

	interaction := domain.Interaction{
		UserID:    userID,
		ContentID: contentID,
		Action:    action,
		Topics:    content.Topics,
	}

	if err := s.interactionRepo.Save(ctx, interaction); err != nil {
		return fmt.Errorf("save interaction: %w", err)
	}

	if s.events != nil && s.variants != nil {
		if _, expID, variant, verr := s.variants.WeightsFor(ctx, userID); verr == nil && expID != "" {
			s.events.LogEvent(ctx, expID, userID, variant, action, timeToAction)
		}
	}

	return nil
}
