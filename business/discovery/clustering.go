package discovery

import (
	"context"

	"stumbleDiscovery/domain"
)

// ClusterStrategy supplies the collaborative-filtering signal: how well a
// candidate fits users whose preference clusters overlap this user's. The
// clustering method is deliberately pluggable; swap in a real implementation
// without touching scoring.
type ClusterStrategy interface {
	Affinities(ctx context.Context, userID uint, candidates []domain.ContentItem) (map[string]float64, error)
}

// NoopClusterStrategy is the default: every candidate reads as neutral.
type NoopClusterStrategy struct{}

func (NoopClusterStrategy) Affinities(ctx context.Context, userID uint, candidates []domain.ContentItem) (map[string]float64, error) {
	return nil, nil
}
