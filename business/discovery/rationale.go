package discovery

import (
	"fmt"

	"stumbleDiscovery/domain"
)

// rationale names the dominant scoring factor and phrases it for the user.
// The factor label also feeds the selection metrics.
func rationale(result domain.ScoredContent, user domain.UserContext) (string, string) {
	f := result.Factors

	// each factor's pull above its neutral baseline
	pulls := []struct {
		factor string
		pull   float64
	}{
		{"trending", f.Trending - 1.0},
		{"interest", f.TopicSimilarity - 0.5},
		{"reputation", f.Reputation - 1.0},
		{"fresh", f.Freshness - 0.5},
		{"diversity", f.Diversity - 1.0},
		{"quality", f.Quality - 0.6},
	}

	best := pulls[0]
	for _, p := range pulls[1:] {
		if p.pull > best.pull {
			best = p
		}
	}
	if best.pull <= 0 {
		return "quality", "a solid pick for you"
	}

	switch best.factor {
	case "trending":
		return best.factor, "trending right now"
	case "interest":
		if t := sharedTopic(user.Profile.PreferredTopics, result.Content.Topics); t != "" {
			return best.factor, fmt.Sprintf("matches your interest in %s", t)
		}
		return best.factor, "close to topics you follow"
	case "reputation":
		return best.factor, "from a highly rated source"
	case "fresh":
		return best.factor, "a fresh find"
	case "diversity":
		return best.factor, "something different from your usual"
	default:
		return "quality", "a solid pick for you"
	}
}

func sharedTopic(preferred, topics []string) string {
	set := make(map[string]struct{}, len(preferred))
	for _, t := range preferred {
		set[t] = struct{}{}
	}
	for _, t := range topics {
		if _, ok := set[t]; ok {
			return t
		}
	}
	return ""
}
