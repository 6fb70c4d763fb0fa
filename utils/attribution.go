package utils

import (
	"strings"

	"quizfunnel/api/models"
)

const (
	rankEmpty = iota
	rankWeak
	rankStrong
)

// AttributionPolicy decides when a later attribution value may replace an
// earlier one. Values in the weak set ("direct", "unknown", ...) are
// placeholders; anything else non-empty is strong.
type AttributionPolicy struct {
	weak map[string]struct{}
}

func NewAttributionPolicy(weakValues []string) *AttributionPolicy {
	p := &AttributionPolicy{weak: make(map[string]struct{}, len(weakValues))}
	for _, v := range weakValues {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			p.weak[v] = struct{}{}
		}
	}
	return p
}

func (p *AttributionPolicy) rank(v string) int {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return rankEmpty
	}
	if _, ok := p.weak[v]; ok {
		return rankWeak
	}
	return rankStrong
}

func (p *AttributionPolicy) IsStrong(v string) bool {
	return p.rank(v) == rankStrong
}

// Merge returns incoming only when it ranks strictly above current, so a
// strong value is never replaced and nothing is ever downgraded.
func (p *AttributionPolicy) Merge(current, incoming string) string {
	if p.rank(incoming) > p.rank(current) {
		return strings.TrimSpace(incoming)
	}
	return current
}

// MergeAttribution applies Merge field by field and reports whether anything changed.
func (p *AttributionPolicy) MergeAttribution(current, incoming models.Attribution) (models.Attribution, bool) {
	merged := models.Attribution{
		TrafficSource: p.Merge(current.TrafficSource, incoming.TrafficSource),
		CampaignID:    p.Merge(current.CampaignID, incoming.CampaignID),
		TrafficID:     p.Merge(current.TrafficID, incoming.TrafficID),
		UTMSource:     p.Merge(current.UTMSource, incoming.UTMSource),
		UTMMedium:     p.Merge(current.UTMMedium, incoming.UTMMedium),
		UTMCampaign:   p.Merge(current.UTMCampaign, incoming.UTMCampaign),
		UTMContent:    p.Merge(current.UTMContent, incoming.UTMContent),
		UTMTerm:       p.Merge(current.UTMTerm, incoming.UTMTerm),
		Referrer:      p.Merge(current.Referrer, incoming.Referrer),
		LandingPage:   p.Merge(current.LandingPage, incoming.LandingPage),
	}
	return merged, merged != current
}
