package moderation

import (
	"fmt"
	"strings"

	"swapshelf/pkg/domain"
)

// Classifier produces a binary verdict on a proposed title. Screening is a
// cheap pre-filter, not a safety guarantee: it decides whether a submission
// auto-publishes or waits for a human.
type Classifier interface {
	Screen(title string) domain.Verdict
}

// inappropriateKeywords is the moderation denylist. Matching is plain
// substring, so collisions with legitimate words are expected false
// positives; those land in the review queue rather than being rejected.
var inappropriateKeywords = []string{
	"scam", "spam", "explicit", "profanity", "violence",
	"hate speech", "illegal", "counterfeit", "porn", "rape", "incest",
	"abuse", "drugs", "murder", "assassination", "bomb", "terrorist",
	"suicide", "obscene", "vulgar", "fraud", "weapon", "gun", "knife",
	"torture", "slavery", "exploitation", "corruption", "racism",
	"homophobia", "child abuse", "molestation", "harassment",
	"bullying", "extremism", "propaganda", "smuggling",
	"piracy", "prostitution", "human trafficking", "bribery",
	"extortion", "deception",
}

// KeywordScreener flags titles containing any denylisted keyword or phrase,
// case-insensitively. The first match short-circuits.
type KeywordScreener struct {
	keywords []string
}

// NewKeywordScreener builds a screener over the default denylist.
func NewKeywordScreener() *KeywordScreener {
	return &KeywordScreener{keywords: inappropriateKeywords}
}

// NewKeywordScreenerWithList builds a screener over a custom denylist.
func NewKeywordScreenerWithList(keywords []string) *KeywordScreener {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			normalized = append(normalized, kw)
		}
	}
	return &KeywordScreener{keywords: normalized}
}

// Screen checks the title against the denylist. An empty or whitespace-only
// title has nothing to flag and is approved.
func (s *KeywordScreener) Screen(title string) domain.Verdict {
	lower := strings.ToLower(strings.TrimSpace(title))
	if lower == "" {
		return domain.Verdict{Status: domain.VerdictApproved}
	}
	for _, keyword := range s.keywords {
		if strings.Contains(lower, keyword) {
			return domain.Verdict{
				Status: domain.VerdictFlagged,
				Reason: fmt.Sprintf("flagged for review due to %q", keyword),
			}
		}
	}
	return domain.Verdict{Status: domain.VerdictApproved}
}
