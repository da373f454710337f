package memory

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// CorrectionSimilarityThreshold is the minimum similarity a stored memory
// needs to be considered the target of a correction.
const CorrectionSimilarityThreshold = 0.5

// ExtractionRule captures the subject of a correction from possessive or
// identity phrasing. When a rule has two capture groups the second is
// preferred and the first is the fallback when the second is empty.
type ExtractionRule struct {
	Name    string
	Pattern *regexp.Regexp
}

var extractionRules = []ExtractionRule{
	{
		// "my mom's name is Sarah" -> "mom"
		Name:    "possessive-name",
		Pattern: regexp.MustCompile(`(?i)\b(my|our)\s+([a-z]+(?:\s+[a-z]+)?)'s\s+name\s+(?:is|was)\b`),
	},
	{
		// "our anniversary is in May" -> "anniversary"
		Name:    "possessive-attribute",
		Pattern: regexp.MustCompile(`(?i)\b(my|our)\s+([a-z]+(?:\s+[a-z]+)?)\s+(?:is|are|was|were)\b`),
	},
	{
		// "I'm not vegetarian anymore" -> "vegetarian"
		Name:    "identity",
		Pattern: regexp.MustCompile(`(?i)\bi(?:'m|\s+am)\s+(not\s+)?(?:an?\s+)?([a-z]+)`),
	},
	{
		// "I don't eat meat" -> "eat meat"
		Name:    "habit",
		Pattern: regexp.MustCompile(`(?i)\bi\s+(don't|do\s+not|no\s+longer|never|do)\s+([a-z]+(?:\s+[a-z]+)?)`),
	},
	{
		// "my boss moved to Denver" -> "boss"
		Name:    "possessive",
		Pattern: regexp.MustCompile(`(?i)\b(?:my|our)\s+([a-z]+)`),
	},
}

// ExtractionRules returns a copy of the ordered extraction table.
func ExtractionRules() []ExtractionRule { return slices.Clone(extractionRules) }

// Subject returns the subject this rule extracts from message, or false when
// the rule does not match or captures nothing.
//
// The group preference (second, then first) is a known heuristic: for rules
// whose groups can both be non-empty the first group is ignored.
func (r ExtractionRule) Subject(message string) (string, bool) {
	m := r.Pattern.FindStringSubmatch(normalizeQuotes(message))
	if m == nil {
		return "", false
	}

	var subject string
	if len(m) > 2 {
		subject = strings.TrimSpace(m[2])
	}
	if subject == "" && len(m) > 1 {
		subject = strings.TrimSpace(m[1])
	}
	if subject == "" {
		return "", false
	}
	return strings.ToLower(subject), true
}

// Resolver locates the stored memory a correction refers to.
type Resolver struct {
	store  SimilarityFinder
	logger *slog.Logger
}

// NewResolver creates a Resolver backed by store. If logger is nil, the
// default slog logger is used.
func NewResolver(store SimilarityFinder, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// FindCorrectionTarget walks the extraction rules in order. For each rule
// that yields a subject it runs a similarity search within the couple and
// returns the best-ranked hit. It returns nil when no rule leads to a hit.
// This is best effort, not a guaranteed match.
func (r *Resolver) FindCorrectionTarget(ctx context.Context, coupleID, message string) (*Memory, error) {
	log := loggerFor(ctx, r.logger)

	for _, rule := range extractionRules {
		subject, ok := rule.Subject(message)
		if !ok {
			continue
		}

		candidates, err := r.store.FindSimilar(ctx, coupleID, subject, CorrectionSimilarityThreshold)
		if err != nil {
			return nil, err
		}
		log.Debug("memory: correction subject searched",
			"couple_id", coupleID,
			"rule", rule.Name,
			"subject", subject,
			"candidates", len(candidates),
		)
		if len(candidates) > 0 {
			target := candidates[0]
			return &target, nil
		}
	}
	return nil, nil
}
