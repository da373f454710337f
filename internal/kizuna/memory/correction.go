package memory

import (
	"regexp"
	"slices"
	"strings"
)

// Strength is the heuristic confidence that a message corrects something the
// assistant remembers.
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// CorrectionSignal is the transient output of DetectCorrection.
type CorrectionSignal struct {
	IsCorrection bool     `json:"is_correction"`
	Strength     Strength `json:"strength"`
}

// CorrectionRule pairs a fixed pattern with the strength it implies.
type CorrectionRule struct {
	Name     string
	Pattern  *regexp.Regexp
	Strength Strength
}

// correctionRules is ordered strongest first; the first match decides.
var correctionRules = []CorrectionRule{
	// explicit rejection
	{
		Name:     "rejection",
		Pattern:  regexp.MustCompile(`(?i)\b(that'?s|that\s+is|this\s+is)\s+(not\s+(right|true|correct|accurate)|wrong|incorrect)\b`),
		Strength: StrengthStrong,
	},
	{
		Name:     "you-are-wrong",
		Pattern:  regexp.MustCompile(`(?i)\b(you'?re|you\s+are|you\s+got\s+(it|that))\s+(wrong|mistaken)\b`),
		Strength: StrengthStrong,
	},
	// explicit erase request
	{
		Name:     "forget",
		Pattern:  regexp.MustCompile(`(?i)\bforget\s+(that|it|this|what\s+i\s+(said|told\s+you)|what\s+we\s+(said|told\s+you))\b`),
		Strength: StrengthStrong,
	},
	// admission
	{
		Name:     "actually",
		Pattern:  regexp.MustCompile(`(?i)\bactually\b`),
		Strength: StrengthMedium,
	},
	// restated intent
	{
		Name:     "i-meant",
		Pattern:  regexp.MustCompile(`(?i)\b(i|we)\s+meant\b`),
		Strength: StrengthMedium,
	},
	// negated continuation
	{
		Name:     "no-i",
		Pattern:  regexp.MustCompile(`(?i)^no[,.!]?\s+(i|we|it'?s|it\s+is|she|he|they)\b`),
		Strength: StrengthMedium,
	},
	// lapsed state
	{
		Name:     "not-anymore",
		Pattern:  regexp.MustCompile(`(?i)\bno\s+longer\b|\b(not|no|never|\w+n't)\b[^.!?]*?\b(anymore|any\s+more)\b`),
		Strength: StrengthMedium,
	},
	{
		Name:     "used-to",
		Pattern:  regexp.MustCompile(`(?is)\bused\s+to\b.*\bbut\b`),
		Strength: StrengthMedium,
	},
	{
		Name:     "changed",
		Pattern:  regexp.MustCompile(`(?i)\b(has|have|'s|'ve)\s+changed\b`),
		Strength: StrengthWeak,
	},
}

// CorrectionRules returns a copy of the ordered correction table.
func CorrectionRules() []CorrectionRule { return slices.Clone(correctionRules) }

// DetectCorrection classifies message as a correction and assigns the
// strength of the first matching rule. A message that matches nothing yields
// {IsCorrection: false, Strength: weak}.
func DetectCorrection(message string) CorrectionSignal {
	msg := strings.TrimSpace(normalizeQuotes(message))
	for _, r := range correctionRules {
		if r.Pattern.MatchString(msg) {
			return CorrectionSignal{IsCorrection: true, Strength: r.Strength}
		}
	}
	return CorrectionSignal{IsCorrection: false, Strength: StrengthWeak}
}
