package memory

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Rule is one entry of an ordered classification table. Tables are evaluated
// top to bottom and the first matching rule decides.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// defaultRetrieveMinLength is the length a message must exceed to trigger
// retrieval when no rule matched.
const defaultRetrieveMinLength = 50

// skipRules mark messages that never justify a store round trip. They are
// always evaluated before triggerRules.
var skipRules = []Rule{
	{
		Name:    "greeting",
		Pattern: regexp.MustCompile(`(?i)^(hi|hii+|hello|hey|heya|hiya|yo|howdy|morning|evening|good\s+(morning|afternoon|evening|night))(\s+(there|again|both|babe|love|you\s+two))?[\s!.,~]*$`),
	},
	{
		Name:    "acknowledgment",
		Pattern: regexp.MustCompile(`(?i)^(ok|okay|k|kk|sure|yes|yep|yeah|yup|no|nope|nah|thanks|thank\s+you|thanks\s+a\s+lot|thx|ty|cool|nice|great|perfect|awesome|got\s+it|sounds\s+good|will\s+do|lol|haha+|hmm+)[\s!.,~]*$`),
	},
	{
		Name:    "command",
		Pattern: regexp.MustCompile(`^/\S`),
	},
	{
		Name:    "short",
		Pattern: regexp.MustCompile(`(?s)^.{0,10}$`),
	},
}

// triggerRules mark messages that likely depend on something the couple told
// the assistant before.
var triggerRules = []Rule{
	{
		Name:    "question",
		Pattern: regexp.MustCompile(`(?i)\?|^(what|when|where|who|whom|whose|why|how|which|do|does|did|is|are|was|were|can|could|should|would|will)\b`),
	},
	{
		Name:    "relationship",
		Pattern: regexp.MustCompile(`(?i)\b(my|our|your|his|her|their|partner'?s|wife'?s|husband'?s|girlfriend'?s|boyfriend'?s|fianc[eé]e?'?s)\s+(mom|mum|mother|dad|father|parents?|sister|brother|siblings?|sons?|daughters?|kids?|children|grandma|grandpa|grandmother|grandfather|aunt|uncle|cousin|niece|nephew|in-laws?|boss|manager|coworkers?|colleagues?|friends?|best\s+friend|roommate|dog|cat|pets?)\b`),
	},
	{
		Name:    "preference",
		Pattern: regexp.MustCompile(`(?i)\b(likes?|loves?|hates?|dislikes?|prefers?|preference|favou?rite|allerg(y|ic|ies)|intoleran(t|ce)|can'?t\s+eat|doesn'?t\s+eat|don'?t\s+eat|vegan|vegetarian|gluten)\b`),
	},
	{
		Name:    "memory-reference",
		Pattern: regexp.MustCompile(`(?i)\b(remember|recall|remind|you\s+mentioned|you\s+said|i\s+told\s+you|we\s+told\s+you|last\s+time|forgot|forget)\b`),
	},
	{
		Name:    "planning",
		Pattern: regexp.MustCompile(`(?i)\b(plan|plans|planning|schedule|book|booking|organi[sz]e|arrange|reserve|surprise|celebrate|gift|present)\b`),
	},
	{
		Name:    "date-event",
		Pattern: regexp.MustCompile(`(?i)\b(birthday|anniversary|wedding|holiday|holidays|vacation|trip|dinner|date\s+night|party|appointment|weekend|christmas|thanksgiving|valentine'?s?)\b`),
	},
}

// SkipRules returns a copy of the ordered skip table.
func SkipRules() []Rule { return slices.Clone(skipRules) }

// TriggerRules returns a copy of the ordered trigger table.
func TriggerRules() []Rule { return slices.Clone(triggerRules) }

// firstMatch returns the first rule in rules whose pattern matches s.
func firstMatch(rules []Rule, s string) (Rule, bool) {
	for _, r := range rules {
		if r.Pattern.MatchString(s) {
			return r, true
		}
	}
	return Rule{}, false
}

// ExplainRetrieval returns the retrieval decision for message together with
// the name of the rule that produced it ("skip:<name>", "trigger:<name>",
// "default:long" or "default:short").
func ExplainRetrieval(message string) (bool, string) {
	msg := strings.TrimSpace(normalizeQuotes(message))

	if r, ok := firstMatch(skipRules, msg); ok {
		return false, "skip:" + r.Name
	}
	if r, ok := firstMatch(triggerRules, msg); ok {
		return true, "trigger:" + r.Name
	}
	if utf8.RuneCountInString(msg) > defaultRetrieveMinLength {
		return true, "default:long"
	}
	return false, "default:short"
}

// ShouldRetrieveMemories reports whether long-term memory is worth fetching
// for message. It is pure and deterministic; callers skip retrieval entirely
// when it returns false.
func ShouldRetrieveMemories(message string) bool {
	ok, _ := ExplainRetrieval(message)
	return ok
}
