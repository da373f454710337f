package memory

import (
	"regexp"
	"strings"
)

const (
	// BaseMemoryLimit is the number of memories fetched for a simple message.
	BaseMemoryLimit = 5
	// MaxMemoryLimit caps the adaptive limit.
	MaxMemoryLimit = 15

	longMessageWords = 20
	longMessageBonus = 3
	multiTopicBonus  = 3
	questionBonus    = 2
)

var multiTopicPattern = regexp.MustCompile(`(?i)\b(and|also|plus|as\s+well)\b`)

// CalculateMemoryLimit derives how many memories to fetch from the
// complexity of message. Every bonus is independent; the result is always in
// [BaseMemoryLimit, MaxMemoryLimit].
func CalculateMemoryLimit(message string) int {
	limit := BaseMemoryLimit

	if len(strings.Fields(message)) > longMessageWords {
		limit += longMessageBonus
	}
	if multiTopicPattern.MatchString(message) {
		limit += multiTopicBonus
	}
	if strings.Contains(message, "?") {
		limit += questionBonus
	}

	return min(limit, MaxMemoryLimit)
}
