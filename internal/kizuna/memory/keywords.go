package memory

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/bdobrica/Kizuna/common/trace"
)

// quoteReplacer folds typographic apostrophes into ASCII so that rule tables
// only need to spell "that's" one way.
var quoteReplacer = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

func normalizeQuotes(s string) string {
	return quoteReplacer.Replace(s)
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:'[\p{L}]+)?`)

// stopwords are dropped from keyword extraction. Pronouns and copulas carry no
// topic; "name" is included so "my mom's name is Sarah" reduces to mom/sarah.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "so": {},
	"i": {}, "me": {}, "my": {}, "mine": {}, "we": {}, "us": {}, "our": {},
	"you": {}, "your": {}, "he": {}, "him": {}, "his": {}, "she": {}, "her": {},
	"they": {}, "them": {}, "their": {}, "it": {}, "its": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "am": {},
	"do": {}, "does": {}, "did": {}, "have": {}, "has": {}, "had": {},
	"to": {}, "of": {}, "in": {}, "on": {}, "at": {}, "for": {}, "with": {},
	"about": {}, "from": {}, "by": {}, "as": {}, "that": {}, "this": {},
	"what": {}, "which": {}, "who": {}, "how": {}, "when": {}, "where": {},
	"can": {}, "could": {}, "should": {}, "would": {}, "will": {},
	"not": {}, "no": {}, "yes": {}, "just": {}, "really": {}, "very": {},
	"name": {}, "i'm": {}, "it's": {}, "that's": {}, "don't": {}, "we're": {},
}

// Keywords extracts the lowercase topic words of text in first-seen order,
// without duplicates. Possessive "'s" is stripped ("mom's" becomes "mom").
func Keywords(text string) []string {
	text = strings.ToLower(normalizeQuotes(text))
	words := wordPattern.FindAllString(text, -1)

	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		w = strings.TrimSuffix(w, "'s")
		if _, stop := stopwords[w]; stop || w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// preview shortens message text for DEBUG log lines.
func preview(s string) string {
	const previewRunes = 60
	r := []rune(s)
	if len(r) <= previewRunes {
		return s
	}
	return string(r[:previewRunes]) + "..."
}

// loggerFor returns base (or the default logger) annotated with the trace ID
// carried by ctx.
func loggerFor(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	if id := trace.FromContext(ctx); id != "" {
		return base.With("trace_id", id)
	}
	return base
}
