package memory

import (
	"strings"
)

// MemoryContextHeader opens every non-empty memory block.
const MemoryContextHeader = "## What you remember about this couple"

// PartnerAttribution is appended to bullets for memories that came from the
// requester's partner.
const PartnerAttribution = " (shared by their partner)"

// MemoryUsageFooter closes every non-empty memory block. It is constant and
// never omitted.
const MemoryUsageFooter = `### How to use these memories
- When you draw on a memory, mention it naturally (for example "you told me...") rather than reciting it.
- If you are not sure a memory still holds, ask the user to confirm before relying on it.
- If the user says something that conflicts with a remembered fact, ask them to clarify which one is right.`

// categorySections fixes the rendering order and section titles.
var categorySections = []struct {
	category Category
	title    string
}{
	{CategoryFact, "Facts"},
	{CategoryRelationship, "People"},
	{CategoryContext, "Current Context"},
}

// BuildMemoryContext renders ranked memories as a prompt block grouped by
// category. Input order is preserved inside each group and empty groups are
// left out. An empty input yields the empty string, so callers can drop the
// block altogether.
//
// Memories with an unrecognised category are listed under Facts.
func BuildMemoryContext(memories []SearchResult) string {
	if len(memories) == 0 {
		return ""
	}

	groups := make(map[Category][]string, len(categorySections))
	for _, m := range memories {
		category := m.Category
		if !category.Valid() {
			category = CategoryFact
		}
		groups[category] = append(groups[category], bullet(m.Memory))
	}

	var b strings.Builder
	b.WriteString(MemoryContextHeader)
	for _, section := range categorySections {
		lines := groups[section.category]
		if len(lines) == 0 {
			continue
		}
		b.WriteString("\n\n### ")
		b.WriteString(section.title)
		b.WriteString("\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	b.WriteString("\n\n")
	b.WriteString(MemoryUsageFooter)
	return b.String()
}

// bullet renders one memory on a single line.
func bullet(m Memory) string {
	line := "- " + strings.Join(strings.Fields(m.Content), " ")
	if m.FromPartner {
		line += PartnerAttribution
	}
	return line
}
